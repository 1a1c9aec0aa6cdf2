package report

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog"

	"linuxdo-keepalive/internal/domain"
)

// TimeLayout: формат времени в уведомлениях и логах.
const TimeLayout = "2006-01-02 15:04:05"

const separator = "--------------%s-----------------"

// RenderTable рисует ASCII-таблицу. Пустые rows дают только заголовок.
func RenderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.ASCIIBorder()).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

// TopicsTable рисует таблицу title/url.
func TopicsTable(topics []domain.TopicRef) string {
	rows := make([][]string, 0, len(topics))
	for _, t := range topics {
		rows = append(rows, []string{t.Title, t.URL})
	}
	return RenderTable([]string{"title", "url"}, rows)
}

// RepliesTable рисует таблицу title/url/reply.
func RepliesTable(topics []RepliedTopic) string {
	rows := make([][]string, 0, len(topics))
	for _, t := range topics {
		rows = append(rows, []string{t.Title, t.URL, t.Reply})
	}
	return RenderTable([]string{"title", "url", "reply"}, rows)
}

// ConnectInfoTable рисует таблицу уровня доверия.
func ConnectInfoTable(rows []domain.ConnectInfoRow) string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Project, r.Current, r.Requirement})
	}
	return RenderTable([]string{"项目", "当前", "要求"}, out)
}

type section struct {
	verb  string
	count int
	table func() string
}

func (r Report) sections() []section {
	return []section{
		{verb: "跳过", count: r.counts.Skipped, table: func() string { return TopicsTable(r.skipped) }},
		{verb: "浏览", count: r.counts.Browsed, table: func() string { return TopicsTable(r.browsed) }},
		{verb: "点赞", count: r.counts.Liked, table: func() string { return TopicsTable(r.liked) }},
		{verb: "回复", count: r.counts.Replied, table: func() string { return RepliesTable(r.replied) }},
		{verb: "加入书签", count: r.counts.Collected, table: func() string { return TopicsTable(r.collected) }},
	}
}

// LogSummary пишет в лог счётчики и таблицы всех пяти списков.
func (r Report) LogSummary(logger zerolog.Logger) {
	for _, s := range r.sections() {
		logger.Info().Int("count", s.count).Msgf("一共%s了 %d 篇文章。", s.verb, s.count)
		if s.count > 0 {
			logger.Info().Msgf(separator+"\n%s", s.verb+"的文章信息", s.table())
		}
	}
	if r.counts.Errored > 0 {
		logger.Warn().Int("count", r.counts.Errored).Msg("report: часть тем не удалось открыть")
	}
}

// ArticleInfo: текстовый блок «浏览 + 点赞» для итогового уведомления.
func (r Report) ArticleInfo() string {
	var b strings.Builder
	fmt.Fprintf(&b, "一共浏览了 %d 篇文章。\n", r.counts.Browsed)
	if r.counts.Browsed > 0 {
		fmt.Fprintf(&b, separator+"\n", "浏览的文章信息")
		b.WriteString(TopicsTable(r.browsed))
	}
	fmt.Fprintf(&b, "\n\n一共点赞了 %d 篇文章。\n", r.counts.Liked)
	if r.counts.Liked > 0 {
		fmt.Fprintf(&b, separator+"\n", "点赞的文章信息")
		b.WriteString(TopicsTable(r.liked))
	}
	return b.String()
}

// Summary описывает шапку итогового уведомления.
type Summary struct {
	Username   string
	StartedAt  time.Time
	FinishedAt time.Time
}

// FinalMessage формирует HTML-тело и подпись итогового уведомления.
func FinalMessage(s Summary, r Report) (content, summary string) {
	end := s.FinishedAt.Format(TimeLayout)
	summary = "Linux.do保活脚本 " + end
	elapsed := s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond)

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n\n", html.EscapeString(summary))
	fmt.Fprintf(&b, "<b>账号:</b> %s\n", html.EscapeString(s.Username))
	fmt.Fprintf(&b, "<b>开始执行时间:</b> %s\n", s.StartedAt.Format(TimeLayout))
	fmt.Fprintf(&b, "<b>结束执行时间:</b> %s\n", end)
	fmt.Fprintf(&b, "<b>总耗时:</b> %s\n\n", elapsed)
	fmt.Fprintf(&b, "<b>文章信息:</b>\n<pre>%s</pre>", html.EscapeString(r.ArticleInfo()))
	return b.String(), summary
}
