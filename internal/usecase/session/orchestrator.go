// Package session ведёт прогон: вход, обработка тем, служебная страница, выход и итоговый отчёт.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"linuxdo-keepalive/internal/domain"
	"linuxdo-keepalive/internal/infra/metrics"
	"linuxdo-keepalive/internal/usecase/pace"
	"linuxdo-keepalive/internal/usecase/report"
)

// Подписи уведомлений.
const (
	SummaryLogin     = "Linux.do 登录通知"
	SummaryRunFailed = "Linux.do 运行过程中出错"
)

// Селекторы страниц входа, выхода и connect.
const (
	SelectorLoginOpen     = ".login-button .d-button-label"
	SelectorLoginAccount  = "#login-account-name"
	SelectorLoginPassword = "#login-account-password"
	SelectorLoginSubmit   = "#login-button"
	SelectorCurrentUser   = "#current-user"
	SelectorUserMenu      = "#current-user .icon"
	SelectorProfileTab    = "#user-menu-button-profile"
	SelectorLogout        = ".logout .btn"
	SelectorConnectRow    = "table tr"
	SelectorConnectCell   = "td"
)

// TopicVisitor открывает одну тему.
type TopicVisitor interface {
	Visit(ctx context.Context, browser domain.Browser, topic domain.TopicRef, actions domain.Actions) domain.TopicOutcome
}

// ActionSampler выбирает действия для визита.
type ActionSampler interface {
	Sample() domain.Actions
}

// Timing: паузы сценария вне страниц тем.
type Timing struct {
	pace.Timeouts
	StepPause     time.Duration
	LoginSettle   time.Duration
	RecordTimeout time.Duration
}

// DefaultTiming возвращает паузы по умолчанию.
func DefaultTiming() Timing {
	return Timing{
		Timeouts:      pace.DefaultTimeouts(),
		StepPause:     2 * time.Second,
		LoginSettle:   10 * time.Second,
		RecordTimeout: 10 * time.Second,
	}
}

// Config: параметры прогона.
type Config struct {
	Username   string
	Password   string
	HomeURL    string
	ConnectURL string
	MaxTopics  int
	CapMode    CapMode
	Timing     Timing
}

// Deps: внешние зависимости оркестратора.
type Deps struct {
	Launcher  domain.Launcher
	Visitor   TopicVisitor
	Sampler   ActionSampler
	Scroller  *pace.Scroller
	Notifier  domain.Notifier
	Recorders []domain.RunRecorder
	Clock     pace.Clock
	Logger    zerolog.Logger
	NewID     func() string
}

// Orchestrator выполняет один прогон за вызов Run.
type Orchestrator struct {
	cfg  Config
	home *url.URL
	deps Deps
	log  zerolog.Logger
}

// New проверяет конфигурацию и собирает оркестратор.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: USERNAME/PASSWORD", domain.ErrConfigMissing)
	}
	home, err := url.Parse(cfg.HomeURL)
	if err != nil || home.Scheme == "" || home.Host == "" {
		return nil, fmt.Errorf("%w: HOME_URL=%q", domain.ErrConfigInvalid, cfg.HomeURL)
	}
	if cfg.MaxTopics < 1 {
		return nil, fmt.Errorf("%w: MAX_TOPICS=%d", domain.ErrConfigInvalid, cfg.MaxTopics)
	}
	if cfg.CapMode == "" {
		cfg.CapMode = CapListing
	}
	if cfg.Timing == (Timing{}) {
		cfg.Timing = DefaultTiming()
	}
	if deps.Launcher == nil || deps.Visitor == nil || deps.Sampler == nil || deps.Scroller == nil || deps.Notifier == nil {
		return nil, errors.New("session: не заданы обязательные зависимости")
	}
	if deps.Clock == nil {
		deps.Clock = pace.RealClock{}
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return uuid.NewString() }
	}
	return &Orchestrator{
		cfg:  cfg,
		home: home,
		deps: deps,
		log:  deps.Logger.With().Str("component", "session").Logger(),
	}, nil
}

// run: изменяемое состояние одного прогона. Принадлежит горутине Run.
type run struct {
	session     domain.Session
	state       domain.RunState
	path        []domain.RunState
	err         error
	report      report.Report
	connectInfo []domain.ConnectInfoRow
	browser     domain.Browser
	page        domain.Page
}

func (r *run) enter(s domain.RunState) {
	r.state = s
	r.path = append(r.path, s)
}

// Run проходит все фазы и возвращает итог. Ошибки фаз не выходят наружу:
// они логируются, уходят в уведомления и попадают в RunRecord.Error.
func (o *Orchestrator) Run(ctx context.Context) (rec domain.RunRecord) {
	r := &run{
		session: domain.Session{
			ID:        o.deps.NewID(),
			Username:  o.cfg.Username,
			StartedAt: o.deps.Clock.Now(),
		},
		report: report.Fold(nil),
	}
	r.enter(domain.StateInit)
	log := o.log.With().Str("run_id", r.session.ID).Logger()
	log.Info().Str("started_at", r.session.StartedAt.Format(report.TimeLayout)).Msg("session: прогон начат")

	defer func() { rec = o.finish(ctx, log, r) }()

	err := guard(func() error { return o.phases(ctx, log, r) })
	if err != nil {
		r.err = err
		log.Error().Err(err).Msg("session: ошибка во время прогона")
		o.deps.Notifier.Send(fmt.Sprintf("Linux.do 运行过程中出错\n用户名: %s\n时间: %s\n错误: %v",
			o.cfg.Username, o.deps.Clock.Now().Format(report.TimeLayout), err), SummaryRunFailed)
	}
	if r.session.Authenticated {
		o.logout(ctx, log, r)
	}
	return rec
}

func (o *Orchestrator) phases(ctx context.Context, log zerolog.Logger, r *run) error {
	browser, err := o.deps.Launcher.Launch(ctx)
	if err != nil {
		return fmt.Errorf("запуск браузера: %w", err)
	}
	r.browser = browser
	page, err := browser.NewPage()
	if err != nil {
		return fmt.Errorf("открытие вкладки: %w", err)
	}
	r.page = page

	r.enter(domain.StateLoggingIn)
	loginErr := o.login(ctx, log, page)
	metrics.IncLogin(loginErr == nil)
	status := "登录成功"
	if loginErr != nil {
		status = "登录失败"
		log.Error().Err(loginErr).Msg("session: вход не удался")
	} else {
		log.Info().Msg("session: вход выполнен")
	}
	o.deps.Notifier.Send(fmt.Sprintf("Linux.do %s\n用户名: %s\n时间: %s",
		status, o.cfg.Username, o.deps.Clock.Now().Format(report.TimeLayout)), SummaryLogin)
	if loginErr != nil {
		r.enter(domain.StateLoginFailed)
		return nil
	}
	r.session.Authenticated = true
	r.enter(domain.StateAuthenticated)

	r.enter(domain.StateProcessingTopics)
	if err := o.processTopics(ctx, log, r); err != nil {
		return err
	}

	r.enter(domain.StateReadingAuxInfo)
	r.connectInfo = o.readConnectInfo(ctx, log, page)
	return nil
}

func (o *Orchestrator) login(ctx context.Context, log zerolog.Logger, page domain.Page) error {
	t := o.cfg.Timing
	log.Info().Str("url", o.cfg.HomeURL).Msg("session: попытка входа")
	if err := page.Goto(ctx, o.cfg.HomeURL, t.NavTimeout); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLoginFailed, err)
	}
	steps := []func() error{
		func() error { return page.Click(SelectorLoginOpen) },
		func() error { return page.Fill(SelectorLoginAccount, o.cfg.Username) },
		func() error { return page.Fill(SelectorLoginPassword, o.cfg.Password) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrLoginFailed, err)
		}
		if err := o.deps.Clock.Sleep(ctx, t.StepPause); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrLoginFailed, err)
		}
	}
	if err := page.Click(SelectorLoginSubmit); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLoginFailed, err)
	}
	if err := o.deps.Clock.Sleep(ctx, t.LoginSettle); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLoginFailed, err)
	}
	user, err := page.Query(SelectorCurrentUser)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLoginFailed, err)
	}
	if user == nil {
		return fmt.Errorf("%w: нет элемента %s", domain.ErrLoginFailed, SelectorCurrentUser)
	}
	return nil
}

// processTopics обходит список тем. Сбой поиска тем завершает фазу с частичным отчётом,
// наружу выходит только отмена контекста.
func (o *Orchestrator) processTopics(ctx context.Context, log zerolog.Logger, r *run) error {
	log.Info().Msg("session: обработка тем")
	defer func() { r.report.LogSummary(log) }()

	_ = o.deps.Scroller.Scroll(ctx, r.page)

	els, err := r.page.QueryAll(SelectorTopicTitle)
	if err != nil {
		log.Error().Err(err).Msg("session: не удалось получить список тем")
		return nil
	}
	listing := make([]domain.ListedTopic, 0, len(els))
	for _, el := range els {
		t, err := describe(el, o.home)
		if err != nil {
			log.Warn().Err(err).Msg("session: тема из списка пропущена")
			continue
		}
		listing = append(listing, t)
	}
	log.Info().Int("found", len(listing)).Msgf("共找到 %d 个主题。", len(listing))

	selected := Select(listing, o.cfg.MaxTopics, o.cfg.CapMode)
	if len(selected) < len(listing) {
		log.Info().Int("max_topics", o.cfg.MaxTopics).Str("cap_mode", string(o.cfg.CapMode)).
			Msg("session: список тем ограничен")
	}

	for i, t := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.Pinned {
			log.Info().Str("title", t.Title).Msg("session: закреплённая тема пропущена")
			r.report = r.report.With(domain.Skipped(t.TopicRef, domain.SkipPinned))
			metrics.IncVisit(string(domain.OutcomeSkipped))
			continue
		}
		log.Info().Int("index", i+1).Int("total", len(selected)).Str("title", t.Title).Msg("session: открываем тему")
		out := o.deps.Visitor.Visit(ctx, r.browser, t.TopicRef, o.deps.Sampler.Sample())
		r.report = r.report.With(out)
	}
	return nil
}

func (o *Orchestrator) readConnectInfo(ctx context.Context, log zerolog.Logger, page domain.Page) []domain.ConnectInfoRow {
	if o.cfg.ConnectURL == "" {
		return nil
	}
	log.Info().Str("url", o.cfg.ConnectURL).Msg("session: переход на страницу connect")
	if err := page.Goto(ctx, o.cfg.ConnectURL, o.cfg.Timing.NavTimeout); err != nil {
		log.Error().Err(err).Msg("session: страница connect недоступна")
		return nil
	}
	if err := o.deps.Clock.Sleep(ctx, o.cfg.Timing.StepPause); err != nil {
		return nil
	}
	log.Info().Str("url", page.URL()).Msg("session: текущая страница")

	rows, err := page.QueryAll(SelectorConnectRow)
	if err != nil {
		log.Error().Err(err).Msg("session: не удалось прочитать таблицу connect")
		return nil
	}
	var info []domain.ConnectInfoRow
	for _, row := range rows {
		cells, err := row.QueryAll(SelectorConnectCell)
		if err != nil || len(cells) < 3 {
			continue
		}
		texts := make([]string, 3)
		for i := range texts {
			text, err := cells[i].Text()
			if err != nil {
				log.Warn().Err(err).Msg("session: ячейка connect не прочитана")
			}
			texts[i] = strings.TrimSpace(text)
		}
		info = append(info, domain.ConnectInfoRow{Project: texts[0], Current: texts[1], Requirement: texts[2]})
	}
	log.Info().Msgf("--------------Connect Info 在过去 💯 天内-----------------\n%s", report.ConnectInfoTable(info))
	return info
}

func (o *Orchestrator) logout(ctx context.Context, log zerolog.Logger, r *run) {
	r.enter(domain.StateLoggingOut)
	err := guard(func() error {
		t := o.cfg.Timing
		ctx := context.WithoutCancel(ctx)
		if err := r.page.Goto(ctx, o.cfg.HomeURL, t.NavTimeout); err != nil {
			return err
		}
		for _, sel := range []string{SelectorUserMenu, SelectorProfileTab, SelectorLogout} {
			if err := o.deps.Clock.Sleep(ctx, t.StepPause); err != nil {
				return err
			}
			el, err := r.page.WaitFor(sel, t.ActionTimeout)
			if err != nil {
				return err
			}
			if err := el.Click(); err != nil {
				return fmt.Errorf("клик %s: %w", sel, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("session: выход не удался")
		return
	}
	log.Info().Msg("session: выход выполнен")
}

// finish освобождает браузер, отправляет итоговое уведомление и сохраняет прогон.
func (o *Orchestrator) finish(ctx context.Context, log zerolog.Logger, r *run) domain.RunRecord {
	final := r.state
	r.enter(domain.StateReporting)
	r.session.FinishedAt = o.deps.Clock.Now()
	log.Info().Str("finished_at", r.session.FinishedAt.Format(report.TimeLayout)).Msg("session: прогон завершён")

	if r.page != nil {
		if err := r.page.Close(); err != nil {
			log.Warn().Err(err).Msg("session: ошибка закрытия вкладки")
		}
	}
	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			log.Warn().Err(err).Msg("session: ошибка закрытия браузера")
		}
	}

	content, summary := report.FinalMessage(report.Summary{
		Username:   o.cfg.Username,
		StartedAt:  r.session.StartedAt,
		FinishedAt: r.session.FinishedAt,
	}, r.report)
	o.deps.Notifier.Send(content, summary)

	if final != domain.StateLoginFailed {
		final = domain.StateDone
		r.enter(domain.StateDone)
	} else {
		r.state = final
	}

	rec := domain.RunRecord{
		Session:     r.session,
		State:       final,
		Path:        r.path,
		Counts:      r.report.Counts(),
		Outcomes:    r.report.Outcomes(),
		ConnectInfo: r.connectInfo,
	}
	if r.err != nil {
		rec.Error = r.err.Error()
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.Timing.RecordTimeout)
	defer cancel()
	for _, recorder := range o.deps.Recorders {
		if err := recorder.RecordRun(recordCtx, rec); err != nil {
			log.Error().Err(err).Msg("session: не удалось сохранить прогон")
		}
	}
	metrics.ObserveRun(string(final), r.session.Elapsed())
	return rec
}

// guard превращает панику в ошибку.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника: %v", r)
		}
	}()
	return fn()
}
