package session

import (
	"fmt"
	"net/url"
	"strings"

	"linuxdo-keepalive/internal/domain"
)

// CapMode определяет, к чему применяется ограничение MAX_TOPICS.
type CapMode string

const (
	// CapListing обрезает сырой список, закреплённые темы занимают места.
	CapListing CapMode = "listing"
	// CapVisits ограничивает число открытых тем, закреплённые места не занимают.
	CapVisits CapMode = "visits"
)

// ParseCapMode разбирает режим. Пустая строка означает CapListing.
func ParseCapMode(raw string) (CapMode, error) {
	switch CapMode(strings.ToLower(strings.TrimSpace(raw))) {
	case CapListing, "":
		return CapListing, nil
	case CapVisits:
		return CapVisits, nil
	default:
		return "", fmt.Errorf("%w: TOPIC_CAP_MODE=%q", domain.ErrConfigInvalid, raw)
	}
}

// Select выбирает темы для обработки в исходном порядке.
// Закреплённые темы в результате остаются и будут отмечены как пропущенные.
func Select(listing []domain.ListedTopic, limit int, mode CapMode) []domain.ListedTopic {
	if limit < 0 {
		limit = 0
	}
	if mode != CapVisits {
		return listing[:min(len(listing), limit)]
	}
	out := make([]domain.ListedTopic, 0, limit)
	visits := 0
	for _, t := range listing {
		if visits >= limit {
			break
		}
		out = append(out, t)
		if !t.Pinned {
			visits++
		}
	}
	return out
}

// Селекторы списка тем.
const (
	SelectorTopicTitle = "#list-area .title"
	SelectorTopicRow   = "tr"
	SelectorPinned     = ".topic-statuses .pinned"
)

// describe читает заголовок, ссылку и признак закрепления из элемента списка.
func describe(el domain.Element, home *url.URL) (domain.ListedTopic, error) {
	title, err := el.Text()
	if err != nil {
		return domain.ListedTopic{}, fmt.Errorf("заголовок темы: %w", err)
	}
	href, err := el.Attribute("href")
	if err != nil {
		return domain.ListedTopic{}, fmt.Errorf("ссылка темы: %w", err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return domain.ListedTopic{}, fmt.Errorf("ссылка темы %q: %w", href, err)
	}

	pinned := false
	row, err := el.Closest(SelectorTopicRow)
	if err != nil {
		return domain.ListedTopic{}, fmt.Errorf("строка темы: %w", err)
	}
	if row != nil {
		marks, err := row.QueryAll(SelectorPinned)
		if err != nil {
			return domain.ListedTopic{}, fmt.Errorf("признак закрепления: %w", err)
		}
		pinned = len(marks) > 0
	}

	return domain.ListedTopic{
		TopicRef: domain.TopicRef{Title: strings.TrimSpace(title), URL: home.ResolveReference(ref).String()},
		Pinned:   pinned,
	}, nil
}
