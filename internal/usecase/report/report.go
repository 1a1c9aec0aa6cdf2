package report

import (
	"slices"

	"linuxdo-keepalive/internal/domain"
)

// RepliedTopic: тема вместе с фактически отправленным текстом ответа.
type RepliedTopic struct {
	domain.TopicRef
	Reply string `json:"reply"`
}

// ErroredTopic: тема, визит которой завершился ошибкой.
type ErroredTopic struct {
	domain.TopicRef
	Reason domain.ErrorReason `json:"reason"`
	Error  string             `json:"error,omitempty"`
}

// Report: неизменяемая сводка прогона. Каждое значение строится из предыдущего через With,
// поэтому счётчики всегда совпадают с длинами списков.
type Report struct {
	skipped   []domain.TopicRef
	browsed   []domain.TopicRef
	liked     []domain.TopicRef
	replied   []RepliedTopic
	collected []domain.TopicRef
	errored   []ErroredTopic
	outcomes  []domain.TopicOutcome
	counts    domain.RunCounts
}

// Fold сворачивает последовательность исходов в сводку.
func Fold(outcomes []domain.TopicOutcome) Report {
	var r Report
	for _, o := range outcomes {
		r = r.With(o)
	}
	return r
}

// With возвращает новую сводку с добавленным исходом. Исходная сводка не меняется.
func (r Report) With(o domain.TopicOutcome) Report {
	next := Report{
		skipped:   slices.Clone(r.skipped),
		browsed:   slices.Clone(r.browsed),
		liked:     slices.Clone(r.liked),
		replied:   slices.Clone(r.replied),
		collected: slices.Clone(r.collected),
		errored:   slices.Clone(r.errored),
		outcomes:  append(slices.Clone(r.outcomes), o),
		counts:    r.counts,
	}

	switch o.Kind {
	case domain.OutcomeSkipped:
		next.skipped = append(next.skipped, o.Topic)
		next.counts.Skipped++
	case domain.OutcomeVisited:
		next.browsed = append(next.browsed, o.Topic)
		next.counts.Browsed++
		if o.Liked {
			next.liked = append(next.liked, o.Topic)
			next.counts.Liked++
		}
		if o.Replied {
			next.replied = append(next.replied, RepliedTopic{TopicRef: o.Topic, Reply: o.Reply})
			next.counts.Replied++
		}
		if o.Collected {
			next.collected = append(next.collected, o.Topic)
			next.counts.Collected++
		}
	case domain.OutcomeErrored:
		next.errored = append(next.errored, ErroredTopic{TopicRef: o.Topic, Reason: o.ErrorReason, Error: o.Error})
		next.counts.Errored++
	}
	return next
}

// Counts возвращает счётчики для отображения.
func (r Report) Counts() domain.RunCounts { return r.counts }

func (r Report) Skipped() []domain.TopicRef   { return slices.Clone(r.skipped) }
func (r Report) Browsed() []domain.TopicRef   { return slices.Clone(r.browsed) }
func (r Report) Liked() []domain.TopicRef     { return slices.Clone(r.liked) }
func (r Report) Replied() []RepliedTopic      { return slices.Clone(r.replied) }
func (r Report) Collected() []domain.TopicRef { return slices.Clone(r.collected) }
func (r Report) Errored() []ErroredTopic      { return slices.Clone(r.errored) }

// Outcomes возвращает исходы в порядке добавления.
func (r Report) Outcomes() []domain.TopicOutcome { return slices.Clone(r.outcomes) }

// Attempted: число тем, которые пытались открыть (успешно или с ошибкой).
func (r Report) Attempted() int { return r.counts.Browsed + r.counts.Errored }
