package domain

import "time"

// TopicRef описывает тему форума из списка «Последние».
type TopicRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ListedTopic: тема из списка вместе с признаком закрепления.
type ListedTopic struct {
	TopicRef
	Pinned bool
}

// OutcomeKind различает варианты TopicOutcome.
type OutcomeKind string

const (
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeVisited OutcomeKind = "visited"
	OutcomeErrored OutcomeKind = "errored"
)

// SkipReason объясняет, почему тема не открывалась.
type SkipReason string

// SkipPinned: закреплённая тема.
const SkipPinned SkipReason = "pinned"

// ErrorReason классифицирует неудачный визит.
type ErrorReason string

const (
	ErrorTimeout ErrorReason = "timeout"
	ErrorOther   ErrorReason = "other"
)

// TopicOutcome: результат обработки одной темы. После создания не меняется.
type TopicOutcome struct {
	Topic TopicRef    `json:"topic"`
	Kind  OutcomeKind `json:"kind"`

	SkipReason  SkipReason  `json:"skip_reason,omitempty"`
	ErrorReason ErrorReason `json:"error_reason,omitempty"`
	Error       string      `json:"error,omitempty"`

	Liked     bool   `json:"liked,omitempty"`
	Replied   bool   `json:"replied,omitempty"`
	Reply     string `json:"reply,omitempty"`
	Collected bool   `json:"collected,omitempty"`
}

// Skipped создаёт исход для пропущенной темы.
func Skipped(topic TopicRef, reason SkipReason) TopicOutcome {
	return TopicOutcome{Topic: topic, Kind: OutcomeSkipped, SkipReason: reason}
}

// Visited создаёт исход успешного визита. Пустой reply означает, что ответа не было.
func Visited(topic TopicRef, liked bool, reply string, collected bool) TopicOutcome {
	return TopicOutcome{
		Topic:     topic,
		Kind:      OutcomeVisited,
		Liked:     liked,
		Replied:   reply != "",
		Reply:     reply,
		Collected: collected,
	}
}

// Errored создаёт исход неудачного визита.
func Errored(topic TopicRef, reason ErrorReason, err error) TopicOutcome {
	out := TopicOutcome{Topic: topic, Kind: OutcomeErrored, ErrorReason: reason}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

// Actions: набор действий, выбранных для одного визита.
type Actions struct {
	Like    bool
	Reply   bool
	Collect bool
}

// Session: один логический прогон.
type Session struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Authenticated bool      `json:"authenticated"`
}

// Elapsed возвращает длительность прогона.
func (s Session) Elapsed() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// ConnectInfoRow: строка таблицы уровня доверия на connect-странице.
type ConnectInfoRow struct {
	Project     string `json:"project"`
	Current     string `json:"current"`
	Requirement string `json:"requirement"`
}
