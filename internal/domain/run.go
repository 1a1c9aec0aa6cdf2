package domain

// RunState: состояние автомата сессии.
type RunState string

const (
	StateInit             RunState = "init"
	StateLoggingIn        RunState = "logging_in"
	StateLoginFailed      RunState = "login_failed"
	StateAuthenticated    RunState = "authenticated"
	StateProcessingTopics RunState = "processing_topics"
	StateReadingAuxInfo   RunState = "reading_aux_info"
	StateLoggingOut       RunState = "logging_out"
	StateReporting        RunState = "reporting"
	StateDone             RunState = "done"
)

// RunCounts: итоговые счётчики прогона.
type RunCounts struct {
	Skipped   int `json:"skipped"`
	Browsed   int `json:"browsed"`
	Liked     int `json:"liked"`
	Replied   int `json:"replied"`
	Collected int `json:"collected"`
	Errored   int `json:"errored"`
}

// RunRecord: итог прогона, который уходит в хранилища и очередь событий.
type RunRecord struct {
	Session     Session          `json:"session"`
	State       RunState         `json:"state"`
	Path        []RunState       `json:"path"`
	Error       string           `json:"error,omitempty"`
	Counts      RunCounts        `json:"counts"`
	Outcomes    []TopicOutcome   `json:"outcomes"`
	ConnectInfo []ConnectInfoRow `json:"connect_info,omitempty"`
}
