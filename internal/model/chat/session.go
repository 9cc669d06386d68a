package chat

import "time"

// State 报告会话所处的阶段。
type State string

const (
	StateIdle             State = "idle"
	StateRecording        State = "recording"
	StateProcessing       State = "processing"
	StateWaitingForAnswer State = "waitingForAnswer"
	StateGenerating       State = "generating"
	StateCompleted        State = "completed"
)

// Busy reports whether a model call is in flight in this state.
func (s State) Busy() bool {
	return s == StateProcessing || s == StateGenerating
}

// Snapshot is an immutable view of one report-authoring session.
type Snapshot struct {
	ID               string    `json:"id"`
	State            State     `json:"state"`
	CollectedText    string    `json:"collectedText"`
	PendingQuestions []string  `json:"pendingQuestions"`
	LastReportID     string    `json:"lastReportId,omitempty"`
	LastError        string    `json:"lastError,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
