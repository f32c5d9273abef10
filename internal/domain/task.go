package domain

import "time"

// TaskStatus enumerates generation task lifecycle states.
type TaskStatus string

const (
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusError      TaskStatus = "error"
)

// PaymentChannel selects how a task is paid for.
type PaymentChannel string

const (
	// PaymentChannelCredits meters the task against the user's credit balance.
	PaymentChannelCredits PaymentChannel = "credits"
	// PaymentChannelKey invokes the provider directly with a personal API key.
	PaymentChannelKey PaymentChannel = "key"
)

// Reference is an input asset attached to a task at submission time. Which of
// URL or MediaID is sent to the backend depends on the selected engine.
type Reference struct {
	URL     string `json:"url"`
	MediaID string `json:"media_id,omitempty"`
}

// LogEntry is one human-readable trace line in a task's lifecycle log.
type LogEntry struct {
	At   time.Time `json:"at"`
	Line string    `json:"line"`
}

// GenerationConfig is the configuration snapshot frozen into a task when it
// is created. Retries reuse this snapshot, never the current UI selection.
type GenerationConfig struct {
	Model       string `json:"model"`
	AspectRatio string `json:"aspect_ratio"`
	Resolution  string `json:"resolution"`
	Seed        int    `json:"seed,omitempty"`
	Style       string `json:"style,omitempty"`
}

// GenerationTask is one user-visible unit of generation work.
//
// ID is a stable internal identifier the registry and API key on. JobID is
// the backend-assigned job identifier, empty until the backend accepts the
// submission; polling addresses the backend by JobID while every local
// update keeps addressing the task by ID.
type GenerationTask struct {
	ID          string           `json:"id"`
	JobID       string           `json:"job_id,omitempty"`
	Prompt      string           `json:"prompt"`
	Status      TaskStatus       `json:"status"`
	URL         string           `json:"url,omitempty"`
	Config      GenerationConfig `json:"config"`
	Channel     PaymentChannel   `json:"channel"`
	Cost        int64            `json:"cost"`
	Refunded    bool             `json:"refunded"`
	References  []Reference      `json:"references,omitempty"`
	Logs        []LogEntry       `json:"logs"`
	CreatedAt   time.Time        `json:"created_at"`
	DisplayTime string           `json:"display_time"`
}

// Terminal reports whether the task has reached done or error.
func (t *GenerationTask) Terminal() bool {
	return t.Status == TaskStatusDone || t.Status == TaskStatusError
}

// AppendLog records a trace line with the given timestamp.
func (t *GenerationTask) AppendLog(at time.Time, line string) {
	t.Logs = append(t.Logs, LogEntry{At: at, Line: line})
}
