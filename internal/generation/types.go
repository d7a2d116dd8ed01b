package generation

import "fmt"

// Mode selects which serverless endpoint a job is routed to. It never
// influences the payload itself.
type Mode string

const (
	ModeWizard      Mode = "wizard"
	ModeNewPre      Mode = "new_pre"
	ModePosterFrame Mode = "posterFrameRegeneration"
)

// ParseMode validates free-form caller input against the supported modes.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeWizard, ModeNewPre, ModePosterFrame:
		return Mode(s), nil
	}
	return "", fmt.Errorf("generation: unsupported mode %q", s)
}

func (m Mode) String() string {
	return string(m)
}

// Status is a job state as reported by a backend. COMPLETED, FAILED and
// CANCELLED are terminal; once one of them is observed, polling stops for
// good.
type Status string

const (
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
	StatusInQueue    Status = "IN_QUEUE"
	StatusInProgress Status = "IN_PROGRESS"
)

// Terminal reports whether no further status transition can occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Request is one generation job as submitted by a caller. Payload is opaque
// to the dispatcher; RequestID exists only for log correlation.
type Request struct {
	Payload        map[string]any `json:"payload"`
	Mode           Mode           `json:"mode"`
	RequestID      string         `json:"request_id,omitempty"`
	ServerlessOnly bool           `json:"serverless_only,omitempty"`
}

// Result is the normalized outcome handed back to callers. Status is always
// COMPLETED or FAILED; a backend-side CANCELLED is remapped before the result
// leaves the dispatcher. Artifacts are opaque strings (base64 blobs or URLs).
type Result struct {
	Status    Status   `json:"status"`
	Artifacts []string `json:"artifacts"`
	RawStatus string   `json:"raw_status,omitempty"`
	Err       string   `json:"error,omitempty"`
}

// Failed builds a synthetic FAILED result carrying an explanatory message.
func Failed(msg string) *Result {
	return &Result{Status: StatusFailed, Artifacts: []string{}, Err: msg}
}
