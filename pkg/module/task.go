package module

import (
	"time"

	"github.com/rtuszik/flux-gallery/pkg/config"
)

// Task is one in-flight unit of remote work. Owned by the orchestrator
// goroutine that drives it until terminal, never shared mutable.
type Task struct {
	Id           string    `json:"id"`
	RunId        string    `json:"runId"`
	Index        int       `json:"index"`
	Status       string    `json:"status"`
	Detail       string    `json:"detail,omitempty"`
	PredictionId string    `json:"predictionId,omitempty"`
	SubmittedAt  time.Time `json:"submittedAt"`
	OutputUrls   []string  `json:"outputUrls,omitempty"`
	Err          error     `json:"-"`
}

// Terminal reports whether the task reached a state with no outgoing
// transitions.
func (t *Task) Terminal() bool {
	switch t.Status {
	case config.TASK_SUCCEEDED, config.TASK_FAILED, config.TASK_CANCELLED:
		return true
	}
	return false
}

// setStatus transitions the task. Terminal states are sticky.
func (t *Task) setStatus(status string) {
	if t.Terminal() {
		return
	}
	t.Status = status
}
