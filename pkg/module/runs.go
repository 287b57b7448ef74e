package module

import (
	"context"
	"sync"

	"github.com/rtuszik/flux-gallery/pkg/models"
)

// Run is one generate-and-collect cycle: N fan-out units plus their shared
// cancellation signal.
type Run struct {
	Id      string                   `json:"id"`
	Request models.GenerationRequest `json:"request"`

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	counts map[string]int
}

// Cancel propagate the cancellation signal to all still-pending units.
// Units already terminal are unaffected. Safe to call more than once.
func (r *Run) Cancel() {
	r.cancel()
}

// Done closes once every unit is terminal.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Counts terminal outcomes by status so far.
func (r *Run) Counts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

func (r *Run) recordTerminal(status string) {
	r.mu.Lock()
	r.counts[status]++
	r.mu.Unlock()
}

// RunRegistry tracks in-flight runs so the api surface can look them up for
// cancel and status. Finished runs are removed.
type RunRegistry struct {
	runs sync.Map
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{}
}

func (reg *RunRegistry) Add(run *Run) {
	reg.runs.Store(run.Id, run)
}

func (reg *RunRegistry) Get(id string) (*Run, bool) {
	val, ok := reg.runs.Load(id)
	if !ok {
		return nil, false
	}
	return val.(*Run), true
}

func (reg *RunRegistry) Delete(id string) {
	reg.runs.Delete(id)
}
