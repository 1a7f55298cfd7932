package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/riskibarqy/sports-feed/internal/domain/jobrun"
)

// JobRunRepository keeps the latest event per run id.
type JobRunRepository struct {
	mu    sync.RWMutex
	items map[string]jobrun.Event
	order []string
}

func NewJobRunRepository() *JobRunRepository {
	return &JobRunRepository{items: make(map[string]jobrun.Event)}
}

func (r *JobRunRepository) Record(_ context.Context, event jobrun.Event) error {
	runID := strings.TrimSpace(event.RunID)
	if runID == "" {
		return fmt.Errorf("run id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[runID]; !exists {
		r.order = append(r.order, runID)
	}
	r.items[runID] = event
	return nil
}

// Latest returns the current state of every run in insertion order.
func (r *JobRunRepository) Latest() []jobrun.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]jobrun.Event, 0, len(r.order))
	for _, runID := range r.order {
		out = append(out, r.items[runID])
	}
	return out
}
