package workflow

import (
	"context"

	"slate/internal/queue"
	"slate/internal/stage"
)

// Health is a point-in-time view of the daemon's readiness.
type Health struct {
	Queue  queue.HealthSummary
	Stages []stage.Health
}

// Ready reports whether every stage is healthy.
func (h Health) Ready() bool {
	for _, s := range h.Stages {
		if !s.Ready {
			return false
		}
	}
	return true
}

// Health checks every stage handler and summarizes queue state.
func (m *Manager) Health(ctx context.Context) (Health, error) {
	summary, err := m.store.Health(ctx)
	if err != nil {
		return Health{}, err
	}
	out := Health{Queue: summary}
	for _, st := range m.stages {
		out.Stages = append(out.Stages, st.handler.HealthCheck(ctx))
	}
	return out, nil
}
