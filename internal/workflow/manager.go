package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"slate/internal/config"
	"slate/internal/llm"
	"slate/internal/logging"
	"slate/internal/queue"
	"slate/internal/securebuf"
	"slate/internal/taxonomy"
)

// Manager coordinates queue processing across the pipeline stages.
type Manager struct {
	cfg     *config.Config
	store   *queue.Store
	buffers *securebuf.Store
	logger  *slog.Logger

	stages        []pipelineStage
	stageByStart  map[queue.Status]pipelineStage
	startStatuses []queue.Status

	pollInterval      time.Duration
	errorRetry        time.Duration
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager with the full pipeline wired.
func NewManager(cfg *config.Config, store *queue.Store, buffers *securebuf.Store, provider llm.Provider, logger *slog.Logger) (*Manager, error) {
	catalog, err := taxonomy.Load()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:               cfg,
		store:             store,
		buffers:           buffers,
		logger:            logging.NewComponentLogger(logger, "workflow"),
		stages:            buildStages(cfg, store, buffers, provider, catalog, logger),
		stageByStart:      make(map[queue.Status]pipelineStage),
		pollInterval:      time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorRetry:        time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		heartbeatInterval: time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second,
		heartbeatTimeout:  time.Duration(cfg.Workflow.HeartbeatTimeout) * time.Second,
	}
	for _, st := range m.stages {
		m.stageByStart[st.startStatus] = st
		m.startStatuses = append(m.startStatuses, st.startStatus)
	}
	if m.pollInterval <= 0 {
		m.pollInterval = 5 * time.Second
	}
	if m.errorRetry <= 0 {
		m.errorRetry = 10 * time.Second
	}
	if m.heartbeatInterval <= 0 {
		m.heartbeatInterval = 15 * time.Second
	}
	if m.heartbeatTimeout <= 0 {
		m.heartbeatTimeout = 2 * time.Minute
	}
	return m, nil
}

// Start begins background processing. Jobs stranded mid-stage by a previous
// run are rolled back to their stage boundary before workers launch.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}

	reset, err := m.store.ResetStuckProcessing(ctx)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if reset > 0 {
		m.logger.Info("rolled back jobs stranded by previous run", logging.Int64("jobs", reset))
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	workers := m.cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	m.wg.Add(workers + 1)
	m.mu.Unlock()

	for i := 0; i < workers; i++ {
		go m.runWorker(runCtx)
	}
	go m.runMaintenance(runCtx)

	m.logger.Info("workflow started", logging.Int("workers", workers))
	return nil
}

// Stop terminates background processing and waits for workers to drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped")
}

// LastError returns the most recent stage or queue error, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) runWorker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.NextForStatuses(ctx, m.startStatuses...)
		if err != nil {
			m.setLastError(err)
			m.logger.Error("failed to fetch next job", logging.Error(err))
			m.sleep(ctx, m.errorRetry)
			continue
		}
		if job == nil {
			m.sleep(ctx, m.pollInterval)
			continue
		}

		if err := m.processJob(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

// runMaintenance reclaims jobs with stale heartbeats so another worker can
// pick them up. Expired staging entries are swept by the buffer janitor.
func (m *Manager) runMaintenance(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cutoff := time.Now().UTC().Add(-m.heartbeatTimeout)
		reclaimed, err := m.store.ReclaimStaleProcessing(ctx, cutoff)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				m.logger.Warn("stale job reclaim failed", logging.Error(err))
			}
			continue
		}
		if reclaimed > 0 {
			m.logger.Warn("reclaimed jobs with stale heartbeats", logging.Int64("jobs", reclaimed))
		}
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
