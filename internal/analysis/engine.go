package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"slate/internal/config"
	"slate/internal/llm"
	"slate/internal/logging"
	"slate/internal/screenplay"
	"slate/internal/services"
	"slate/internal/taxonomy"
)

// Engine runs scene analysis against the model with bounded concurrency.
type Engine struct {
	provider    llm.Provider
	catalog     *taxonomy.Catalog
	logger      *slog.Logger
	prompt      string
	concurrency int
	attempts    int
	baseDelay   time.Duration
	maxDelay    time.Duration
	perScene    time.Duration
	sleep       func(context.Context, time.Duration) error
}

// EngineOption adjusts engine behavior, primarily for tests.
type EngineOption func(*Engine)

// WithSleeper overrides the retry delay function.
func WithSleeper(sleep func(context.Context, time.Duration) error) EngineOption {
	return func(e *Engine) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// NewEngine constructs an analysis engine from configuration.
func NewEngine(cfg *config.Config, provider llm.Provider, catalog *taxonomy.Catalog, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Engine{
		provider:    provider,
		catalog:     catalog,
		logger:      logger,
		prompt:      buildSystemPrompt(catalog),
		concurrency: cfg.Analysis.SceneConcurrency,
		attempts:    cfg.Analysis.RetryAttempts,
		baseDelay:   time.Duration(cfg.Analysis.RetryBaseSeconds) * time.Second,
		maxDelay:    time.Duration(cfg.Analysis.RetryMaxSeconds) * time.Second,
		perScene:    time.Duration(cfg.Analysis.SceneTimeoutSeconds) * time.Second,
		sleep:       sleepContext,
	}
	if e.concurrency < 1 {
		e.concurrency = 1
	}
	if e.attempts < 1 {
		e.attempts = 1
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// sceneResponse is the model's per-scene payload before normalization.
type sceneResponse struct {
	Findings []taxonomy.Finding `json:"findings"`
}

type sceneOutcome struct {
	sceneNumber int
	findings    []taxonomy.Finding
	dropped     int
	degraded    bool
	warning     string
}

// Analyze runs every scene of the document through the model and collects
// normalized findings in scene order.
func (e *Engine) Analyze(ctx context.Context, doc *screenplay.Document) (*Result, error) {
	if doc == nil || len(doc.Scenes) == 0 {
		return nil, services.Wrap(services.ErrValidation, "analysis", "analyze", "document has no scenes", nil)
	}

	outcomes := make([]sceneOutcome, len(doc.Scenes))
	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup

	for i, scene := range doc.Scenes {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, services.Wrap(services.ErrTimeout, "analysis", "analyze", "analysis interrupted", ctx.Err())
		case sem <- struct{}{}:
		}
		// A slot can free at the same instant the context is cut. Re-check so
		// no scene is dispatched after cancellation.
		if ctx.Err() != nil {
			wg.Wait()
			return nil, services.Wrap(services.ErrTimeout, "analysis", "analyze", "analysis interrupted", ctx.Err())
		}
		wg.Add(1)
		go func(i int, scene screenplay.Scene) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = e.analyzeScene(ctx, scene)
		}(i, scene)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrTimeout, "analysis", "analyze", "analysis interrupted", err)
	}

	result := &Result{
		Title:             doc.Title,
		Format:            string(doc.Format),
		SceneCount:        len(doc.Scenes),
		Findings:          []taxonomy.Finding{},
		Characters:        append([]screenplay.CharacterAppearances(nil), doc.Characters...),
		Warnings:          append([]string(nil), doc.Warnings...),
		OverallConfidence: doc.OverallConfidence,
	}
	for _, outcome := range outcomes {
		result.Findings = append(result.Findings, outcome.findings...)
		result.DroppedFindings += outcome.dropped
		if outcome.degraded {
			result.DegradedScenes = append(result.DegradedScenes, outcome.sceneNumber)
		}
		if outcome.warning != "" {
			result.Warnings = append(result.Warnings, outcome.warning)
		}
	}
	sort.Ints(result.DegradedScenes)
	return result, nil
}

func (e *Engine) analyzeScene(ctx context.Context, scene screenplay.Scene) sceneOutcome {
	outcome := sceneOutcome{sceneNumber: scene.Number}
	user := buildScenePrompt(scene)

	var lastErr error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		findings, dropped, err := e.requestScene(ctx, scene, user)
		if err == nil {
			outcome.findings = findings
			outcome.dropped = dropped
			return outcome
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		e.logger.Warn("scene analysis attempt failed",
			logging.Int(logging.FieldSceneNumber, scene.Number),
			logging.Int("attempt", attempt),
			logging.Error(err))
		if attempt < e.attempts {
			if sleepErr := e.sleep(ctx, e.retryDelay(attempt)); sleepErr != nil {
				break
			}
		}
	}

	outcome.degraded = true
	outcome.warning = fmt.Sprintf("scene %d analysis degraded after %d attempts: %v", scene.Number, e.attempts, lastErr)
	return outcome
}

func (e *Engine) requestScene(ctx context.Context, scene screenplay.Scene, user string) ([]taxonomy.Finding, int, error) {
	if e.perScene > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.perScene)
		defer cancel()
	}

	content, err := e.provider.CompleteJSON(ctx, e.prompt, user)
	if err != nil {
		return nil, 0, err
	}

	var resp sceneResponse
	if err := llm.DecodeJSON(content, &resp); err != nil {
		return nil, 0, fmt.Errorf("decode scene %d response: %w", scene.Number, err)
	}

	var findings []taxonomy.Finding
	dropped := 0
	for _, raw := range resp.Findings {
		raw.SceneNumber = scene.Number
		normalized, err := e.catalog.NormalizeFinding(raw)
		if err != nil {
			dropped++
			e.logger.Warn("finding dropped",
				logging.Int(logging.FieldSceneNumber, scene.Number),
				logging.Error(err))
			continue
		}
		findings = append(findings, normalized)
	}
	return findings, dropped, nil
}

func (e *Engine) retryDelay(attempt int) time.Duration {
	delay := e.baseDelay
	if delay <= 0 {
		delay = time.Second
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if e.maxDelay > 0 && delay >= e.maxDelay {
			return e.maxDelay
		}
	}
	if e.maxDelay > 0 && delay > e.maxDelay {
		return e.maxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
