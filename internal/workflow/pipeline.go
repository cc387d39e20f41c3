package workflow

import (
	"log/slog"

	"slate/internal/analysis"
	"slate/internal/config"
	"slate/internal/delivery"
	"slate/internal/llm"
	"slate/internal/parsing"
	"slate/internal/queue"
	"slate/internal/report"
	"slate/internal/securebuf"
	"slate/internal/stage"
	"slate/internal/taxonomy"
)

// pipelineStage binds a handler to its status triple.
type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// buildStages wires the four pipeline stages in processing order.
func buildStages(cfg *config.Config, store *queue.Store, buffers *securebuf.Store, provider llm.Provider, catalog *taxonomy.Catalog, logger *slog.Logger) []pipelineStage {
	engine := analysis.NewEngine(cfg, provider, catalog, logger)
	return []pipelineStage{
		{
			name:             "parsing",
			handler:          parsing.New(cfg, buffers, provider, logger),
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusParsing,
			doneStatus:       queue.StatusParsed,
		},
		{
			name:             "analysis",
			handler:          analysis.NewStage(cfg, buffers, engine, logger),
			startStatus:      queue.StatusParsed,
			processingStatus: queue.StatusAnalyzing,
			doneStatus:       queue.StatusAnalyzed,
		},
		{
			name:             "aggregation",
			handler:          report.NewStage(cfg, store, buffers, logger),
			startStatus:      queue.StatusAnalyzed,
			processingStatus: queue.StatusAggregating,
			doneStatus:       queue.StatusAggregated,
		},
		{
			name:             "delivery",
			handler:          delivery.New(cfg, buffers, logger),
			startStatus:      queue.StatusAggregated,
			processingStatus: queue.StatusDelivering,
			doneStatus:       queue.StatusCompleted,
		},
	}
}
