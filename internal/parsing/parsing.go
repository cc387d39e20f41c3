// Package parsing implements the stage that turns staged script content
// into a structured screenplay document.
//
// The stage routes on the job's declared format: FDX parses structurally,
// PDF goes through text extraction and model-assisted structuring. The
// parsed document is staged under a fresh buffer key and the raw input key
// is deleted, so original script content does not outlive this stage.
package parsing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"slate/internal/config"
	"slate/internal/fdx"
	"slate/internal/llm"
	"slate/internal/logging"
	"slate/internal/pdfscript"
	"slate/internal/queue"
	"slate/internal/screenplay"
	"slate/internal/securebuf"
	"slate/internal/services"
	"slate/internal/stage"
)

// Stage parses staged scripts into screenplay documents.
type Stage struct {
	cfg        *config.Config
	buffers    *securebuf.Store
	structurer *pdfscript.Structurer
	logger     *slog.Logger
}

// New constructs the parsing stage.
func New(cfg *config.Config, buffers *securebuf.Store, provider llm.Provider, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "parsing")
	return &Stage{
		cfg:        cfg,
		buffers:    buffers,
		structurer: pdfscript.NewStructurer(provider, logger),
		logger:     logger,
	}
}

// Prepare validates that the job can be parsed at all.
func (s *Stage) Prepare(_ context.Context, job *queue.Job) error {
	if _, ok := screenplay.ParseFormat(job.Format); !ok {
		return services.Wrap(services.ErrValidation, "parsing", "prepare",
			fmt.Sprintf("unsupported script format %q", job.Format), nil)
	}
	if job.BufferKey == "" {
		return services.Wrap(services.ErrValidation, "parsing", "prepare", "job has no staged content", nil)
	}
	job.ProgressStage = "parsing"
	return nil
}

// Execute parses the staged content and re-stages the structured document.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	if timeout := s.cfg.Parsing.StageTimeoutSeconds; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	data, err := s.buffers.Get(job.BufferKey)
	if err != nil {
		if errors.Is(err, securebuf.ErrNotFound) {
			return services.Wrap(services.ErrExpired, "parsing", "fetch_buffer",
				"staged script content expired or was never stored", err)
		}
		return services.Wrap(services.ErrTransient, "parsing", "fetch_buffer", "read staged content", err)
	}

	format, _ := screenplay.ParseFormat(job.Format)
	var doc *screenplay.Document
	switch format {
	case screenplay.FormatFDX:
		doc, err = fdx.Parse(data)
	case screenplay.FormatPDF:
		doc, err = s.parsePDF(ctx, data)
	}
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return services.Wrap(services.ErrTransient, "parsing", "encode_document", "encode parsed document", err)
	}
	docKey, err := s.buffers.Put(encoded, 0)
	if err != nil {
		return services.Wrap(services.ErrTransient, "parsing", "stage_document", "stage parsed document", err)
	}

	inputKey := job.BufferKey
	job.AttachBufferKey(docKey)
	s.buffers.Delete(inputKey)

	job.SetMetadataValue("scene_count", len(doc.Scenes))
	job.SetMetadataValue("title", doc.Title)
	job.SetMetadataValue("parse_confidence", doc.OverallConfidence)
	if len(doc.Warnings) > 0 {
		job.SetMetadataValue("parse_warnings", doc.Warnings)
	}

	s.logger.Info("script parsed",
		logging.String(logging.FieldJobID, job.JobID),
		logging.String("format", string(format)),
		logging.Int("scenes", len(doc.Scenes)),
		logging.Float64("confidence", doc.OverallConfidence))
	return nil
}

func (s *Stage) parsePDF(ctx context.Context, data []byte) (*screenplay.Document, error) {
	text, warnings, err := pdfscript.Extract(data, s.cfg.Parsing.PDFMaxPages)
	if err != nil {
		return nil, err
	}
	return s.structurer.Structure(ctx, text, warnings)
}

// HealthCheck reports stage readiness.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.buffers == nil {
		return stage.Unhealthy("parsing", "staging buffer unavailable")
	}
	return stage.Healthy("parsing")
}
