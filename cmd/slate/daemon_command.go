package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"slate/internal/config"
	"slate/internal/llm"
	"slate/internal/logging"
	"slate/internal/queue"
	"slate/internal/securebuf"
	"slate/internal/workflow"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the processing daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runDaemon(cmd.Context(), cfg)
		},
	}
}

func runDaemon(ctx context.Context, cfg *config.Config) error {
	lockPath := filepath.Join(cfg.Paths.DataDir, "slate.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return errors.New("another slate daemon is already running")
	}
	defer lock.Unlock()

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "slate.log")},
	})
	if err != nil {
		return err
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	secret := cfg.Buffer.Secret
	if secret == "" {
		secret = randomSecret()
	}
	buffers, err := securebuf.New(
		secret,
		cfg.Buffer.MaxBytes,
		time.Duration(cfg.Buffer.TTLSeconds)*time.Second,
	)
	if err != nil {
		return err
	}

	provider := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})

	manager, err := workflow.NewManager(cfg, store, buffers, provider, logger)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(runCtx); err != nil {
		return err
	}

	go buffers.RunJanitor(runCtx, time.Minute)

	retention := time.Duration(cfg.Delivery.ReportRetentionHours) * time.Hour
	go runRetentionSweeps(runCtx, store, logger, retention)

	logger.Info("slate daemon running",
		logging.String("data_dir", cfg.Paths.DataDir),
		logging.Int("workers", cfg.Workflow.Workers))

	<-runCtx.Done()
	manager.Stop()
	logger.Info("slate daemon stopped")
	return nil
}

// runRetentionSweeps periodically removes retrieved reports, reports past
// the retention window, and long-finished jobs.
func runRetentionSweeps(ctx context.Context, store *queue.Store, logger *slog.Logger, retention time.Duration) {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if swept, err := store.SweepReports(ctx, retention); err != nil {
			logger.Warn("report sweep failed", logging.Error(err))
		} else if swept > 0 {
			logger.Info("swept reports", logging.Int64("reports", swept))
		}
		if cleared, err := store.ClearFinished(ctx, retention); err != nil {
			logger.Warn("finished job sweep failed", logging.Error(err))
		} else if cleared > 0 {
			logger.Info("cleared finished jobs", logging.Int64("jobs", cleared))
		}
	}
}

// randomSecret produces a per-process buffer key. Staged content then dies
// with the process, which is the intended bound for a memory-only buffer.
func randomSecret() string {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "slate-fallback-secret"
	}
	return hex.EncodeToString(raw)
}
