package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/kabidey/privity-sub003/internal/reconcile"
	"github.com/kabidey/privity-sub003/pkg/logger"
)

const (
	defaultSweepWindowHours = 72
	defaultSweepBatch       = 200
)

// ReconcileSweepJobParams configures the scheduled booking reconciliation.
type ReconcileSweepJobParams struct {
	Logger    *logger.Logger
	Reconcile reconcile.Service
	Window    time.Duration
	Batch     int
}

// NewReconcileSweepJob constructs the booking reconciliation cron job.
func NewReconcileSweepJob(params ReconcileSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconcile == nil {
		return nil, fmt.Errorf("reconcile service required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultSweepWindowHours * time.Hour
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &reconcileSweepJob{
		logg:      params.Logger,
		reconcile: params.Reconcile,
		window:    window,
		batch:     batch,
	}, nil
}

type reconcileSweepJob struct {
	logg      *logger.Logger
	reconcile reconcile.Service
	window    time.Duration
	batch     int
}

func (j *reconcileSweepJob) Name() string { return "booking-reconcile-sweep" }

func (j *reconcileSweepJob) Run(ctx context.Context) error {
	report, err := j.reconcile.Sweep(ctx, j.window, j.batch)
	if report != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"window":    j.window.String(),
			"checked":   report.Checked,
			"corrected": report.Corrected,
		})
		j.logg.Info(logCtx, "booking reconciliation sweep complete")
	}
	if err != nil {
		return fmt.Errorf("booking reconcile sweep: %w", err)
	}
	return nil
}
