package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kabidey/privity-sub003/internal/reconcile"
	"github.com/kabidey/privity-sub003/pkg/logger"
)

func TestReconcileSweepJobRunsSweep(t *testing.T) {
	svc := &fakeReconcileService{report: &reconcile.Report{Checked: 5, Corrected: 2}}
	job := newReconcileSweepJob(t, svc, 24*time.Hour, 50)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if svc.calls != 1 {
		t.Fatalf("expected one sweep, got %d", svc.calls)
	}
	if svc.lastWindow != 24*time.Hour {
		t.Fatalf("expected window 24h, got %s", svc.lastWindow)
	}
	if svc.lastBatch != 50 {
		t.Fatalf("expected batch 50, got %d", svc.lastBatch)
	}
}

func TestReconcileSweepJobDefaults(t *testing.T) {
	svc := &fakeReconcileService{report: &reconcile.Report{}}
	job := newReconcileSweepJob(t, svc, 0, 0)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if svc.lastWindow != defaultSweepWindowHours*time.Hour {
		t.Fatalf("expected default window, got %s", svc.lastWindow)
	}
	if svc.lastBatch != defaultSweepBatch {
		t.Fatalf("expected default batch, got %d", svc.lastBatch)
	}
}

func TestReconcileSweepJobPropagatesError(t *testing.T) {
	svc := &fakeReconcileService{
		report: &reconcile.Report{Checked: 3, Corrected: 1},
		err:    errors.New("one booking stuck"),
	}
	job := newReconcileSweepJob(t, svc, time.Hour, 10)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newReconcileSweepJob(t *testing.T, svc reconcile.Service, window time.Duration, batch int) Job {
	t.Helper()
	job, err := NewReconcileSweepJob(ReconcileSweepJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Reconcile: svc,
		Window:    window,
		Batch:     batch,
	})
	if err != nil {
		t.Fatalf("NewReconcileSweepJob: %v", err)
	}
	if job.Name() != "booking-reconcile-sweep" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	return job
}

type fakeReconcileService struct {
	report     *reconcile.Report
	err        error
	calls      int
	lastWindow time.Duration
	lastBatch  int
}

func (f *fakeReconcileService) RefreshStatus(ctx context.Context, id uuid.UUID) ([]string, error) {
	return nil, nil
}

func (f *fakeReconcileService) Sweep(ctx context.Context, window time.Duration, batch int) (*reconcile.Report, error) {
	f.calls++
	f.lastWindow = window
	f.lastBatch = batch
	return f.report, f.err
}
