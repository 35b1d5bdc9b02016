package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/centerattend/internal/domain"
	"github.com/yourorg/centerattend/internal/observability/metrics"
)

// SummaryWorker periodically recomputes today's per-center present counts
// and exports them as gauges. Centers that stop reporting keep their last
// value until the next tick resets them.
type SummaryWorker struct {
	records  domain.AttendanceRepository
	centers  domain.CenterRepository
	logger   *slog.Logger
	interval time.Duration
}

// NewSummaryWorker creates a new summary worker
func NewSummaryWorker(
	records domain.AttendanceRepository,
	centers domain.CenterRepository,
	logger *slog.Logger,
	interval time.Duration,
) *SummaryWorker {
	if logger == nil {
		logger = slog.Default()
	}

	return &SummaryWorker{
		records:  records,
		centers:  centers,
		logger:   logger,
		interval: interval,
	}
}

// Start begins the summary loop. It runs one pass immediately so gauges are
// populated right after boot, then ticks until the context is cancelled.
func (w *SummaryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("summary worker started", slog.Duration("interval", w.interval))

	w.recompute()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("summary worker stopped")
			return
		case <-ticker.C:
			w.recompute()
		}
	}
}

func (w *SummaryWorker) recompute() {
	today := domain.DateOnly(time.Now())

	counts, err := w.records.CountPresentByCenter(today)
	if err != nil {
		w.logger.Error("failed to count present subjects",
			slog.String("error", err.Error()),
		)
		return
	}

	centers, err := w.centers.List()
	if err != nil {
		w.logger.Error("failed to list centers",
			slog.String("error", err.Error()),
		)
		return
	}

	total := 0
	for _, center := range centers {
		count := counts[center.ID]
		metrics.SetPresentToday(center.Code, count)
		total += count
	}

	w.logger.Debug("summary recomputed",
		slog.String("date", today.Format(time.DateOnly)),
		slog.Int("centers", len(centers)),
		slog.Int("present_total", total),
	)
}
