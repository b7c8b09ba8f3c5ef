package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/couchcryptid/agent-precip-etl/internal/domain"
	"github.com/couchcryptid/agent-precip-etl/internal/observability"
	"golang.org/x/sync/errgroup"
)

// AggregateStats counts the outcomes of one Aggregate call.
type AggregateStats struct {
	Blocks       int
	Rows         int
	Dropped      int
	LookupErrors int
}

// Aggregator transforms the blocks of one file concurrently and collects the
// resulting rows.
type Aggregator struct {
	transformer Transformer
	workers     int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewAggregator creates an Aggregator running at most workers transforms at once.
func NewAggregator(t Transformer, workers int, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{
		transformer: t,
		workers:     workers,
		logger:      logger,
		metrics:     metrics,
	}
}

// Aggregate runs the transformer over every block and returns the table of
// successful rows. It returns only after every dispatched block has finished.
// Row order is unspecified. Cancelling ctx stops dispatching further blocks.
func (a *Aggregator) Aggregate(ctx context.Context, agent string, blocks []domain.BiosampleBlock) (domain.OutputTable, AggregateStats) {
	var (
		mu    sync.Mutex
		rows  = make([]domain.OutputRow, 0, len(blocks))
		stats AggregateStats
		g     errgroup.Group
	)
	g.SetLimit(a.workers)

	for i, block := range blocks {
		if ctx.Err() != nil {
			break
		}
		stats.Blocks++
		a.metrics.BlocksProcessed.Inc()

		g.Go(func() error {
			row, err := a.transformer.Transform(ctx, agent, block)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.recordFailure(ctx, agent, i, err, &stats)
				return nil
			}
			rows = append(rows, row)
			stats.Rows++
			a.metrics.RowsEmitted.Inc()
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors

	return domain.OutputTable{Agent: agent, Rows: rows}, stats
}

// recordFailure classifies a dropped block. Callers hold the sink lock.
func (a *Aggregator) recordFailure(ctx context.Context, agent string, index int, err error, stats *AggregateStats) {
	if reason, ok := domain.AsRejection(err); ok {
		stats.Dropped++
		a.metrics.BlocksDropped.WithLabelValues(string(reason)).Inc()
		a.logger.Debug("biosample dropped", "agent", agent, "block", index, "reason", reason, "detail", err)
		return
	}

	service, ok := domain.AsLookupError(err)
	if !ok {
		service = "unknown"
	}
	stats.LookupErrors++
	a.metrics.LookupErrors.WithLabelValues(service).Inc()
	if ctx.Err() != nil {
		return
	}
	a.logger.Warn("lookup failed, skipping biosample", "agent", agent, "block", index, "service", service, "error", err)
}
