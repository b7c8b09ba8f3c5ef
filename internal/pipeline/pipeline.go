package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/agent-precip-etl/internal/domain"
	"github.com/couchcryptid/agent-precip-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// BlockSource reads the biosample blocks of one agent's raw file. A missing
// file is reported with an error wrapping fs.ErrNotExist.
type BlockSource interface {
	ReadBlocks(ctx context.Context, agent string) ([]domain.BiosampleBlock, error)
}

// Transformer converts one biosample block into an output row, or reports why
// it cannot.
type Transformer interface {
	Transform(ctx context.Context, agent string, block domain.BiosampleBlock) (domain.OutputRow, error)
}

// TableLoader writes a finished table to its destination.
type TableLoader interface {
	LoadTable(ctx context.Context, table domain.OutputTable) error
}

// Pipeline drives one batch run: for each agent it reads the raw file,
// aggregates rows, and hands the table to every loader in order.
type Pipeline struct {
	source     BlockSource
	aggregator *Aggregator
	loaders    []TableLoader
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool

	mu     sync.Mutex
	status domain.RunStatus
}

// New creates a Pipeline with the given stages and observability.
func New(source BlockSource, t Transformer, loaders []TableLoader, workers int, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:     source,
		aggregator: NewAggregator(t, workers, logger, metrics),
		loaders:    loaders,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once at least one table has been loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not loaded any tables yet")
	}
	return nil
}

// Status returns a snapshot of the current run.
func (p *Pipeline) Status() domain.RunStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Run processes every agent in order. A missing or unreadable raw file yields
// an empty table; a loader failure or cancellation aborts the run.
func (p *Pipeline) Run(ctx context.Context, agents []string) error {
	p.logger.Info("pipeline started", "agents", len(agents), "workers", p.aggregator.workers)
	p.metrics.RunActive.Set(1)
	defer p.metrics.RunActive.Set(0)

	start := p.clock.Now()
	p.updateStatus(func(s *domain.RunStatus) {
		*s = domain.RunStatus{StartedAt: start, FilesTotal: len(agents)}
	})

	for _, agent := range agents {
		if err := ctx.Err(); err != nil {
			p.logger.Info("pipeline stopping", "reason", err)
			return err
		}
		if _, err := p.ProcessFile(ctx, agent); err != nil {
			return err
		}
	}

	end := p.clock.Now()
	p.updateStatus(func(s *domain.RunStatus) {
		s.FinishedAt = end
		s.CurrentAgent = ""
	})
	st := p.Status()
	p.logger.Info("pipeline finished",
		"files", st.FilesDone,
		"missing", st.FilesMissing,
		"rows", st.RowsEmitted,
		"dropped", st.BlocksDropped,
		"lookup_errors", st.LookupErrors,
		"duration", end.Sub(start),
	)
	return nil
}

// ProcessFile builds and loads the table for one agent.
func (p *Pipeline) ProcessFile(ctx context.Context, agent string) (domain.OutputTable, error) {
	start := p.clock.Now()
	p.updateStatus(func(s *domain.RunStatus) { s.CurrentAgent = agent })

	outcome := "loaded"
	blocks, err := p.source.ReadBlocks(ctx, agent)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			outcome = "missing"
			p.logger.Warn("raw file missing, writing empty table", "agent", agent)
		} else {
			outcome = "unreadable"
			p.logger.Error("raw file unreadable, writing empty table", "agent", agent, "error", err)
		}
		blocks = nil
	}

	table, stats := p.aggregator.Aggregate(ctx, agent, blocks)
	if err := ctx.Err(); err != nil {
		return domain.OutputTable{}, err
	}

	p.logger.Info("table built",
		"agent", agent,
		"blocks", stats.Blocks,
		"rows", stats.Rows,
		"dropped", stats.Dropped,
		"lookup_errors", stats.LookupErrors,
	)
	p.metrics.TableRows.Observe(float64(len(table.Rows)))

	for _, l := range p.loaders {
		if err := l.LoadTable(ctx, table); err != nil {
			return domain.OutputTable{}, fmt.Errorf("load table %s: %w", agent, err)
		}
	}

	p.metrics.FilesProcessed.WithLabelValues(outcome).Inc()
	p.metrics.FileDuration.Observe(p.clock.Since(start).Seconds())
	p.ready.Store(true)
	p.updateStatus(func(s *domain.RunStatus) {
		s.FilesDone++
		switch outcome {
		case "missing":
			s.FilesMissing++
		case "unreadable":
			s.FilesUnreadable++
		}
		s.RowsEmitted += stats.Rows
		s.BlocksDropped += stats.Dropped
		s.LookupErrors += stats.LookupErrors
	})

	return table, nil
}

func (p *Pipeline) updateStatus(fn func(*domain.RunStatus)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.status)
}
