package pipeline_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/agent-precip-etl/internal/domain"
	"github.com/couchcryptid/agent-precip-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sortRows = cmpopts.SortSlices(func(a, b domain.OutputRow) bool { return a.Biosample < b.Biosample })

// failingStations fails for one country and delegates the rest.
type failingStations struct {
	inner   *mockStations
	country string
	err     error
}

func (f *failingStations) FindStation(ctx context.Context, q domain.StationQuery) (domain.Station, error) {
	if q.Country == f.country {
		return domain.Station{}, f.err
	}
	return f.inner.FindStation(ctx, q)
}

func mixedBlocks() []domain.BiosampleBlock {
	return []domain.BiosampleBlock{
		block("2020-03-15", "USA:California, Los Angeles", "SAMN12345678"),
		block("2019-06-01", "China: Beijing", "SAMN00000002"),
		block("", "China: Beijing", "SAMN00000003"),                        // missing date
		block("not applicable", "USA:California", "SAMN00000004"),          // sentinel
		block("2019-06-01", "Atlantis", "SAMN00000005"),                    // unknown country
		block("2019-06-01", "Canada: Ontario", "SAMN00000006"),             // no observation
		block("2019-06-01", "Canada: Quebec", "SAMN00000007"),              // no station for CA
		block("2017-02-30", "USA:California, Los Angeles", "SAMN00000008"), // not a calendar date
	}
}

func TestAggregator_MixedBlocks(t *testing.T) {
	metrics := newTestMetrics()
	agg := pipeline.NewAggregator(pipeline.NewTransformer(testTables(), testStations(), testClimate()), 4, discardLogger(), metrics)

	table, stats := agg.Aggregate(context.Background(), "Bacillus_anthracis", mixedBlocks())

	want := []domain.OutputRow{
		{Biosample: "SAMN12345678", Agent: "Bacillus_anthracis", Date: "2020-03-15", Country: "US", Region: "CA", Precipitation: 12.5},
		{Biosample: "SAMN00000002", Agent: "Bacillus_anthracis", Date: "2019-06-01", Country: "CN", Region: "", Precipitation: 3.0},
	}
	if diff := cmp.Diff(want, table.Rows, sortRows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Bacillus_anthracis", table.Agent)
	assert.Equal(t, pipeline.AggregateStats{Blocks: 8, Rows: 2, Dropped: 6}, stats)

	assert.InDelta(t, 8, testutil.ToFloat64(metrics.BlocksProcessed), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RowsEmitted), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.BlocksDropped.WithLabelValues("missing_field")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.BlocksDropped.WithLabelValues("invalid_date")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.BlocksDropped.WithLabelValues("unknown_country")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.BlocksDropped.WithLabelValues("no_station")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.BlocksDropped.WithLabelValues("no_observation")), 0)
}

func TestAggregator_LookupErrorsCountedSeparately(t *testing.T) {
	metrics := newTestMetrics()
	stations := &failingStations{inner: testStations(), country: "CN", err: errors.New("dial tcp: i/o timeout")}
	agg := pipeline.NewAggregator(pipeline.NewTransformer(testTables(), stations, testClimate()), 2, discardLogger(), metrics)

	table, stats := agg.Aggregate(context.Background(), "Bacillus_anthracis", mixedBlocks())

	require.Len(t, table.Rows, 1)
	assert.Equal(t, "SAMN12345678", table.Rows[0].Biosample)
	assert.Equal(t, 1, stats.LookupErrors)
	assert.Equal(t, 6, stats.Dropped)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.LookupErrors.WithLabelValues(domain.ServiceStation)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.LookupErrors.WithLabelValues(domain.ServiceClimate)), 0)
}

func TestAggregator_EmptyInput(t *testing.T) {
	agg := pipeline.NewAggregator(pipeline.NewTransformer(testTables(), testStations(), testClimate()), 4, discardLogger(), newTestMetrics())

	table, stats := agg.Aggregate(context.Background(), "Ricin", nil)
	assert.Equal(t, "Ricin", table.Agent)
	assert.Empty(t, table.Rows)
	assert.Zero(t, stats)
}

func TestAggregator_Idempotent(t *testing.T) {
	agg := pipeline.NewAggregator(pipeline.NewTransformer(testTables(), testStations(), testClimate()), 8, discardLogger(), newTestMetrics())
	blocks := mixedBlocks()

	first, _ := agg.Aggregate(context.Background(), "Bacillus_anthracis", blocks)
	second, _ := agg.Aggregate(context.Background(), "Bacillus_anthracis", blocks)

	if diff := cmp.Diff(first.Rows, second.Rows, sortRows); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestAggregator_OneRowPerValidBlock(t *testing.T) {
	blocks := make([]domain.BiosampleBlock, 0, 200)
	for i := range 200 {
		blocks = append(blocks, block("2019-06-01", "China: Beijing", "SAMN"+strconv.Itoa(100000+i)))
	}
	agg := pipeline.NewAggregator(pipeline.NewTransformer(testTables(), testStations(), testClimate()), 16, discardLogger(), newTestMetrics())

	table, stats := agg.Aggregate(context.Background(), "Yersinia_pestis", blocks)
	assert.Len(t, table.Rows, 200)
	assert.Equal(t, 200, stats.Rows)
}

// gatedTransformer tracks how many transforms run at once.
type gatedTransformer struct {
	active  atomic.Int32
	maxSeen atomic.Int32
	delay   time.Duration
}

func (g *gatedTransformer) Transform(_ context.Context, agent string, _ domain.BiosampleBlock) (domain.OutputRow, error) {
	n := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		seen := g.maxSeen.Load()
		if n <= seen || g.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(g.delay)
	return domain.OutputRow{Agent: agent}, nil
}

func TestAggregator_BoundedConcurrency(t *testing.T) {
	tfm := &gatedTransformer{delay: 5 * time.Millisecond}
	agg := pipeline.NewAggregator(tfm, 3, discardLogger(), newTestMetrics())

	blocks := make([]domain.BiosampleBlock, 30)
	table, _ := agg.Aggregate(context.Background(), "Ricin", blocks)

	assert.Len(t, table.Rows, 30)
	assert.LessOrEqual(t, tfm.maxSeen.Load(), int32(3))
	assert.Zero(t, tfm.active.Load(), "all workers finished before return")
}

// blockingTransformer waits for release or cancellation.
type blockingTransformer struct {
	started chan struct{}
	once    sync.Once
	calls   atomic.Int32
}

func (b *blockingTransformer) Transform(ctx context.Context, _ string, _ domain.BiosampleBlock) (domain.OutputRow, error) {
	b.calls.Add(1)
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return domain.OutputRow{}, &domain.LookupError{Service: domain.ServiceClimate, Err: ctx.Err()}
}

func TestAggregator_CancelStopsDispatch(t *testing.T) {
	tfm := &blockingTransformer{started: make(chan struct{})}
	agg := pipeline.NewAggregator(tfm, 1, discardLogger(), newTestMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-tfm.started
		cancel()
	}()

	table, stats := agg.Aggregate(ctx, "Ricin", make([]domain.BiosampleBlock, 50))

	assert.Empty(t, table.Rows)
	assert.Less(t, int(tfm.calls.Load()), 50)
	assert.Equal(t, int(tfm.calls.Load()), stats.LookupErrors)
}
