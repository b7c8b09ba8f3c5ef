package pipeline_test

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/agent-precip-etl/internal/domain"
	"github.com/couchcryptid/agent-precip-etl/internal/observability"
)

// --- mocks ---

type mockStations struct {
	mu       sync.Mutex
	stations map[string]domain.Station // keyed by StationQuery.String()
	err      error
	queries  []string
}

func (m *mockStations) FindStation(_ context.Context, q domain.StationQuery) (domain.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q.String())
	if m.err != nil {
		return domain.Station{}, m.err
	}
	return m.stations[q.String()], nil
}

func (m *mockStations) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

type mockClimate struct {
	values map[domain.Point]float64
	err    error
}

func (m *mockClimate) MonthlyPrecipitation(_ context.Context, p domain.Point, _, _ time.Time) (*float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.values[p]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

type mockSource struct {
	blocks map[string][]domain.BiosampleBlock
	errs   map[string]error
}

func (m *mockSource) ReadBlocks(_ context.Context, agent string) ([]domain.BiosampleBlock, error) {
	if err := m.errs[agent]; err != nil {
		return nil, err
	}
	if b, ok := m.blocks[agent]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("read raw file: open %s.tsv: %w", agent, fs.ErrNotExist)
}

type mockLoader struct {
	name   string
	err    error
	tables []domain.OutputTable
	order  *[]string
}

func (m *mockLoader) LoadTable(_ context.Context, table domain.OutputTable) error {
	if m.order != nil {
		*m.order = append(*m.order, m.name+":"+table.Agent)
	}
	if m.err != nil {
		return m.err
	}
	m.tables = append(m.tables, table)
	return nil
}

// --- fixtures ---

var (
	losAngeles = domain.Station{ID: "72295", Country: "US", Region: "CA", Point: domain.Point{Lat: 34.0, Lon: -118.2}}
	beijing    = domain.Station{ID: "54511", Country: "CN", Point: domain.Point{Lat: 39.93, Lon: 116.28}}
	toronto    = domain.Station{ID: "71508", Country: "CA", Region: "ON", Point: domain.Point{Lat: 43.67, Lon: -79.4}}
)

func testTables() domain.LookupTables {
	return domain.NewLookupTables(
		map[string]string{"CHINA": "CN", "CANADA": "CA"},
		map[string]string{"CALIFORNIA": "CA", "ONTARIO": "ON"},
	)
}

func testStations() *mockStations {
	return &mockStations{stations: map[string]domain.Station{
		"US/CA": losAngeles,
		"US":    losAngeles,
		"CN":    beijing,
		"CA/ON": toronto,
	}}
}

func testClimate() *mockClimate {
	return &mockClimate{values: map[domain.Point]float64{
		losAngeles.Point: 12.5,
		beijing.Point:    3.0,
	}}
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// block renders a BioSample record the way NCBI's text export does. Empty
// arguments omit the corresponding line.
func block(date, location, accession string) domain.BiosampleBlock {
	var b strings.Builder
	b.WriteString("1: Pathogen: clinical or host-associated sample from Bacillus anthracis\n")
	b.WriteString("Organism: Bacillus anthracis\n")
	b.WriteString("Attributes:\n")
	b.WriteString("    /strain=\"Ames\"\n")
	if date != "" {
		fmt.Fprintf(&b, "    /collection date=\"%s\"\n", date)
	}
	if location != "" {
		fmt.Fprintf(&b, "    /geographic location=\"%s\"\n", location)
	}
	b.WriteString("    /host=\"Homo sapiens\"\n")
	if accession != "" {
		fmt.Fprintf(&b, "Accession: %s  ID: 999\n", accession)
	}
	return domain.BiosampleBlock(b.String())
}
