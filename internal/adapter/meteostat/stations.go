package meteostat

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/agent-precip-etl/internal/domain"
	"github.com/couchcryptid/agent-precip-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// failedRefreshInterval is how long a failed download is remembered before
// the list is fetched again.
const failedRefreshInterval = time.Minute

// bulkStation is one entry of the Meteostat bulk station list.
type bulkStation struct {
	ID      string            `json:"id"`
	Name    map[string]string `json:"name"`
	Country string            `json:"country"`
	Region  string            `json:"region"`
	Loc     struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

// StationDirectory implements domain.StationFinder over the Meteostat bulk
// station list. The list is downloaded on first use and refreshed once it is
// older than the configured TTL. After a failed download the directory serves
// the stale list, or the download error when it has none, until
// failedRefreshInterval has passed.
type StationDirectory struct {
	listURL string
	ttl     time.Duration
	clock   clockwork.Clock
	req     *requester
	logger  *slog.Logger

	mu       sync.Mutex
	stations    []domain.Station
	loadedAt    time.Time
	lastFailure time.Time
	lastErr     error
}

// NewStationDirectory creates a directory reading "<bulkURL>/stations/lite.json.gz".
func NewStationDirectory(bulkURL string, ttl, timeout time.Duration, maxRetries int, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *StationDirectory {
	return &StationDirectory{
		listURL: bulkURL + "/stations/lite.json.gz",
		ttl:     ttl,
		clock:   clock,
		req:     newRequester(timeout, maxRetries, metrics, logger),
		logger:  logger,
	}
}

// FindStation returns the first station in directory order whose country
// matches and, when a region is given, whose region matches too. A zero
// Station means no match.
func (d *StationDirectory) FindStation(ctx context.Context, q domain.StationQuery) (domain.Station, error) {
	stations, err := d.load(ctx)
	if err != nil {
		return domain.Station{}, err
	}
	for _, s := range stations {
		if s.Country != q.Country {
			continue
		}
		if q.Region != nil && s.Region != *q.Region {
			continue
		}
		return s, nil
	}
	return domain.Station{}, nil
}

// Len returns the number of stations currently held.
func (d *StationDirectory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.stations)
}

// Refresh forces a download of the station list.
func (d *StationDirectory) Refresh(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refreshLocked(ctx)
}

func (d *StationDirectory) load(ctx context.Context) ([]domain.Station, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stations != nil && d.clock.Since(d.loadedAt) < d.ttl {
		return d.stations, nil
	}
	if d.lastErr != nil && d.clock.Since(d.lastFailure) < failedRefreshInterval {
		if d.stations != nil {
			return d.stations, nil
		}
		return nil, d.lastErr
	}
	if err := d.refreshLocked(ctx); err != nil {
		if ctx.Err() == nil {
			d.lastErr = err
			d.lastFailure = d.clock.Now()
		}
		if d.stations != nil {
			d.logger.Warn("station list refresh failed, using stale copy", "age", d.clock.Since(d.loadedAt), "error", err)
			return d.stations, nil
		}
		return nil, err
	}
	return d.stations, nil
}

func (d *StationDirectory) refreshLocked(ctx context.Context) error {
	body, err := d.req.get(ctx, endpointStations, d.listURL, nil)
	if err != nil {
		return fmt.Errorf("download station list: %w", err)
	}
	stations, err := decodeStations(body)
	if err != nil {
		return fmt.Errorf("decode station list: %w", err)
	}
	d.stations = stations
	d.loadedAt = d.clock.Now()
	d.lastErr = nil
	d.logger.Info("station list loaded", "stations", len(stations))
	return nil
}

// decodeStations accepts the list either gzip-compressed or already
// decompressed by the transport.
func decodeStations(body []byte) ([]domain.Station, error) {
	var r io.Reader = bytes.NewReader(body)
	if len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	var raw []bulkStation
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}

	stations := make([]domain.Station, 0, len(raw))
	for _, b := range raw {
		if b.ID == "" || b.Country == "" {
			continue
		}
		stations = append(stations, domain.Station{
			ID:      b.ID,
			Name:    b.Name["en"],
			Country: b.Country,
			Region:  b.Region,
			Point:   domain.Point{Lat: b.Loc.Latitude, Lon: b.Loc.Longitude},
		})
	}
	return stations, nil
}
