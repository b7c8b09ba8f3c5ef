package pipeline

import (
	"context"

	"github.com/couchcryptid/agent-precip-etl/internal/domain"
)

// BiosampleTransformer implements Transformer: parse the block, resolve its
// location, then look up precipitation at the nearest station.
type BiosampleTransformer struct {
	tables   domain.LookupTables
	stations domain.StationFinder
	climate  domain.ClimateSource
}

// NewTransformer creates a BiosampleTransformer. The lookup tables are shared
// read-only across workers.
func NewTransformer(tables domain.LookupTables, stations domain.StationFinder, climate domain.ClimateSource) *BiosampleTransformer {
	return &BiosampleTransformer{
		tables:   tables,
		stations: stations,
		climate:  climate,
	}
}

func (t *BiosampleTransformer) Transform(ctx context.Context, agent string, block domain.BiosampleBlock) (domain.OutputRow, error) {
	parsed, err := domain.ParseBiosample(block)
	if err != nil {
		return domain.OutputRow{}, err
	}

	loc, err := domain.ResolveLocation(parsed.RawLocation, t.tables)
	if err != nil {
		return domain.OutputRow{}, err
	}

	prcp, err := domain.LookupPrecipitation(ctx, loc, parsed.Date, t.stations, t.climate)
	if err != nil {
		return domain.OutputRow{}, err
	}

	return domain.OutputRow{
		Biosample:     parsed.Accession,
		Agent:         agent,
		Date:          parsed.CollectionDate,
		Country:       loc.CountryCode,
		Region:        loc.Region(),
		Precipitation: prcp,
	}, nil
}
