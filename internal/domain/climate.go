package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// StationQuery scopes a station search to a country and, optionally, a region.
type StationQuery struct {
	Country string
	Region  *string
}

// String renders the query as "US" or "US/CA".
func (q StationQuery) String() string {
	if q.Region == nil {
		return q.Country
	}
	return q.Country + "/" + *q.Region
}

// StationFinder resolves a country/region scope to a weather station.
type StationFinder interface {
	// FindStation returns the best-ranked station in scope. A zero Station
	// (empty ID) with a nil error means there is none.
	FindStation(ctx context.Context, q StationQuery) (Station, error)
}

// ClimateSource provides monthly climate aggregates for a point.
type ClimateSource interface {
	// MonthlyPrecipitation returns total precipitation in mm for the month
	// covering start..end at the point. A nil value with a nil error means
	// the service has no observation for that period.
	MonthlyPrecipitation(ctx context.Context, p Point, start, end time.Time) (*float64, error)
}

// External services consulted during enrichment.
const (
	ServiceStation = "station"
	ServiceClimate = "climate"
)

// LookupError reports that an external service failed, as opposed to
// answering that it has no data.
type LookupError struct {
	Service string
	Err     error
}

func (e *LookupError) Error() string { return e.Err.Error() }

func (e *LookupError) Unwrap() error { return e.Err }

// AsLookupError reports whether err is (or wraps) a LookupError and returns
// the failing service.
func AsLookupError(err error) (string, bool) {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Service, true
	}
	return "", false
}

// LookupPrecipitation finds the station for a resolved location and returns
// the monthly precipitation at that station for the given date. A location
// with no station or a month with no observation yields a RejectionError;
// service failures yield a LookupError.
func LookupPrecipitation(ctx context.Context, loc ResolvedLocation, date time.Time, stations StationFinder, climate ClimateSource) (float64, error) {
	q := StationQuery{Country: loc.CountryCode, Region: loc.RegionCode}

	station, err := stations.FindStation(ctx, q)
	if err != nil {
		return 0, &LookupError{Service: ServiceStation, Err: fmt.Errorf("find station %s: %w", q, err)}
	}
	if station.ID == "" {
		return 0, reject(RejectNoStation, "%s", q)
	}

	prcp, err := climate.MonthlyPrecipitation(ctx, station.Point, date, date)
	if err != nil {
		return 0, &LookupError{Service: ServiceClimate, Err: fmt.Errorf("monthly precipitation at %s: %w", station.ID, err)}
	}
	if prcp == nil {
		return 0, reject(RejectNoObservation, "station %s %s", station.ID, date.Format("2006-01"))
	}
	return *prcp, nil
}
