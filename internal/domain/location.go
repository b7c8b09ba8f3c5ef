package domain

import "strings"

// usaCountryCode is used for the literal "USA", which the country table
// spells out in full.
const usaCountryCode = "US"

// LookupTables maps country and region names to codes. It is immutable after
// construction and safe for concurrent use.
type LookupTables struct {
	countries map[string]string
	regions   map[string]string
}

// NewLookupTables copies the given name->code maps, normalizing names to
// upper case.
func NewLookupTables(countries, regions map[string]string) LookupTables {
	return LookupTables{
		countries: upperKeys(countries),
		regions:   upperKeys(regions),
	}
}

func upperKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out
}

// CountryCode looks up a country name.
func (t LookupTables) CountryCode(name string) (string, bool) {
	code, ok := t.countries[strings.ToUpper(name)]
	return code, ok && code != ""
}

// RegionCode looks up a region name.
func (t LookupTables) RegionCode(name string) (string, bool) {
	code, ok := t.regions[strings.ToUpper(name)]
	return code, ok && code != ""
}

// Len returns the number of country and region entries.
func (t LookupTables) Len() (countries, regions int) {
	return len(t.countries), len(t.regions)
}

// SplitLocation splits "<country>:<region>, <locality>..." into country and
// region. Region is "" when the location has no colon.
func SplitLocation(raw string) (country, region string) {
	country, rest, found := strings.Cut(raw, ":")
	if !found {
		return strings.TrimSpace(raw), ""
	}
	region, _, _ = strings.Cut(rest, ",")
	return strings.TrimSpace(country), strings.TrimSpace(region)
}

// ResolveLocation maps a raw geographic location to country and region codes.
// An unknown country rejects the record; an unknown region only leaves the
// region unset.
func ResolveLocation(raw string, tables LookupTables) (ResolvedLocation, error) {
	country, region := SplitLocation(raw)

	var code string
	if country == "USA" {
		code = usaCountryCode
	} else {
		var ok bool
		code, ok = tables.CountryCode(country)
		if !ok {
			return ResolvedLocation{}, reject(RejectUnknownCountry, "%q", country)
		}
	}

	loc := ResolvedLocation{CountryCode: code}
	if region != "" {
		if rc, ok := tables.RegionCode(region); ok {
			loc.RegionCode = &rc
		}
	}
	return loc, nil
}
