package domain

import "time"

// BiosampleBlock is the raw text of a single BioSample record.
type BiosampleBlock string

// ParsedBiosample holds the fields extracted from one block.
type ParsedBiosample struct {
	Accession      string
	CollectionDate string // as submitted, e.g. "2020-03-15"
	RawLocation    string // e.g. "USA:California, Los Angeles"
	Date           time.Time
}

// ResolvedLocation is a parsed location mapped to lookup codes. RegionCode is
// nil when the location names no region or the region is not in the table.
type ResolvedLocation struct {
	CountryCode string
	RegionCode  *string
}

// Region returns the region code, or "" when there is none.
func (l ResolvedLocation) Region() string {
	if l.RegionCode == nil {
		return ""
	}
	return *l.RegionCode
}

// Point is a WGS-84 latitude/longitude coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Station is a weather observation station from the station directory.
type Station struct {
	ID      string
	Name    string
	Country string
	Region  string
	Point   Point
}

// OutputRow is one enriched biosample. Every field is populated.
type OutputRow struct {
	Biosample     string  `json:"biosample"`
	Agent         string  `json:"agent"`
	Date          string  `json:"date"`
	Country       string  `json:"country"`
	Region        string  `json:"region"`
	Precipitation float64 `json:"precipitation"`
}

// OutputTable is the set of rows produced for one agent. Row order carries
// no meaning.
type OutputTable struct {
	Agent string
	Rows  []OutputRow
}

// Columns is the fixed column order of an exported table.
var Columns = []string{"Biosample", "Agent", "Date", "Country", "region", "Precipitation"}
