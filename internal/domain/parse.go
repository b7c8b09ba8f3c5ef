package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// collectionDateRe matches the collection date attribute, e.g.
	// `/collection date="2020-03-15"` -> "2020-03-15".
	collectionDateRe = regexp.MustCompile(`collection date="(.+)"`)

	// geoLocationRe matches the geographic location attribute, e.g.
	// `/geographic location="USA:California"` -> "USA:California".
	geoLocationRe = regexp.MustCompile(`geographic location="(.+)"`)

	// accessionRe matches the identifiers trailer, e.g.
	// "Accession: SAMN12345678	ID: 12345678" -> "SAMN12345678".
	accessionRe = regexp.MustCompile(`Accession:\s*(\S+)\s+ID:\s*\S+`)
)

// Collection years outside this range are rejected.
const (
	minYear = 1
	maxYear = 9999
)

// missingDateValues are the INSDC sentinels for an unavailable collection date.
var missingDateValues = map[string]bool{
	"missing":        true,
	"unknown":        true,
	"not applicable": true,
}

// SplitBlocks splits the contents of a raw BioSample file into blocks on
// blank lines. Blocks that contain only whitespace are dropped.
func SplitBlocks(content string) []BiosampleBlock {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	parts := strings.Split(content, "\n\n")

	blocks := make([]BiosampleBlock, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		blocks = append(blocks, BiosampleBlock(p))
	}
	return blocks
}

// ParseBiosample extracts the collection date, geographic location and
// accession from a block. It returns a RejectionError when a field is absent
// or the date is not a complete calendar date.
func ParseBiosample(block BiosampleBlock) (ParsedBiosample, error) {
	text := string(block)

	dateMatch := collectionDateRe.FindStringSubmatch(text)
	locMatch := geoLocationRe.FindStringSubmatch(text)
	accMatch := accessionRe.FindStringSubmatch(text)

	switch {
	case dateMatch == nil:
		return ParsedBiosample{}, reject(RejectMissingField, "collection date")
	case locMatch == nil:
		return ParsedBiosample{}, reject(RejectMissingField, "geographic location")
	case accMatch == nil:
		return ParsedBiosample{}, reject(RejectMissingField, "accession")
	}

	rawDate := dateMatch[1]
	date, err := parseCollectionDate(rawDate)
	if err != nil {
		return ParsedBiosample{}, err
	}

	return ParsedBiosample{
		Accession:      strings.TrimSpace(accMatch[1]),
		CollectionDate: rawDate,
		RawLocation:    locMatch[1],
		Date:           date,
	}, nil
}

// parseCollectionDate accepts exactly "<year>-<month>-<day>" with integer
// parts that form a real calendar date.
func parseCollectionDate(value string) (time.Time, error) {
	if missingDateValues[strings.ToLower(strings.TrimSpace(value))] {
		return time.Time{}, reject(RejectInvalidDate, "%q", value)
	}
	if !strings.Contains(value, "-") {
		return time.Time{}, reject(RejectInvalidDate, "%q has no day or month", value)
	}

	parts := strings.Split(value, "-")
	if len(parts) != 3 {
		return time.Time{}, reject(RejectInvalidDate, "%q is not year-month-day", value)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, reject(RejectInvalidDate, "%q: %q is not a number", value, p)
		}
		nums[i] = n
	}

	year, month, day := nums[0], time.Month(nums[1]), nums[2]
	if year < minYear || year > maxYear || month < time.January || month > time.December || day < 1 {
		return time.Time{}, reject(RejectInvalidDate, "%q is out of range", value)
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); reject instead.
	if t.Month() != month || t.Day() != day {
		return time.Time{}, reject(RejectInvalidDate, "%q is not a calendar date", value)
	}
	return t, nil
}
