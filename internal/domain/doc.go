// Package domain models NCBI BioSample records and their enrichment with
// monthly precipitation from the nearest weather station.
//
// # Data Source
//
// Raw data is the plain-text output of an esearch/efetch query against the
// NCBI BioSample database, one file per select agent. Records are separated
// by a blank line. Each record carries its metadata as indented attribute
// lines of the form /<name>="<value>" plus an identifiers trailer:
//
//	1: Bacillus anthracis strain ...
//	Identifiers: BioSample: SAMN12345678; Sample name: BA-17
//	Organism: Bacillus anthracis
//	Attributes:
//	    /collection date="2020-03-15"
//	    /geographic location="USA:California, Los Angeles"
//	Accession: SAMN12345678	ID: 12345678
//
// # Field Conventions
//
// Collection date:
//
//	ISO-like "YYYY-MM-DD". Submitters also use "YYYY", "YYYY-MM", free text and
//	the INSDC missing-value sentinels "missing", "unknown", "not applicable".
//	Only full three-part dates are usable for a monthly lookup; everything else
//	is rejected.
//
// Geographic location:
//
//	INSDC country vocabulary, optionally followed by a colon and a free-text
//	locality, most specific last omitted: "USA:California, Los Angeles".
//	The first comma segment after the colon is treated as the region.
//	"USA" is the only country spelled differently from the lookup table
//	("United States of America") and is mapped to "US" directly.
//
// Lookup tables:
//
//	Country names map to ISO 3166-1 alpha-2 codes; region names map to the
//	state/province codes used by the station directory. Both are matched on
//	the upper-cased name.
//
// # Rejections
//
// A record that cannot produce a complete row is rejected with a
// [RejectionError] naming the stage. Rejections are routine filtering and
// never abort a file; callers count them and move on. Errors that are not
// rejections come from the station or climate services and mean the lookup
// could not be performed at all.
package domain
