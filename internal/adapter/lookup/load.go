// Package lookup loads the static country and region dictionaries.
package lookup

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/couchcryptid/agent-precip-etl/internal/domain"
)

// LoadTables reads two JSON objects mapping names to codes and builds the
// lookup tables used by location resolution.
func LoadTables(countriesPath, regionsPath string) (domain.LookupTables, error) {
	countries, err := LoadDictionary(countriesPath)
	if err != nil {
		return domain.LookupTables{}, fmt.Errorf("load countries: %w", err)
	}
	regions, err := LoadDictionary(regionsPath)
	if err != nil {
		return domain.LookupTables{}, fmt.Errorf("load regions: %w", err)
	}
	return domain.NewLookupTables(countries, regions), nil
}

// LoadDictionary reads one name->code JSON object. An empty object is an error.
func LoadDictionary(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var dict map[string]string
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(dict) == 0 {
		return nil, fmt.Errorf("%s: dictionary is empty", path)
	}
	return dict, nil
}
