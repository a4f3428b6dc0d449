package ingestion

import (
	_ "embed"

	"github.com/goccy/go-json"

	"fe-catalog/internal/errors"
)

//go:embed data/regions.json
var regionsJSON []byte

// RegionDefinition is the static description of a region code
type RegionDefinition struct {
	Name         string  `json:"name"`
	SubRegion    string  `json:"subRegion"`
	CountryA2    string  `json:"countryA2"`
	ContinentM49 int     `json:"continentM49"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

// LoadRegions returns the bundled region table keyed by region code
func LoadRegions() (map[string]RegionDefinition, error) {
	var table map[string]RegionDefinition
	if err := json.Unmarshal(regionsJSON, &table); err != nil {
		return nil, errors.Parsing("invalid bundled region table", err)
	}
	return table, nil
}
