package ingestion

import (
	_ "embed"
	"strings"

	"github.com/goccy/go-json"

	"fe-catalog/internal/errors"
)

//go:embed data/terms.json
var termsJSON []byte

// Term codes produced by the compute expansion
const (
	TermOnDemand        = "on-demand"
	TermOnDemandMonthly = "on-demand-1m"
	TermReserved1y      = "ri-1y"
	TermReserved3y      = "ri-3y"
	TermReserved5y      = "ri-5y"
	TermUpfront1y       = "ri-1y-upfront"
	TermUpfront2y       = "ri-2y-upfront"
	TermUpfront3y       = "ri-3y-upfront"
)

// flexibleMarker flags the terms convertible across families and types
const flexibleMarker = "flexible"

// flexible returns the convertible variant of a reserved term code
func flexible(code string) string {
	return code + "-" + flexibleMarker
}

// TermDefinition is the static description of a term code
type TermDefinition struct {
	Name string `json:"name"`
	// Period in months
	Period int `json:"period"`
}

// LoadTerms returns the bundled term table keyed by lower-cased code
func LoadTerms() (map[string]TermDefinition, error) {
	var raw map[string]TermDefinition
	if err := json.Unmarshal(termsJSON, &raw); err != nil {
		return nil, errors.Parsing("invalid bundled term table", err)
	}
	table := make(map[string]TermDefinition, len(raw))
	for code, def := range raw {
		table[strings.ToLower(code)] = def
	}
	return table, nil
}

func isFlexible(code string) bool {
	return strings.Contains(code, flexibleMarker)
}
