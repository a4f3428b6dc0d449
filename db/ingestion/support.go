package ingestion

import (
	"context"
	_ "embed"
	"encoding/csv"
	"strconv"
	"strings"

	"fe-catalog/core/catalog"
	"fe-catalog/internal/errors"
)

var (
	//go:embed data/support-type.csv
	supportTypeCSV string

	//go:embed data/support-price.csv
	supportPriceCSV string
)

// SupportPriceDefinition is a bundled support price, its type given by code
type SupportPriceDefinition struct {
	Code  string
	Type  string
	Limit string
	Rate  string
	Min   float64
	Cost  float64
}

// readSupportCSV returns the records of a bundled table as header → value maps
func readSupportCSV(name, content string) ([]map[string]string, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.Comma = ';'
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Parsing("invalid bundled "+name, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadSupportTypes returns the bundled support plans
func LoadSupportTypes() ([]*catalog.SupportType, error) {
	rows, err := readSupportCSV("support types", supportTypeCSV)
	if err != nil {
		return nil, err
	}
	types := make([]*catalog.SupportType, 0, len(rows))
	for _, row := range rows {
		t := &catalog.SupportType{
			Code:        row["code"],
			Name:        row["name"],
			Description: row["description"],
			AccessAPI:   row["accessApi"],
			AccessChat:  row["accessChat"],
			AccessEmail: row["accessEmail"],
			AccessPhone: row["accessPhone"],
			SlaWeekEnd:  row["slaWeekEnd"] == "true",
		}
		ints := []struct {
			key string
			dst *int
		}{
			{"slaStartTime", &t.SlaStartTime},
			{"slaEndTime", &t.SlaEndTime},
			{"slaBusinessCriticalSystemDown", &t.SlaBusinessCriticalSystemDown},
			{"slaProductionSystemDown", &t.SlaProductionSystemDown},
			{"slaProductionSystemImpaired", &t.SlaProductionSystemImpaired},
			{"slaSystemImpaired", &t.SlaSystemImpaired},
			{"slaGeneralGuidance", &t.SlaGeneralGuidance},
			{"commitment", &t.Commitment},
			{"seats", &t.Seats},
		}
		for _, f := range ints {
			if row[f.key] == "" {
				continue
			}
			v, err := strconv.Atoi(row[f.key])
			if err != nil {
				return nil, errors.Parsing("invalid support type "+t.Code+" "+f.key, err)
			}
			*f.dst = v
		}
		level, err := parseRate(row["level"])
		if err != nil {
			return nil, err
		}
		t.Level = level
		types = append(types, t)
	}
	return types, nil
}

// LoadSupportPrices returns the bundled support prices
func LoadSupportPrices() ([]SupportPriceDefinition, error) {
	rows, err := readSupportCSV("support prices", supportPriceCSV)
	if err != nil {
		return nil, err
	}
	prices := make([]SupportPriceDefinition, 0, len(rows))
	for _, row := range rows {
		p := SupportPriceDefinition{Code: row["code"], Type: row["type"], Limit: row["limit"], Rate: row["rate"]}
		for key, dst := range map[string]*float64{"min": &p.Min, "cost": &p.Cost} {
			v, err := parseAmount(row[key])
			if err != nil {
				return nil, errors.Parsing("invalid support price "+p.Code+" "+key, err)
			}
			if v != nil {
				*dst = *v
			}
		}
		prices = append(prices, p)
	}
	return prices, nil
}

func parseRate(s string) (catalog.Rate, error) {
	for r := catalog.RateWorst; r <= catalog.RateBest; r++ {
		if strings.EqualFold(r.String(), s) {
			return r, nil
		}
	}
	return catalog.RateWorst, errors.Newf(errors.TypeParsing, "unknown rate %q", s)
}

// installSupportType overwrites the stored plan of the same code
func (c *UpdateContext) installSupportType(ctx context.Context, source *catalog.SupportType) (*catalog.SupportType, error) {
	t, ok := c.supportTypes[source.Code]
	if !ok {
		t = &catalog.SupportType{Node: c.Node, Code: source.Code, Name: source.Code}
		c.supportTypes[source.Code] = t
	}
	id, node, name := t.ID, t.Node, t.Name
	*t = *source
	t.ID, t.Node, t.Name = id, node, name
	if err := c.saved(c.store.SaveSupportType(ctx, t)); err != nil {
		return nil, err
	}
	return t, nil
}

// installSupportPrice creates or updates the support price of the same code
func (c *UpdateContext) installSupportPrice(ctx context.Context, source SupportPriceDefinition) error {
	supportType, ok := c.supportTypes[source.Type]
	if !ok {
		return errors.NotFound("support type", source.Type)
	}
	price, ok := c.previousSupport[source.Code]
	if !ok {
		price = &catalog.SupportPrice{Code: source.Code}
		c.previousSupport[source.Code] = price
	}
	err := copyAsNeeded(ctx, c, price, func(p *catalog.SupportPrice) {
		p.Limit = source.Limit
		p.Min = source.Min
		p.Rate = source.Rate
		p.Type = supportType
	}, nil)
	if err != nil {
		return err
	}
	return saveAsNeeded(ctx, c, price, price.Cost, source.Cost, func(rounded, _ float64) {
		price.Cost = rounded
	}, c.store.SaveSupportPrice)
}
