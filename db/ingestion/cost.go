package ingestion

import "fe-catalog/core/catalog"

// termQuote is the base price of one term derived from a compute row
type termQuote struct {
	Code string
	// Coeff converts Cost to a monthly cost
	Coeff float64
	// Cost is nil when the term is not offered
	Cost *float64
	// Initial is the upfront fee, nil counts as zero
	Initial *float64
}

// Monthly returns the base monthly cost, ok is false when the term is not offered
func (q termQuote) Monthly() (float64, bool) {
	if q.Cost == nil {
		return 0, false
	}
	return q.Coeff * *q.Cost, true
}

// InitialCost returns the upfront fee
func (q termQuote) InitialCost() float64 {
	if q.Initial == nil {
		return 0
	}
	return *q.Initial
}

// expandTerms returns the terms priced by row. Convertible rows only produce
// flexible terms, the other rows never do.
func expandTerms(row *ComputeRow, hoursMonth float64) []termQuote {
	if row.Convertible {
		cost3y := row.Cost3yPerMonth
		if row.Cost3yConvertiblePerMonth != nil {
			cost3y = row.Cost3yConvertiblePerMonth
		}
		return []termQuote{
			{Code: flexible(TermReserved1y), Coeff: 1, Cost: row.Cost1yPerMonth},
			{Code: flexible(TermUpfront1y), Coeff: 1, Cost: row.Cost1yUpfrontPerMonth, Initial: row.Cost1yUpfrontFee},
			{Code: flexible(TermUpfront2y), Coeff: 1, Cost: row.Cost2yUpfrontPerMonth, Initial: row.Cost2yUpfrontFee},
			{Code: flexible(TermReserved3y), Coeff: 1, Cost: cost3y},
			{Code: flexible(TermUpfront3y), Coeff: 1, Cost: row.Cost3yUpfrontPerMonth, Initial: row.Cost3yUpfrontFee},
		}
	}
	return []termQuote{
		{Code: TermOnDemand, Coeff: hoursMonth, Cost: row.Cost1h},
		{Code: TermOnDemandMonthly, Coeff: 1, Cost: row.Cost1m},
		{Code: TermReserved1y, Coeff: 1, Cost: row.Cost1yPerMonth},
		{Code: TermReserved3y, Coeff: 1, Cost: row.Cost3yPerMonth},
		{Code: TermReserved5y, Coeff: 1, Cost: row.Cost5yPerMonth},
		{Code: TermUpfront1y, Coeff: hoursMonth, Cost: row.Cost1h, Initial: row.Cost1yUpfrontFee},
		{Code: TermUpfront2y, Coeff: hoursMonth, Cost: row.Cost1h, Initial: row.Cost2yUpfrontFee},
		{Code: TermUpfront3y, Coeff: hoursMonth, Cost: row.Cost1h, Initial: row.Cost3yUpfrontFee},
	}
}

// withOS adds a licence add-on to a base monthly cost. On demand prices add
// the hourly licence cost, the other terms add the monthly licence cost over
// the term period. ok is false when the feed has no cost for the needed unit.
func withOS(termCode string, period int, monthly float64, os *OSRow, hoursMonth float64) (float64, bool) {
	if termCode == TermOnDemand {
		if os.Cost1h == nil {
			return 0, false
		}
		return monthly + *os.Cost1h*hoursMonth, true
	}
	if os.Cost1m == nil {
		return 0, false
	}
	return monthly + *os.Cost1m*float64(period), true
}

// PeriodCost returns the cost of a whole term, upfront fee included
func PeriodCost(initial, monthly float64, period int) float64 {
	return catalog.Round3(initial + monthly*float64(period))
}
