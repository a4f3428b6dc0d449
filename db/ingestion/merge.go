package ingestion

import (
	"context"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"fe-catalog/core/catalog"
	"fe-catalog/db"
	"fe-catalog/internal/errors"
)

// entity is what copy-as-needed and save-as-needed work on
type entity interface {
	IsNew() bool
}

// UpdateContext is the state of one import run. It is built from the stored
// catalog at run start and discarded at the end.
type UpdateContext struct {
	Node       string
	Force      bool
	HoursMonth float64

	validRegion *regexp.Regexp
	validType   *regexp.Regexp
	validOS     *regexp.Regexp

	regionTable map[string]RegionDefinition
	terms       map[string]TermDefinition
	osPrices    OSIndex

	regions         map[string]*catalog.Region
	instanceTypes   map[string]*catalog.InstanceType
	priceTerms      map[string]*catalog.PriceTerm
	previous        map[string]*catalog.InstancePrice
	supportTypes    map[string]*catalog.SupportType
	previousSupport map[string]*catalog.SupportPrice

	// touched holds the instance price codes written by this run
	touched map[string]struct{}
	// merged holds the entities whose descriptive attributes were handled
	merged map[any]struct{}
	// saves counts the store writes of this run
	saves int

	store db.CatalogStore
	log   *zap.Logger
}

// Filters are the allow-patterns of a run. Blank means no restriction.
type Filters struct {
	Regions       string
	InstanceTypes string
	OS            string
}

// compilePattern builds a whole-value matcher
func compilePattern(name, pattern string, ignoreCase bool) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = ".*"
	}
	expr := "^(?:" + pattern + ")$"
	if ignoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.Config("invalid "+name+" pattern", err)
	}
	return re, nil
}

func newUpdateContext(node string, force bool, hoursMonth float64, filters Filters, store db.CatalogStore, log *zap.Logger) (*UpdateContext, error) {
	validRegion, err := compilePattern("region", filters.Regions, false)
	if err != nil {
		return nil, err
	}
	validType, err := compilePattern("instance type", filters.InstanceTypes, true)
	if err != nil {
		return nil, err
	}
	validOS, err := compilePattern("OS", filters.OS, true)
	if err != nil {
		return nil, err
	}
	return &UpdateContext{
		Node:            node,
		Force:           force,
		HoursMonth:      hoursMonth,
		validRegion:     validRegion,
		validType:       validType,
		validOS:         validOS,
		regionTable:     map[string]RegionDefinition{},
		terms:           map[string]TermDefinition{},
		osPrices:        OSIndex{},
		regions:         map[string]*catalog.Region{},
		instanceTypes:   map[string]*catalog.InstanceType{},
		priceTerms:      map[string]*catalog.PriceTerm{},
		previous:        map[string]*catalog.InstancePrice{},
		supportTypes:    map[string]*catalog.SupportType{},
		previousSupport: map[string]*catalog.SupportPrice{},
		touched:         map[string]struct{}{},
		merged:          map[any]struct{}{},
		store:           store,
		log:             log,
	}, nil
}

// load fills the lookup maps from the stored catalog of the node
func (c *UpdateContext) load(ctx context.Context) error {
	regions, err := c.store.Regions(ctx, c.Node)
	if err != nil {
		return errors.Persistence("failed to load regions", err)
	}
	for _, r := range regions {
		if c.isEnabledRegion(r.Name) {
			c.regions[r.Name] = r
		}
	}
	types, err := c.store.InstanceTypes(ctx, c.Node)
	if err != nil {
		return errors.Persistence("failed to load instance types", err)
	}
	for _, t := range types {
		c.instanceTypes[t.Code] = t
	}
	terms, err := c.store.PriceTerms(ctx, c.Node)
	if err != nil {
		return errors.Persistence("failed to load price terms", err)
	}
	for _, t := range terms {
		c.priceTerms[t.Code] = t
	}
	prices, err := c.store.InstancePrices(ctx, c.Node)
	if err != nil {
		return errors.Persistence("failed to load instance prices", err)
	}
	for _, p := range prices {
		c.previous[p.Code] = p
	}
	supportTypes, err := c.store.SupportTypes(ctx, c.Node)
	if err != nil {
		return errors.Persistence("failed to load support types", err)
	}
	for _, t := range supportTypes {
		c.supportTypes[t.Code] = t
	}
	supportPrices, err := c.store.SupportPrices(ctx, c.Node)
	if err != nil {
		return errors.Persistence("failed to load support prices", err)
	}
	for _, p := range supportPrices {
		c.previousSupport[p.Code] = p
	}
	return nil
}

func (c *UpdateContext) isEnabledRegion(code string) bool {
	return c.validRegion.MatchString(code)
}

func (c *UpdateContext) isEnabledType(code string) bool {
	return c.validType.MatchString(code)
}

func (c *UpdateContext) isEnabledOS(os catalog.VmOs) bool {
	return c.validOS.MatchString(string(os))
}

// resolveRegion maps a product region label to a region code
func (c *UpdateContext) resolveRegion(label string) string {
	return ResolveRegionCode(label, c.regionTable)
}

// copyAsNeeded fills the descriptive attributes of e when it is new or the
// run is forced, at most once per run, then saves it when save is set.
func copyAsNeeded[T entity](ctx context.Context, c *UpdateContext, e T, fill func(T), save func(context.Context, T) error) error {
	if _, done := c.merged[e]; done {
		return nil
	}
	c.merged[e] = struct{}{}
	if !c.Force && !e.IsNew() {
		return nil
	}
	fill(e)
	if save == nil {
		return nil
	}
	return c.saved(save(ctx, e))
}

// saveAsNeeded updates the cost of e and saves it, unless the entity is
// stored, the run is not forced and the cost did not change at the catalog
// precision. update receives the rounded and the raw cost.
func saveAsNeeded[T entity](ctx context.Context, c *UpdateContext, e T, oldCost, newCost float64, update func(rounded, raw float64), save func(context.Context, T) error) error {
	if !c.Force && !e.IsNew() && catalog.SameCost(oldCost, newCost) {
		return nil
	}
	update(catalog.Round3(newCost), newCost)
	return c.saved(save(ctx, e))
}

// saved accounts a store write
func (c *UpdateContext) saved(err error) error {
	if err != nil {
		return errors.Persistence("failed to save catalog entity", err)
	}
	c.saves++
	return nil
}

// installRegion returns the region of code, created as needed, or nil when
// the region is filtered out.
func (c *UpdateContext) installRegion(ctx context.Context, code string) (*catalog.Region, error) {
	if !c.isEnabledRegion(code) {
		return nil, nil
	}
	region, ok := c.regions[code]
	if !ok {
		region = &catalog.Region{Node: c.Node, Name: code}
		c.regions[code] = region
	}
	err := copyAsNeeded(ctx, c, region, func(r *catalog.Region) {
		def := c.regionTable[r.Name]
		r.Description = def.SubRegion
		r.SubRegion = def.SubRegion
		r.CountryA2 = def.CountryA2
		r.ContinentM49 = def.ContinentM49
		r.Latitude = def.Latitude
		r.Longitude = def.Longitude
	}, c.store.SaveRegion)
	if err != nil {
		return nil, err
	}
	return region, nil
}

// installInstanceType returns the type of code, created as needed from row,
// or nil when the type is filtered out.
func (c *UpdateContext) installInstanceType(ctx context.Context, code string, row *ComputeRow) (*catalog.InstanceType, error) {
	if !c.isEnabledType(code) {
		return nil, nil
	}
	it, ok := c.instanceTypes[code]
	if !ok {
		it = &catalog.InstanceType{Node: c.Node, Code: code}
		c.instanceTypes[code] = it
	}
	err := copyAsNeeded(ctx, c, it, func(t *catalog.InstanceType) {
		burstable := strings.HasPrefix(instanceFamily(code), "t")
		t.Name = code
		t.CPU = row.CPU
		t.RAM = int(math.Round(row.RAM * 1024))
		t.Constant = !burstable
		t.AutoScale = true
		t.Processor = "Intel Xeon"
		t.CPURate = catalog.RateMedium
		t.RAMRate = catalog.RateMedium
		t.NetworkRate = catalog.RateMedium
		t.StorageRate = catalog.RateMedium
		if burstable {
			t.CPURate = catalog.RateWorst
			t.NetworkRate = catalog.RateWorst
		}
	}, c.store.SaveInstanceType)
	if err != nil {
		return nil, err
	}
	return it, nil
}

// instanceFamily returns the part of a type code before the first "."
func instanceFamily(code string) string {
	family, _, _ := strings.Cut(code, ".")
	return family
}

// installPriceTerm resolves a term code, creating the term on first use
func (c *UpdateContext) installPriceTerm(ctx context.Context, code string) (*catalog.PriceTerm, error) {
	code = strings.ToLower(code)
	def, ok := c.terms[code]
	if !ok {
		return nil, errors.Newf(errors.TypeParsing, "unknown price term %q", code)
	}
	term, ok := c.priceTerms[code]
	if !ok {
		term = &catalog.PriceTerm{Node: c.Node, Code: code}
		c.priceTerms[code] = term
	}
	err := copyAsNeeded(ctx, c, term, func(t *catalog.PriceTerm) {
		flex := isFlexible(code)
		t.Name = def.Name
		t.Period = def.Period
		t.Reservation = false
		t.ConvertibleFamily = flex
		t.ConvertibleType = flex
		t.ConvertibleLocation = false
		t.ConvertibleOs = true
		t.Ephemeral = false
	}, c.store.SavePriceTerm)
	if err != nil {
		return nil, err
	}
	return term, nil
}

// installInstancePrices merges every price of a compute row
func (c *UpdateContext) installInstancePrices(ctx context.Context, row *ComputeRow) error {
	label, typeCode, ok := ParseProduct(row.Product)
	if !ok {
		c.log.Debug("Ignored compute row", zap.String("product", row.Product))
		return nil
	}

	region, err := c.installRegion(ctx, c.resolveRegion(label))
	if err != nil || region == nil {
		return err
	}
	it, err := c.installInstanceType(ctx, typeCode, row)
	if err != nil || it == nil {
		return err
	}

	for _, quote := range expandTerms(row, c.HoursMonth) {
		if err := c.installTermPrices(ctx, region, it, quote); err != nil {
			return err
		}
	}
	return nil
}

// installTermPrices merges the prices of one term: one per licence add-on
// of the region and type, and the bare Linux one.
func (c *UpdateContext) installTermPrices(ctx context.Context, region *catalog.Region, it *catalog.InstanceType, quote termQuote) error {
	monthly, ok := quote.Monthly()
	if !ok {
		return nil
	}
	initial := quote.InitialCost()
	term, err := c.installPriceTerm(ctx, quote.Code)
	if err != nil {
		return err
	}

	for _, entry := range c.osPrices.Lookup(region.Name, it.Code) {
		cost, ok := withOS(term.Code, term.Period, monthly, entry.Row, c.HoursMonth)
		if !ok {
			continue
		}
		if err := c.installInstancePrice(ctx, region, term, entry.Os, entry.Software, it, cost, initial); err != nil {
			return err
		}
	}

	return c.installInstancePrice(ctx, region, term, catalog.LINUX, "", it, monthly, initial)
}

// installInstancePrice creates or updates the price of a composite key
func (c *UpdateContext) installInstancePrice(ctx context.Context, region *catalog.Region, term *catalog.PriceTerm,
	os catalog.VmOs, software string, it *catalog.InstanceType, monthly, initial float64) error {
	code := catalog.PriceCode(region.Name, term.Code, it.Code, os)
	price, ok := c.previous[code]
	if !ok {
		price = &catalog.InstancePrice{Code: code}
		c.previous[code] = price
	}

	err := copyAsNeeded(ctx, c, price, func(p *catalog.InstancePrice) {
		p.Location = region
		p.Os = os
		p.Software = software
		p.Term = term
		p.Tenancy = catalog.TenancyShared
		p.Type = it
		p.Period = term.Period
	}, nil)
	if err != nil {
		return err
	}

	c.touched[code] = struct{}{}
	return saveAsNeeded(ctx, c, price, price.Cost, monthly, func(rounded, raw float64) {
		price.InitialCost = catalog.Round3(initial)
		price.Cost = rounded
		price.CostPeriod = PeriodCost(initial, raw, price.Term.Period)
	}, c.store.SaveInstancePrice)
}
