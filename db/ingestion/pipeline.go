package ingestion

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"fe-catalog/db"
	"fe-catalog/internal/config"
	"fe-catalog/internal/errors"
	"fe-catalog/internal/logging"
)

// Options configure an Importer
type Options struct {
	// Node is the catalog partition written by the importer
	Node string
	// PricesURL is the feed base URL
	PricesURL string
	// Delimiter is the CSV cell separator of both feeds
	Delimiter rune
	// HoursMonth converts hourly costs to monthly ones
	HoursMonth float64
	Filters    Filters
	// HTTPTimeout bounds each feed download
	HTTPTimeout time.Duration
}

// OptionsFromConfig maps the application configuration to importer options
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	delimiter, size := utf8.DecodeRuneInString(cfg.Feed.Delimiter)
	if cfg.Feed.Delimiter == "" || size != len(cfg.Feed.Delimiter) {
		return Options{}, errors.Newf(errors.TypeConfig, "feed delimiter must be a single character, got %q", cfg.Feed.Delimiter)
	}
	return Options{
		Node:       cfg.Node,
		PricesURL:  cfg.Feed.PricesURL,
		Delimiter:  delimiter,
		HoursMonth: cfg.HoursMonth,
		Filters: Filters{
			Regions:       cfg.Filters.Regions,
			InstanceTypes: cfg.Filters.InstanceTypes,
			OS:            cfg.Filters.OS,
		},
		HTTPTimeout: cfg.Feed.HTTPTimeout(),
	}, nil
}

// Option customizes an Importer
type Option func(*Importer)

// WithLogger sets the importer logger
func WithLogger(log *zap.Logger) Option {
	return func(i *Importer) { i.log = log }
}

// WithProgress sets the progress collaborator
func WithProgress(p Progress) Option {
	return func(i *Importer) { i.progress = p }
}

// WithRegionTable replaces the bundled region table
func WithRegionTable(table map[string]RegionDefinition) Option {
	return func(i *Importer) { i.regionTable = table }
}

// WithTerms replaces the bundled term table
func WithTerms(terms map[string]TermDefinition) Option {
	return func(i *Importer) { i.terms = terms }
}

// WithFetcher replaces the feed fetcher
func WithFetcher(f *Fetcher) Option {
	return func(i *Importer) { i.fetcher = f }
}

// Importer installs or updates the catalog of a node from the price feeds.
// Runs on the same node must not overlap.
type Importer struct {
	store    db.CatalogStore
	opts     Options
	fetcher  *Fetcher
	progress Progress
	log      *zap.Logger

	regionTable map[string]RegionDefinition
	terms       map[string]TermDefinition
}

// Result summarizes a run
type Result struct {
	// Touched holds the sorted codes of the instance prices written by the run
	Touched []string

	InstancePrices int
	InstanceTypes  int
	Locations      int
	StorageTypes   int
	SupportPrices  int

	// Saves counts the store writes of the run
	Saves int
}

// NewImporter creates an importer writing to store
func NewImporter(store db.CatalogStore, opts Options, options ...Option) (*Importer, error) {
	i := &Importer{
		store:    store,
		opts:     opts,
		progress: NopProgress{},
	}
	for _, o := range options {
		o(i)
	}
	if i.opts.Delimiter == 0 {
		i.opts.Delimiter = ';'
	}
	if i.opts.HoursMonth == 0 {
		i.opts.HoursMonth = config.Default().HoursMonth
	}
	if i.log == nil {
		i.log = logging.Named("ingestion")
	}
	if i.fetcher == nil {
		i.fetcher = NewFetcher(i.opts.HTTPTimeout)
	}
	if i.regionTable == nil {
		table, err := LoadRegions()
		if err != nil {
			return nil, err
		}
		i.regionTable = table
	}
	if i.terms == nil {
		terms, err := LoadTerms()
		if err != nil {
			return nil, err
		}
		i.terms = terms
	}
	return i, nil
}

// Install installs or updates the catalog. When force is set, descriptive
// attributes of stored entities are overwritten too.
func (i *Importer) Install(ctx context.Context, force bool) (*Result, error) {
	node := i.opts.Node
	i.progress.Start(node, Workload)

	i.progress.NextStep(node, PhaseInitialize)
	c, err := newUpdateContext(node, force, i.opts.HoursMonth, i.opts.Filters, i.store, i.log)
	if err != nil {
		return nil, err
	}
	c.regionTable = i.regionTable
	c.terms = i.terms
	if err := c.load(ctx); err != nil {
		return nil, err
	}

	i.progress.NextStep(node, PhaseInstallInstances)
	base := strings.TrimSuffix(i.opts.PricesURL, "/")
	if err := i.fetchOSPrices(ctx, c, base+OSFeedPath); err != nil {
		return nil, err
	}
	if err := i.installInstancePrices(ctx, c, base+ComputeFeedPath); err != nil {
		return nil, err
	}

	i.progress.NextStep(node, PhaseInstallStorages)

	i.progress.NextStep(node, PhaseInstallSupport)
	if err := i.installSupport(ctx, c); err != nil {
		return nil, err
	}

	result := &Result{
		Touched:        make([]string, 0, len(c.touched)),
		InstancePrices: len(c.touched),
		InstanceTypes:  len(c.instanceTypes),
		Locations:      len(c.regions),
		SupportPrices:  len(c.previousSupport),
		Saves:          c.saves,
	}
	for code := range c.touched {
		result.Touched = append(result.Touched, code)
	}
	sort.Strings(result.Touched)
	return result, nil
}

// fetchOSPrices indexes the licence add-ons of the OS feed
func (i *Importer) fetchOSPrices(ctx context.Context, c *UpdateContext, endpoint string) error {
	i.log.Info("FE OS import started", zap.String("endpoint", endpoint))
	body, err := i.fetcher.Open(ctx, endpoint)
	if err != nil {
		return err
	}
	defer body.Close()

	dec, err := NewOSDecoder(body, i.opts.Delimiter, i.log)
	if err != nil {
		return err
	}
	index, err := BuildOSIndex(dec, c.resolveRegion, c.isEnabledOS, i.log)
	if err != nil {
		return err
	}
	c.osPrices = index
	i.log.Info("FE OS import finished", zap.Int("prices", index.Len()))
	return nil
}

// installInstancePrices merges every row of the compute feed
func (i *Importer) installInstancePrices(ctx context.Context, c *UpdateContext, endpoint string) error {
	i.log.Info("FE OnDemand/Reserved import started", zap.String("endpoint", endpoint))
	before := len(c.previous)
	body, err := i.fetcher.Open(ctx, endpoint)
	if err != nil {
		return err
	}
	defer body.Close()

	dec, err := NewComputeDecoder(body, i.opts.Delimiter, i.log)
	if err != nil {
		return err
	}
	for {
		row, err := dec.Next()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := c.installInstancePrices(ctx, row); err != nil {
			return err
		}
	}
	i.log.Info("FE OnDemand/Reserved import finished",
		zap.Int("prices", len(c.touched)),
		zap.String("delta", fmt.Sprintf("%+d", len(c.previous)-before)))
	return nil
}

// installSupport installs the bundled support plans and prices
func (i *Importer) installSupport(ctx context.Context, c *UpdateContext) error {
	types, err := LoadSupportTypes()
	if err != nil {
		return err
	}
	for _, t := range types {
		if _, err := c.installSupportType(ctx, t); err != nil {
			return err
		}
	}
	prices, err := LoadSupportPrices()
	if err != nil {
		return err
	}
	for _, p := range prices {
		if err := c.installSupportPrice(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Prune deletes the stored instance prices of the node a run did not touch
func (i *Importer) Prune(ctx context.Context, result *Result) ([]string, error) {
	prices, err := i.store.InstancePrices(ctx, i.opts.Node)
	if err != nil {
		return nil, errors.Persistence("failed to load instance prices", err)
	}
	stored := make([]string, 0, len(prices))
	for _, p := range prices {
		stored = append(stored, p.Code)
	}
	stale := StaleCodes(stored, result.Touched)
	if len(stale) == 0 {
		return nil, nil
	}
	n, err := i.store.DeleteInstancePrices(ctx, i.opts.Node, stale)
	if err != nil {
		return nil, errors.Persistence("failed to delete stale prices", err)
	}
	i.log.Info("Stale instance prices deleted", zap.Int("count", n))
	return stale, nil
}

// StaleCodes returns the sorted codes of previous missing from touched
func StaleCodes(previous, touched []string) []string {
	seen := make(map[string]struct{}, len(touched))
	for _, code := range touched {
		seen[code] = struct{}{}
	}
	var stale []string
	for _, code := range previous {
		if _, ok := seen[code]; !ok {
			stale = append(stale, code)
		}
	}
	sort.Strings(stale)
	return stale
}
