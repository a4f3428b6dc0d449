// Package ingestion - Flexible Engine catalog import
// Strictly one-way: decode feeds → index OS add-ons → merge compute prices → store
package ingestion

import (
	"encoding/csv"
	stderrors "errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"fe-catalog/core/catalog"
	"fe-catalog/internal/errors"
	"fe-catalog/internal/logging"
)

// dropField receives every header cell without a known mapping
const dropField = "drop"

// localizedHeader is the French header row some feeds repeat inside the data
const localizedHeader = "Produit"

const (
	minComputeFields = 19
	minOSFields      = 7
)

// computeHeaders maps compute feed header cells to ComputeRow fields
var computeHeaders = map[string]string{
	"product":               "product",
	"cpu":                   "cpu",
	"ram (GB)":              "ram",
	"cost_h":                "cost1h",
	"cost_m":                "cost1m",
	"cost_m_1y_no_upfront":  "cost1yPerMonth",
	"cost_1y_upfront_fees":  "cost1yUpfrontFee",
	"cost_m_1y_upfront":     "cost1yUpfrontPerMonth",
	"cost_2y_upfront_fees":  "cost2yUpfrontFee",
	"cost_m_2y_upfront":     "cost2yUpfrontPerMonth",
	"cost_m_3y_no_upfront":  "cost3yPerMonth",
	"cost_3y_upfront_fees":  "cost3yUpfrontFee",
	"cost_m_3y_upfront":     "cost3yUpfrontPerMonth",
	"cost_m_5y_no_upfront":  "cost5yPerMonth",
	"cost_m_3y_convertible": "cost3yConvertiblePerMonth",
}

// osHeaders maps OS feed header cells to OSRow fields
var osHeaders = map[string]string{
	"product": "product",
	"cost_h":  "cost1h",
	"cost_m":  "cost1m",
}

// ComputeRow is one instance type price point of the compute feed.
// A nil cost means the term is not offered for this row.
type ComputeRow struct {
	Product string
	CPU     float64
	// RAM in GB
	RAM float64

	Cost1h                    *float64
	Cost1m                    *float64
	Cost1yPerMonth            *float64
	Cost1yUpfrontFee          *float64
	Cost1yUpfrontPerMonth     *float64
	Cost2yUpfrontFee          *float64
	Cost2yUpfrontPerMonth     *float64
	Cost3yPerMonth            *float64
	Cost3yUpfrontFee          *float64
	Cost3yUpfrontPerMonth     *float64
	Cost5yPerMonth            *float64
	Cost3yConvertiblePerMonth *float64

	// Convertible is the decoder mode when the row was read
	Convertible bool
}

func (r *ComputeRow) set(field, value string) error {
	if field == "product" {
		r.Product = value
		return nil
	}
	amount, err := parseAmount(value)
	if err != nil {
		return err
	}
	switch field {
	case "cpu":
		if amount != nil {
			r.CPU = *amount
		}
	case "ram":
		if amount != nil {
			r.RAM = *amount
		}
	case "cost1h":
		r.Cost1h = amount
	case "cost1m":
		r.Cost1m = amount
	case "cost1yPerMonth":
		r.Cost1yPerMonth = amount
	case "cost1yUpfrontFee":
		r.Cost1yUpfrontFee = amount
	case "cost1yUpfrontPerMonth":
		r.Cost1yUpfrontPerMonth = amount
	case "cost2yUpfrontFee":
		r.Cost2yUpfrontFee = amount
	case "cost2yUpfrontPerMonth":
		r.Cost2yUpfrontPerMonth = amount
	case "cost3yPerMonth":
		r.Cost3yPerMonth = amount
	case "cost3yUpfrontFee":
		r.Cost3yUpfrontFee = amount
	case "cost3yUpfrontPerMonth":
		r.Cost3yUpfrontPerMonth = amount
	case "cost5yPerMonth":
		r.Cost5yPerMonth = amount
	case "cost3yConvertiblePerMonth":
		r.Cost3yConvertiblePerMonth = amount
	}
	return nil
}

// OSRow is a licence add-on price of the OS feed, stamped with the licence
// block it was read in.
type OSRow struct {
	Product  string
	Os       catalog.VmOs
	Software string
	Cost1h   *float64
	Cost1m   *float64
}

func (r *OSRow) set(field, value string) error {
	if field == "product" {
		r.Product = value
		return nil
	}
	amount, err := parseAmount(value)
	if err != nil {
		return err
	}
	switch field {
	case "cost1h":
		r.Cost1h = amount
	case "cost1m":
		r.Cost1m = amount
	}
	return nil
}

// RowKind classifies a raw record
type RowKind int

const (
	// RowData is a record to decode
	RowData RowKind = iota
	// RowSkipped is header, decoration or an invalid record
	RowSkipped
	// RowLicence opens a supported licence block
	RowLicence
	// RowUnsupportedLicence opens a licence block the catalog cannot classify
	RowUnsupportedLicence
)

// ComputeState is the compute decoder mode carried from row to row
type ComputeState struct {
	Convertible bool
}

// Next returns the state after raw and how raw must be handled.
func (s ComputeState) Next(raw []string) (ComputeState, RowKind) {
	if len(raw) > 0 {
		col0 := strings.ToLower(raw[0])
		if strings.Contains(col0, "flexible elastic cloud serve") {
			s.Convertible = true
		} else if strings.Contains(col0, "ecs - orange business services compute") {
			s.Convertible = false
		}
		if strings.EqualFold(raw[0], localizedHeader) {
			return s, RowSkipped
		}
	}
	if len(raw) < minComputeFields || !isDigits(raw[1]) {
		return s, RowSkipped
	}
	return s, RowData
}

var licencePattern = regexp.MustCompile(`Licence (.*)\s+\(.*`)

// LicenceState is the OS decoder licence block carried from row to row
type LicenceState struct {
	Os       catalog.VmOs
	Software string
}

// Next returns the state after raw and how raw must be handled. An
// unsupported licence leaves the state unchanged.
func (s LicenceState) Next(raw []string) (LicenceState, RowKind) {
	if len(raw) > 0 {
		if label, ok := licenceLabel(raw[0]); ok {
			next, supported := classifyLicence(label)
			if !supported {
				return s, RowUnsupportedLicence
			}
			return next, RowLicence
		}
		if strings.EqualFold(raw[0], localizedHeader) {
			return s, RowSkipped
		}
	}
	if len(raw) < minOSFields || strings.TrimSpace(raw[0]) == "" {
		return s, RowSkipped
	}
	return s, RowData
}

func licenceLabel(col0 string) (string, bool) {
	m := licencePattern.FindStringSubmatch(col0)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

func classifyLicence(label string) (LicenceState, bool) {
	switch {
	case strings.Contains(label, "WINDOWS"):
		return LicenceState{Os: catalog.WINDOWS}, true
	case strings.Contains(label, "REDHAT"):
		return LicenceState{Os: catalog.RHEL}, true
	case strings.Contains(label, "SUSE"):
		switch {
		case strings.Contains(label, "SAP APPLICATIONS"):
			return LicenceState{Os: catalog.SUSE, Software: "SAP APPLICATIONS"}, true
		case strings.Contains(label, "SAP"):
			return LicenceState{Os: catalog.SUSE, Software: "SAP"}, true
		}
		return LicenceState{Os: catalog.SUSE}, true
	}
	return LicenceState{}, false
}

// feedReader tokenizes a feed and maps its header line
type feedReader struct {
	r       *csv.Reader
	columns []string
}

func newFeedReader(in io.Reader, delimiter rune, headers map[string]string) (*feedReader, error) {
	r := csv.NewReader(in)
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.New(errors.TypeIO, "feed has no header line")
		}
		return nil, errors.IO("failed to read feed header", err)
	}
	columns := make([]string, len(header))
	for i, cell := range header {
		field, ok := headers[strings.TrimSpace(cell)]
		if !ok {
			field = dropField
		}
		columns[i] = field
	}
	return &feedReader{r: r, columns: columns}, nil
}

func (f *feedReader) read() ([]string, error) {
	raw, err := f.r.Read()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errors.IO("failed to read feed record", err)
	}
	return raw, nil
}

func (f *feedReader) bind(raw []string, set func(field, value string) error) error {
	for i, field := range f.columns {
		if i >= len(raw) || field == dropField {
			continue
		}
		if err := set(field, raw[i]); err != nil {
			line, _ := f.r.FieldPos(i)
			return errors.Wrapf(errors.TypeParsing, err, "line %d: invalid %s value %q", line, field, raw[i])
		}
	}
	return nil
}

// ComputeDecoder reads compute feed rows, stamping each with the convertible mode
type ComputeDecoder struct {
	feed  *feedReader
	state ComputeState
	log   *zap.Logger
}

// NewComputeDecoder consumes the header line of in
func NewComputeDecoder(in io.Reader, delimiter rune, log *zap.Logger) (*ComputeDecoder, error) {
	feed, err := newFeedReader(in, delimiter, computeHeaders)
	if err != nil {
		return nil, err
	}
	return &ComputeDecoder{feed: feed, log: logging.OrGlobal(log)}, nil
}

// Next returns the next valid row, or io.EOF
func (d *ComputeDecoder) Next() (*ComputeRow, error) {
	for {
		raw, err := d.feed.read()
		if err != nil {
			return nil, err
		}
		var kind RowKind
		d.state, kind = d.state.Next(raw)
		if kind != RowData {
			continue
		}

		raw[1] = sanitizeQuantity(raw[1])
		raw[2] = sanitizeQuantity(raw[2])
		row := &ComputeRow{Convertible: d.state.Convertible}
		if err := d.feed.bind(raw, row.set); err != nil {
			return nil, err
		}
		return row, nil
	}
}

// OSDecoder reads OS feed rows, stamping each with the current licence block
type OSDecoder struct {
	feed  *feedReader
	state LicenceState
	log   *zap.Logger
}

// NewOSDecoder consumes the header line of in
func NewOSDecoder(in io.Reader, delimiter rune, log *zap.Logger) (*OSDecoder, error) {
	feed, err := newFeedReader(in, delimiter, osHeaders)
	if err != nil {
		return nil, err
	}
	return &OSDecoder{feed: feed, log: logging.OrGlobal(log)}, nil
}

// Next returns the next valid row, or io.EOF
func (d *OSDecoder) Next() (*OSRow, error) {
	for {
		raw, err := d.feed.read()
		if err != nil {
			return nil, err
		}
		var kind RowKind
		d.state, kind = d.state.Next(raw)
		switch kind {
		case RowUnsupportedLicence:
			label, _ := licenceLabel(raw[0])
			d.log.Warn("Unsupported licence model", zap.String("licence", label))
			continue
		case RowLicence, RowSkipped:
			continue
		}

		row := &OSRow{Os: d.state.Os, Software: d.state.Software}
		if err := d.feed.bind(raw, row.set); err != nil {
			return nil, err
		}
		return row, nil
	}
}

var quantityNoise = regexp.MustCompile(`[^\d,]`)

// sanitizeQuantity keeps digits and the decimal comma
func sanitizeQuantity(s string) string {
	return quantityNoise.ReplaceAllString(s, "")
}

var amountNoise = regexp.MustCompile(`[^\d,.\-]`)

// parseAmount reads a feed number; blank cells are nil. Both "," and "." are
// accepted as decimal separator. When a cell holds both, the last one is the
// decimal separator and the other groups thousands.
func parseAmount(s string) (*float64, error) {
	s = amountNoise.ReplaceAllString(strings.TrimSpace(s), "")
	if s == "" {
		return nil, nil
	}
	if comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, "."); comma >= 0 && dot >= 0 {
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
