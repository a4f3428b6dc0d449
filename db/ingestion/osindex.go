package ingestion

import (
	stderrors "errors"
	"io"
	"sort"

	"go.uber.org/zap"

	"fe-catalog/core/catalog"
	"fe-catalog/internal/logging"
)

// OSEntry is a licence add-on applicable to a (region, type) pair
type OSEntry struct {
	Os catalog.VmOs
	// Software is empty for OS only pricing
	Software string
	Row      *OSRow
}

// OSIndex maps region code → type code → OS → software → OS feed row.
// The empty software key holds OS only pricing.
type OSIndex map[string]map[string]map[catalog.VmOs]map[string]*OSRow

// Add records row for region and type, replacing a previous row of the same
// OS and software.
func (x OSIndex) Add(region, typeCode string, row *OSRow) {
	types, ok := x[region]
	if !ok {
		types = make(map[string]map[catalog.VmOs]map[string]*OSRow)
		x[region] = types
	}
	oses, ok := types[typeCode]
	if !ok {
		oses = make(map[catalog.VmOs]map[string]*OSRow)
		types[typeCode] = oses
	}
	softwares, ok := oses[row.Os]
	if !ok {
		softwares = make(map[string]*OSRow)
		oses[row.Os] = softwares
	}
	softwares[row.Software] = row
}

// Lookup returns the add-ons of region and type ordered by OS then software
func (x OSIndex) Lookup(region, typeCode string) []OSEntry {
	var entries []OSEntry
	for os, softwares := range x[region][typeCode] {
		for software, row := range softwares {
			entries = append(entries, OSEntry{Os: os, Software: software, Row: row})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Os != entries[j].Os {
			return entries[i].Os < entries[j].Os
		}
		return entries[i].Software < entries[j].Software
	})
	return entries
}

// Len returns the number of indexed rows
func (x OSIndex) Len() int {
	n := 0
	for _, types := range x {
		for _, oses := range types {
			for _, softwares := range oses {
				n += len(softwares)
			}
		}
	}
	return n
}

// BuildOSIndex drains dec. resolve maps a product region label to a region
// code, allow filters the OS of the add-ons to keep.
func BuildOSIndex(dec *OSDecoder, resolve func(label string) string, allow func(catalog.VmOs) bool, log *zap.Logger) (OSIndex, error) {
	log = logging.OrGlobal(log)
	index := make(OSIndex)
	for {
		row, err := dec.Next()
		if stderrors.Is(err, io.EOF) {
			return index, nil
		}
		if err != nil {
			return nil, err
		}
		if row.Os == "" {
			log.Debug("OS price outside of a licence block", zap.String("product", row.Product))
			continue
		}
		if !allow(row.Os) {
			continue
		}
		label, typeCode, ok := ParseProduct(row.Product)
		if !ok {
			log.Debug("Ignored OS price", zap.String("product", row.Product))
			continue
		}
		index.Add(resolve(label), typeCode, row)
	}
}
