package ingestion

import (
	"regexp"
	"sort"
	"strings"
)

// productPattern reads "<region label> - <type code> (<specs>)",
// e.g. "Paris - t2.micro (1 vCPU, 1GB RAM)"
var productPattern = regexp.MustCompile(`^\s*(\S+)\s*-\s*(\S+)\s*\(.*$`)

// ParseProduct extracts the region label and the instance type code of a
// product cell. ok is false for anything else, header remnants included.
func ParseProduct(text string) (label, typeCode string, ok bool) {
	m := productPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// ResolveRegionCode returns the code of the region whose sub-region matches
// label, ignoring case, or label itself when none does.
func ResolveRegionCode(label string, table map[string]RegionDefinition) string {
	codes := make([]string, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if strings.EqualFold(label, table[code].SubRegion) {
			return code
		}
	}
	return label
}
