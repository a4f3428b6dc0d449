package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProduct(t *testing.T) {
	tests := []struct {
		text      string
		wantLabel string
		wantType  string
		wantOK    bool
	}{
		{text: "Paris - t2.micro (1 vCPU, 1GB RAM)", wantLabel: "Paris", wantType: "t2.micro", wantOK: true},
		{text: "  Amsterdam-s3.large.2(2 vCPU, 4GB RAM)", wantLabel: "Amsterdam", wantType: "s3.large.2", wantOK: true},
		{text: "eu-west-0 - p2.2xlarge.8 (8 vCPU)", wantLabel: "eu-west-0", wantType: "p2.2xlarge.8", wantOK: true},
		{text: "Produit"},
		{text: "Paris - t2.micro"},
		{text: ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			label, typeCode, ok := ParseProduct(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantLabel, label)
			assert.Equal(t, tt.wantType, typeCode)
		})
	}
}

func TestResolveRegionCode(t *testing.T) {
	table := map[string]RegionDefinition{
		"eu-west-0": {SubRegion: "Paris"},
		"eu-west-1": {SubRegion: "Amsterdam"},
	}

	tests := []struct {
		label string
		want  string
	}{
		{label: "Paris", want: "eu-west-0"},
		{label: "AMSTERDAM", want: "eu-west-1"},
		{label: "eu-west-0", want: "eu-west-0"},
		{label: "Lyon", want: "Lyon"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRegionCode(tt.label, table))
		})
	}
}

func TestBundledTables(t *testing.T) {
	regions, err := LoadRegions()
	assert.NoError(t, err)
	assert.Equal(t, "Paris", regions["eu-west-0"].SubRegion)

	terms, err := LoadTerms()
	assert.NoError(t, err)
	assert.Len(t, terms, 13)
	assert.Equal(t, TermDefinition{Name: "Reserved, 3yr, flexible", Period: 36}, terms["ri-3y-flexible"])
	assert.Equal(t, 0, terms[TermOnDemand].Period)
}
