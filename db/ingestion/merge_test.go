package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"fe-catalog/core/catalog"
	"fe-catalog/db"
	"fe-catalog/internal/errors"
)

func newTestContext(t *testing.T, store db.CatalogStore, force bool) *UpdateContext {
	t.Helper()
	c, err := newUpdateContext(testNode, force, 720, Filters{}, store, zaptest.NewLogger(t))
	require.NoError(t, err)
	terms, err := LoadTerms()
	require.NoError(t, err)
	c.terms = terms
	require.NoError(t, c.load(context.Background()))
	return c
}

func TestCompilePattern(t *testing.T) {
	tests := []struct {
		name       string
		pattern    string
		ignoreCase bool
		value      string
		want       bool
	}{
		{name: "blank allows all", pattern: "", value: "anything", want: true},
		{name: "whole value", pattern: "t2", value: "t2.micro", want: false},
		{name: "alternation is anchored", pattern: "t2.*|p2.*", value: "s3.p2", want: false},
		{name: "ignore case", pattern: "windows", ignoreCase: true, value: "WINDOWS", want: true},
		{name: "case sensitive", pattern: "eu-west-0", value: "EU-WEST-0", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := compilePattern("test", tt.pattern, tt.ignoreCase)
			require.NoError(t, err)
			assert.Equal(t, tt.want, re.MatchString(tt.value))
		})
	}
}

func TestInstallPriceTermLazy(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	c := newTestContext(t, store, false)

	term, err := c.installPriceTerm(ctx, "RI-1Y-Flexible")
	require.NoError(t, err)
	assert.Equal(t, "ri-1y-flexible", term.Code)
	assert.Equal(t, 12, term.Period)
	assert.True(t, term.ConvertibleFamily)

	again, err := c.installPriceTerm(ctx, "ri-1y-flexible")
	require.NoError(t, err)
	assert.Same(t, term, again)
	assert.Equal(t, 1, store.Writes())

	terms, err := store.PriceTerms(ctx, testNode)
	require.NoError(t, err)
	assert.Len(t, terms, 1)

	_, err = c.installPriceTerm(ctx, "ri-7y")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeParsing))
}

func TestInstallPriceTermKeepsEdits(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	edited := &catalog.PriceTerm{Node: testNode, Code: "ri-1y", Name: "One year", Period: 12, ConvertibleOs: false}
	require.NoError(t, store.SavePriceTerm(ctx, edited))

	term, err := newTestContext(t, store, false).installPriceTerm(ctx, "ri-1y")
	require.NoError(t, err)
	assert.Equal(t, "One year", term.Name)
	assert.False(t, term.ConvertibleOs)

	term, err = newTestContext(t, store, true).installPriceTerm(ctx, "ri-1y")
	require.NoError(t, err)
	assert.Equal(t, "Reserved, 1yr", term.Name)
	assert.True(t, term.ConvertibleOs)
	assert.Equal(t, edited.ID, term.ID)
}

func TestCopyAsNeededOncePerRun(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	c := newTestContext(t, store, true)

	it := &catalog.InstanceType{Node: testNode, Code: "t2.micro"}
	fills := 0
	fill := func(*catalog.InstanceType) { fills++ }

	require.NoError(t, copyAsNeeded(ctx, c, it, fill, store.SaveInstanceType))
	require.NoError(t, copyAsNeeded(ctx, c, it, fill, store.SaveInstanceType))
	assert.Equal(t, 1, fills)
	assert.Equal(t, 1, store.Writes())
}

func TestSaveAsNeeded(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		force     bool
		stored    bool
		oldCost   float64
		newCost   float64
		wantSaved bool
	}{
		{name: "new entity", oldCost: 0, newCost: 0, wantSaved: true},
		{name: "same cost", stored: true, oldCost: 14.4, newCost: 14.4000001, wantSaved: false},
		{name: "changed cost", stored: true, oldCost: 14.4, newCost: 21.6, wantSaved: true},
		{name: "forced", force: true, stored: true, oldCost: 14.4, newCost: 14.4, wantSaved: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := db.NewMemoryStore()
			c := newTestContext(t, store, tt.force)
			price := &catalog.InstancePrice{Code: "p", Cost: tt.oldCost}
			if tt.stored {
				require.NoError(t, store.SaveInstancePrice(ctx, price))
			}
			writes := store.Writes()

			var rounded float64
			err := saveAsNeeded(ctx, c, price, price.Cost, tt.newCost, func(r, _ float64) { rounded = r }, store.SaveInstancePrice)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSaved, store.Writes() > writes)
			if tt.wantSaved {
				assert.Equal(t, catalog.Round3(tt.newCost), rounded)
			}
		})
	}
}

func TestInstallInstancePricesSkipsRows(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	c := newTestContext(t, store, false)

	tests := []struct {
		name string
		row  *ComputeRow
	}{
		{name: "no product match", row: &ComputeRow{Product: "Total", Cost1h: ptr(1)}},
		{name: "filtered type", row: &ComputeRow{Product: "Paris - x1.huge (1 vCPU)", Cost1h: ptr(1)}},
	}
	c.validType, _ = compilePattern("instance type", "t2.*", true)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, c.installInstancePrices(ctx, tt.row))
			assert.Empty(t, c.touched)
		})
	}
}
