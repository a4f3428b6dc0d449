package ingestion

import (
	stderrors "errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"fe-catalog/core/catalog"
	"fe-catalog/internal/errors"
)

func digitsRow(col0 string) []string {
	raw := make([]string, minComputeFields)
	raw[0] = col0
	raw[1] = "2"
	return raw
}

func TestComputeStateNext(t *testing.T) {
	tests := []struct {
		name     string
		state    ComputeState
		raw      []string
		wantMode bool
		wantKind RowKind
	}{
		{
			name:     "convertible sentinel",
			raw:      []string{"Flexible Elastic Cloud Server (ECS)"},
			wantMode: true,
			wantKind: RowSkipped,
		},
		{
			name:     "standard sentinel",
			state:    ComputeState{Convertible: true},
			raw:      []string{"ECS - Orange Business Services Compute"},
			wantMode: false,
			wantKind: RowSkipped,
		},
		{
			name:     "sentinel is case insensitive",
			raw:      []string{"flexible ELASTIC cloud server"},
			wantMode: true,
			wantKind: RowSkipped,
		},
		{
			name:     "mode is kept by data rows",
			state:    ComputeState{Convertible: true},
			raw:      digitsRow("Paris - t2.micro (1 vCPU, 1GB RAM)"),
			wantMode: true,
			wantKind: RowData,
		},
		{
			name:     "localized header",
			raw:      digitsRow("produit"),
			wantKind: RowSkipped,
		},
		{
			name:     "too few fields",
			raw:      []string{"Paris - t2.micro (1 vCPU, 1GB RAM)", "1", "1"},
			wantKind: RowSkipped,
		},
		{
			name:     "cpu is not digits",
			raw:      append([]string{"Paris - t2.micro (1 vCPU, 1GB RAM)", "1 vCPU"}, make([]string, 17)...),
			wantKind: RowSkipped,
		},
		{
			name:     "empty record",
			raw:      []string{},
			wantKind: RowSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, kind := tt.state.Next(tt.raw)
			assert.Equal(t, tt.wantMode, next.Convertible)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestLicenceStateNext(t *testing.T) {
	windows := LicenceState{Os: catalog.WINDOWS}
	data := []string{"Paris - t2.micro (1 vCPU, 1GB RAM)", "0,01", "7,2", "", "", "", ""}

	tests := []struct {
		name      string
		state     LicenceState
		raw       []string
		wantState LicenceState
		wantKind  RowKind
	}{
		{
			name:      "windows",
			raw:       []string{"Licence Windows Server Standard (par vCPU)"},
			wantState: windows,
			wantKind:  RowLicence,
		},
		{
			name:      "redhat resets software",
			state:     LicenceState{Os: catalog.SUSE, Software: "SAP"},
			raw:       []string{"Licence RedHat Enterprise Linux (par VM)"},
			wantState: LicenceState{Os: catalog.RHEL},
			wantKind:  RowLicence,
		},
		{
			name:      "suse",
			raw:       []string{"Licence SUSE Linux Enterprise Server (par VM)"},
			wantState: LicenceState{Os: catalog.SUSE},
			wantKind:  RowLicence,
		},
		{
			name:      "suse for sap",
			raw:       []string{"Licence SUSE for SAP (par VM)"},
			wantState: LicenceState{Os: catalog.SUSE, Software: "SAP"},
			wantKind:  RowLicence,
		},
		{
			name:      "suse for sap applications",
			raw:       []string{"Licence SUSE Linux Enterprise Server for SAP Applications (par VM)"},
			wantState: LicenceState{Os: catalog.SUSE, Software: "SAP APPLICATIONS"},
			wantKind:  RowLicence,
		},
		{
			name:      "unsupported licence keeps the previous block",
			state:     windows,
			raw:       []string{"Licence Oracle Linux (par VM)"},
			wantState: windows,
			wantKind:  RowUnsupportedLicence,
		},
		{
			name:      "data row is stamped with the block",
			state:     windows,
			raw:       data,
			wantState: windows,
			wantKind:  RowData,
		},
		{
			name:      "localized header",
			state:     windows,
			raw:       []string{"Produit", "a", "b", "c", "d", "e", "f"},
			wantState: windows,
			wantKind:  RowSkipped,
		},
		{
			name:      "too few fields",
			state:     windows,
			raw:       data[:6],
			wantState: windows,
			wantKind:  RowSkipped,
		},
		{
			name:      "blank product",
			state:     windows,
			raw:       []string{"  ", "0,01", "7,2", "", "", "", ""},
			wantState: windows,
			wantKind:  RowSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, kind := tt.state.Next(tt.raw)
			assert.Equal(t, tt.wantState, next)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestComputeDecoderFixture(t *testing.T) {
	f, err := os.Open("testdata/pricing-compute.csv")
	require.NoError(t, err)
	defer f.Close()

	dec, err := NewComputeDecoder(f, ';', zaptest.NewLogger(t))
	require.NoError(t, err)

	var rows []*ComputeRow
	for {
		row, err := dec.Next()
		if stderrors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
	require.Len(t, rows, 6)

	t2 := rows[0]
	assert.Equal(t, "Paris - t2.micro (1 vCPU, 1GB RAM)", t2.Product)
	assert.Equal(t, 1.0, t2.CPU)
	assert.Equal(t, 1.0, t2.RAM)
	require.NotNil(t, t2.Cost1h)
	assert.InDelta(t, 0.02, *t2.Cost1h, 1e-9)
	assert.InDelta(t, 12.5, *t2.Cost1m, 1e-9)
	assert.Nil(t, t2.Cost1yUpfrontFee)
	assert.Nil(t, t2.Cost3yConvertiblePerMonth)
	assert.False(t, t2.Convertible)

	// RAM cell "4 GB" is sanitized
	assert.Equal(t, 4.0, rows[1].RAM)

	flex := rows[4]
	assert.True(t, flex.Convertible)
	assert.Nil(t, flex.Cost1h)
	require.NotNil(t, flex.Cost3yConvertiblePerMonth)
	assert.InDelta(t, 1238.27, *flex.Cost3yConvertiblePerMonth, 1e-9)
	assert.True(t, rows[5].Convertible)
}

func TestComputeDecoderInvalidAmount(t *testing.T) {
	feed := computeFeed(computeRecord("Paris - t2.micro (1 vCPU, 1GB RAM)", "1", "1", map[string]string{"cost_h": "1,2,3"}))
	dec, err := NewComputeDecoder(strings.NewReader(feed), ';', zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = dec.Next()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeParsing))
	assert.Contains(t, err.Error(), "cost1h")
}

func TestDecoderEmptyFeed(t *testing.T) {
	_, err := NewComputeDecoder(strings.NewReader(""), ';', zaptest.NewLogger(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeIO))

	_, err = NewOSDecoder(strings.NewReader(""), ';', zaptest.NewLogger(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeIO))
}

func TestOSDecoderFixture(t *testing.T) {
	f, err := os.Open("testdata/pricing-os.csv")
	require.NoError(t, err)
	defer f.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	dec, err := NewOSDecoder(f, ';', zap.New(core))
	require.NoError(t, err)

	var rows []*OSRow
	for {
		row, err := dec.Next()
		if stderrors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
	require.Len(t, rows, 6)

	assert.Equal(t, catalog.VmOs(""), rows[0].Os)
	assert.Equal(t, catalog.WINDOWS, rows[1].Os)
	assert.InDelta(t, 0.01, *rows[1].Cost1h, 1e-9)
	assert.InDelta(t, 7.2, *rows[1].Cost1m, 1e-9)
	assert.Equal(t, catalog.RHEL, rows[3].Os)
	assert.Equal(t, catalog.SUSE, rows[4].Os)
	assert.Equal(t, "SAP APPLICATIONS", rows[4].Software)

	// The unsupported Oracle block keeps the SUSE state
	assert.Equal(t, "Amsterdam - s3.large.2 (2 vCPU, 4GB RAM)", rows[5].Product)
	assert.Equal(t, catalog.SUSE, rows[5].Os)
	assert.Equal(t, "SAP APPLICATIONS", rows[5].Software)

	warnings := logs.FilterMessage("Unsupported licence model").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "ORACLE LINUX", warnings[0].ContextMap()["licence"])
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    *float64
		wantErr bool
	}{
		{input: "0,02", want: ptr(0.02)},
		{input: "1.5", want: ptr(1.5)},
		{input: " 1 238,27 € ", want: ptr(1238.27)},
		{input: "-3", want: ptr(-3)},
		{input: "", want: nil},
		{input: "n/a", want: nil},
		{input: "1.234,56", want: ptr(1234.56)},
		{input: "1,234.56", want: ptr(1234.56)},
		{input: "1.234.567,8", want: ptr(1234567.8)},
		{input: "-", wantErr: true},
		{input: "1,2,3", wantErr: true},
		{input: "1,2.3,4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestSanitizeQuantity(t *testing.T) {
	assert.Equal(t, "4", sanitizeQuantity("4 GB"))
	assert.Equal(t, "0,5", sanitizeQuantity("0,5Go"))
	assert.Equal(t, "8", sanitizeQuantity(" 8 vCPU"))
}

func ptr(v float64) *float64 {
	return &v
}
