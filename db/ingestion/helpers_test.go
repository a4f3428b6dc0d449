package ingestion

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"fe-catalog/db"
)

const testNode = "service:prov:fe"

var computeHeader = []string{
	"product", "cpu", "ram (GB)", "cost_h", "cost_m",
	"cost_m_1y_no_upfront", "cost_1y_upfront_fees", "cost_m_1y_upfront",
	"cost_2y_upfront_fees", "cost_m_2y_upfront", "cost_m_3y_no_upfront",
	"cost_3y_upfront_fees", "cost_m_3y_upfront", "cost_m_5y_no_upfront",
	"cost_m_3y_convertible", "family", "generation", "flavor", "notes",
}

var osHeader = []string{"product", "cost_h", "cost_m", "unit", "family", "flavor", "notes"}

// computeRecord builds a compute feed line, costs are keyed by header
func computeRecord(product, cpu, ram string, costs map[string]string) string {
	cells := make([]string, len(computeHeader))
	cells[0], cells[1], cells[2] = product, cpu, ram
	for i, h := range computeHeader {
		if v, ok := costs[h]; ok {
			cells[i] = v
		}
	}
	return strings.Join(cells, ";")
}

func computeFeed(records ...string) string {
	return strings.Join(append([]string{strings.Join(computeHeader, ";")}, records...), "\n") + "\n"
}

// osRecord builds an OS feed line
func osRecord(product, costH, costM string) string {
	cells := make([]string, len(osHeader))
	cells[0], cells[1], cells[2] = product, costH, costM
	return strings.Join(cells, ";")
}

func osFeed(records ...string) string {
	return strings.Join(append([]string{strings.Join(osHeader, ";")}, records...), "\n") + "\n"
}

// feedServer serves both feeds, they can be replaced between runs
type feedServer struct {
	*httptest.Server

	mu      sync.Mutex
	os      string
	compute string
}

func newFeedServer(t *testing.T, osCSV, computeCSV string) *feedServer {
	t.Helper()
	s := &feedServer{os: osCSV, compute: computeCSV}
	mux := http.NewServeMux()
	mux.HandleFunc(OSFeedPath, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(s.os))
	})
	mux.HandleFunc(ComputeFeedPath, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(s.compute))
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *feedServer) setCompute(csv string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compute = csv
}

func fixtureServer(t *testing.T) *feedServer {
	t.Helper()
	osCSV, err := os.ReadFile("testdata/pricing-os.csv")
	require.NoError(t, err)
	computeCSV, err := os.ReadFile("testdata/pricing-compute.csv")
	require.NoError(t, err)
	return newFeedServer(t, string(osCSV), string(computeCSV))
}

func testOptions(url string) Options {
	return Options{
		Node:       testNode,
		PricesURL:  url,
		Delimiter:  ';',
		HoursMonth: 720,
	}
}

func newTestImporter(t *testing.T, store db.CatalogStore, opts Options, options ...Option) *Importer {
	t.Helper()
	options = append([]Option{WithLogger(zaptest.NewLogger(t))}, options...)
	imp, err := NewImporter(store, opts, options...)
	require.NoError(t, err)
	return imp
}
