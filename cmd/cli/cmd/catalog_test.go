package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fe-catalog/db"
	"fe-catalog/db/ingestion"
	"fe-catalog/internal/config"
	"fe-catalog/internal/errors"
)

func TestOpenStore(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		wantErr bool
	}{
		{name: "default", driver: ""},
		{name: "memory", driver: "memory"},
		{name: "unknown", driver: "sqlite", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Database.Driver = tt.driver

			store, closeStore, err := openStore(context.Background(), cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.TypeConfig))
				return
			}
			require.NoError(t, err)
			defer closeStore()
			assert.IsType(t, &db.MemoryStore{}, store)
		})
	}
}

func TestCatalogInstallCommand(t *testing.T) {
	feeds := http.NewServeMux()
	feeds.HandleFunc(ingestion.OSFeedPath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("product;cost_h;cost_m;unit;family;flavor;notes\n"))
	})
	feeds.HandleFunc(ingestion.ComputeFeedPath, func(w http.ResponseWriter, r *http.Request) {
		pad := strings.Repeat(";", 14)
		_, _ = w.Write([]byte("product;cpu;ram (GB);cost_h;cost_m" + pad + "\n" +
			"Paris - s3.large.2 (2 vCPU, 4GB RAM);2;4 GB;0,05;36" + pad + "\n"))
	})
	srv := httptest.NewServer(feeds)
	defer srv.Close()

	t.Setenv("DATABASE_URL", "")
	config.Set(config.Default())
	defer config.Set(config.Default())

	err := ExecuteArgs([]string{"catalog", "install", "--url", srv.URL, "--prune"})
	require.NoError(t, err)
	assert.Equal(t, srv.URL, config.Get().Feed.PricesURL)
}

func TestConfigShowCommand(t *testing.T) {
	config.Set(config.Default())
	defer config.Set(config.Default())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)

	require.NoError(t, ExecuteArgs([]string{"config", "show"}))
	assert.Contains(t, out.String(), "node: service:prov:fe")
	assert.Contains(t, out.String(), "prices_url: https://fe.ligoj.io")
}
