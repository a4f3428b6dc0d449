package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("FE_PRICES_URL", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFormats(t *testing.T) {
	t.Setenv("FE_PRICES_URL", "")
	t.Setenv("DATABASE_URL", "")

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "json",
			file:    "config.json",
			content: `{"hours_month": 720, "filters": {"regions": "eu-.*"}, "feed": {"prices_url": "http://local"}}`,
		},
		{
			name:    "yaml",
			file:    "config.yaml",
			content: "hours_month: 720\nfilters:\n  regions: eu-.*\nfeed:\n  prices_url: http://local\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, 720.0, cfg.HoursMonth)
			assert.Equal(t, "eu-.*", cfg.Filters.Regions)
			assert.Equal(t, ".*", cfg.Filters.InstanceTypes, "unset keys keep their default")
			assert.Equal(t, "http://local", cfg.Feed.PricesURL)
			assert.Equal(t, ";", cfg.Feed.Delimiter)
		})
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("FE_PRICES_URL", "file:///srv/prices")
	t.Setenv("DATABASE_URL", "postgres://fe@localhost/catalog?sslmode=disable")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "file:///srv/prices", cfg.Feed.PricesURL)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://fe@localhost/catalog?sslmode=disable", cfg.Database.DSN)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("FE_PRICES_URL", "")
	t.Setenv("DATABASE_URL", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	cfg := Default()
	cfg.Node = "service:prov:fe:test"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "service:prov:fe:test", loaded.Node)
}
