package cmd

import (
	"context"
	"fmt"

	"fe-catalog/db"
	"fe-catalog/internal/config"
	"fe-catalog/internal/errors"
)

// openStore opens the catalog store selected by the configuration.
// The returned function releases it.
func openStore(ctx context.Context, cfg *config.Config) (db.CatalogStore, func(), error) {
	switch cfg.Database.Driver {
	case "", "memory":
		return db.NewMemoryStore(), func() {}, nil
	case "postgres":
		store, err := db.OpenPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return nil, nil, errors.New(errors.TypeConfig, fmt.Sprintf("unsupported database driver %q (use memory or postgres)", cfg.Database.Driver))
	}
}
