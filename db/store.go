// Package db - Catalog persistence boundary
// The ingestion core only talks to CatalogStore; implementations own ids and durability.
package db

import (
	"context"

	"github.com/google/uuid"

	"fe-catalog/core/catalog"
)

// CatalogStore persists catalog entities of a node. Save methods create the
// entity when its ID is nil and assign one, otherwise they update it in place.
type CatalogStore interface {
	Regions(ctx context.Context, node string) ([]*catalog.Region, error)
	InstanceTypes(ctx context.Context, node string) ([]*catalog.InstanceType, error)
	PriceTerms(ctx context.Context, node string) ([]*catalog.PriceTerm, error)
	// InstancePrices returns prices with location, term and type populated
	InstancePrices(ctx context.Context, node string) ([]*catalog.InstancePrice, error)
	SupportTypes(ctx context.Context, node string) ([]*catalog.SupportType, error)
	SupportPrices(ctx context.Context, node string) ([]*catalog.SupportPrice, error)

	SaveRegion(ctx context.Context, r *catalog.Region) error
	SaveInstanceType(ctx context.Context, t *catalog.InstanceType) error
	SavePriceTerm(ctx context.Context, t *catalog.PriceTerm) error
	SaveInstancePrice(ctx context.Context, p *catalog.InstancePrice) error
	SaveSupportType(ctx context.Context, t *catalog.SupportType) error
	SaveSupportPrice(ctx context.Context, p *catalog.SupportPrice) error

	// DeleteInstancePrices removes the prices of the node having one of the codes
	DeleteInstancePrices(ctx context.Context, node string, codes []string) (int, error)
}

// withID runs write with the entity id, a fresh one for a new entity. The id
// is stored back only when write succeeds, so a failed create stays new.
func withID(id *uuid.UUID, write func(uuid.UUID) error) error {
	next := *id
	if next == uuid.Nil {
		next = uuid.New()
	}
	if err := write(next); err != nil {
		return err
	}
	*id = next
	return nil
}
