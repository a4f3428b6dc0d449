package db

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"fe-catalog/core/catalog"
)

// MemoryStore is an in-process CatalogStore. Entities are copied on save and
// on load, so an edit reaches the store only through a save call.
type MemoryStore struct {
	mu sync.RWMutex

	regions       map[uuid.UUID]*catalog.Region
	types         map[uuid.UUID]*catalog.InstanceType
	terms         map[uuid.UUID]*catalog.PriceTerm
	prices        map[uuid.UUID]*priceRecord
	supportTypes  map[uuid.UUID]*catalog.SupportType
	supportPrices map[uuid.UUID]*supportPriceRecord

	// Writes counts every save call, creations included
	writes int
}

// priceRecord keeps the links of a price by id, like the foreign keys of
// prov_instance_price.
type priceRecord struct {
	price    catalog.InstancePrice
	node     string
	location uuid.UUID
	term     uuid.UUID
	typ      uuid.UUID
}

type supportPriceRecord struct {
	price catalog.SupportPrice
	node  string
	typ   uuid.UUID
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		regions:       make(map[uuid.UUID]*catalog.Region),
		types:         make(map[uuid.UUID]*catalog.InstanceType),
		terms:         make(map[uuid.UUID]*catalog.PriceTerm),
		prices:        make(map[uuid.UUID]*priceRecord),
		supportTypes:  make(map[uuid.UUID]*catalog.SupportType),
		supportPrices: make(map[uuid.UUID]*supportPriceRecord),
	}
}

// Writes returns the number of save calls received so far
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *MemoryStore) Regions(_ context.Context, node string) ([]*catalog.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := cloneAll(s.regions, func(r *catalog.Region) bool { return r.Node == node })
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) InstanceTypes(_ context.Context, node string) ([]*catalog.InstanceType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := cloneAll(s.types, func(t *catalog.InstanceType) bool { return t.Node == node })
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *MemoryStore) PriceTerms(_ context.Context, node string) ([]*catalog.PriceTerm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := cloneAll(s.terms, func(t *catalog.PriceTerm) bool { return t.Node == node })
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *MemoryStore) InstancePrices(_ context.Context, node string) ([]*catalog.InstancePrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// prices sharing a link share the loaded entity
	regions := make(map[uuid.UUID]*catalog.Region)
	terms := make(map[uuid.UUID]*catalog.PriceTerm)
	types := make(map[uuid.UUID]*catalog.InstanceType)

	var out []*catalog.InstancePrice
	for _, rec := range s.prices {
		if rec.node == "" || rec.node != node {
			continue
		}
		p := rec.price
		p.Location = link(regions, s.regions, rec.location)
		p.Term = link(terms, s.terms, rec.term)
		p.Type = link(types, s.types, rec.typ)
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *MemoryStore) SupportTypes(_ context.Context, node string) ([]*catalog.SupportType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := cloneAll(s.supportTypes, func(t *catalog.SupportType) bool { return t.Node == node })
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *MemoryStore) SupportPrices(_ context.Context, node string) ([]*catalog.SupportPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make(map[uuid.UUID]*catalog.SupportType)
	var out []*catalog.SupportPrice
	for _, rec := range s.supportPrices {
		if rec.node == "" || rec.node != node {
			continue
		}
		p := rec.price
		p.Type = link(types, s.supportTypes, rec.typ)
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *MemoryStore) SaveRegion(_ context.Context, r *catalog.Region) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return withID(&r.ID, func(id uuid.UUID) error {
		c := *r
		c.ID = id
		s.regions[id] = &c
		s.writes++
		return nil
	})
}

func (s *MemoryStore) SaveInstanceType(_ context.Context, t *catalog.InstanceType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return withID(&t.ID, func(id uuid.UUID) error {
		c := *t
		c.ID = id
		s.types[id] = &c
		s.writes++
		return nil
	})
}

func (s *MemoryStore) SavePriceTerm(_ context.Context, t *catalog.PriceTerm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return withID(&t.ID, func(id uuid.UUID) error {
		c := *t
		c.ID = id
		s.terms[id] = &c
		s.writes++
		return nil
	})
}

func (s *MemoryStore) SaveInstancePrice(_ context.Context, p *catalog.InstancePrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return withID(&p.ID, func(id uuid.UUID) error {
		rec := &priceRecord{price: *p}
		rec.price.ID = id
		rec.price.Location, rec.price.Term, rec.price.Type = nil, nil, nil
		if p.Location != nil {
			rec.location = p.Location.ID
		}
		if p.Term != nil {
			rec.node, rec.term = p.Term.Node, p.Term.ID
		}
		if p.Type != nil {
			rec.typ = p.Type.ID
		}
		s.prices[id] = rec
		s.writes++
		return nil
	})
}

func (s *MemoryStore) SaveSupportType(_ context.Context, t *catalog.SupportType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return withID(&t.ID, func(id uuid.UUID) error {
		c := *t
		c.ID = id
		s.supportTypes[id] = &c
		s.writes++
		return nil
	})
}

func (s *MemoryStore) SaveSupportPrice(_ context.Context, p *catalog.SupportPrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return withID(&p.ID, func(id uuid.UUID) error {
		rec := &supportPriceRecord{price: *p}
		rec.price.ID = id
		rec.price.Type = nil
		if p.Type != nil {
			rec.node, rec.typ = p.Type.Node, p.Type.ID
		}
		s.supportPrices[id] = rec
		s.writes++
		return nil
	})
}

func (s *MemoryStore) DeleteInstancePrices(_ context.Context, node string, codes []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[string]bool, len(codes))
	for _, c := range codes {
		wanted[c] = true
	}
	deleted := 0
	for id, rec := range s.prices {
		if rec.node != "" && rec.node == node && wanted[rec.price.Code] {
			delete(s.prices, id)
			deleted++
		}
	}
	return deleted, nil
}

func cloneAll[T any](m map[uuid.UUID]*T, keep func(*T) bool) []*T {
	var out []*T
	for _, e := range m {
		if keep(e) {
			c := *e
			out = append(out, &c)
		}
	}
	return out
}

// link returns the copy of the stored entity id, made once per load
func link[T any](loaded, stored map[uuid.UUID]*T, id uuid.UUID) *T {
	if e, ok := loaded[id]; ok {
		return e
	}
	e, ok := stored[id]
	if !ok {
		return nil
	}
	c := *e
	loaded[id] = &c
	return &c
}
