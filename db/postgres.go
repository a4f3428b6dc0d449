package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"fe-catalog/core/catalog"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore is a CatalogStore backed by PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to the database designated by dsn
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return NewPostgresStore(conn), nil
}

// NewPostgresStore wraps an existing connection pool
func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{db: conn}
}

// Migrate creates the catalog tables when missing
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Regions(ctx context.Context, node string) ([]*catalog.Region, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, node, name, COALESCE(description, ''), COALESCE(sub_region, ''), COALESCE(country_a2, ''),
		       COALESCE(continent_m49, 0), COALESCE(latitude, 0), COALESCE(longitude, 0)
		FROM prov_location WHERE node = $1 ORDER BY name`, node)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*catalog.Region
	for rows.Next() {
		r := &catalog.Region{}
		if err := rows.Scan(&r.ID, &r.Node, &r.Name, &r.Description, &r.SubRegion, &r.CountryA2,
			&r.ContinentM49, &r.Latitude, &r.Longitude); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InstanceTypes(ctx context.Context, node string) ([]*catalog.InstanceType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, node, code, name, COALESCE(description, ''), cpu, ram, COALESCE(processor, ''),
		       constant, auto_scale, cpu_rate, ram_rate, network_rate, storage_rate
		FROM prov_instance_type WHERE node = $1 ORDER BY code`, node)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*catalog.InstanceType
	for rows.Next() {
		t := &catalog.InstanceType{}
		if err := rows.Scan(&t.ID, &t.Node, &t.Code, &t.Name, &t.Description, &t.CPU, &t.RAM, &t.Processor,
			&t.Constant, &t.AutoScale, &t.CPURate, &t.RAMRate, &t.NetworkRate, &t.StorageRate); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PriceTerms(ctx context.Context, node string) ([]*catalog.PriceTerm, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, node, code, name, period, reservation, convertible_family, convertible_type,
		       convertible_location, convertible_os, ephemeral
		FROM prov_instance_price_term WHERE node = $1 ORDER BY code`, node)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*catalog.PriceTerm
	for rows.Next() {
		t := &catalog.PriceTerm{}
		if err := rows.Scan(&t.ID, &t.Node, &t.Code, &t.Name, &t.Period, &t.Reservation, &t.ConvertibleFamily,
			&t.ConvertibleType, &t.ConvertibleLocation, &t.ConvertibleOs, &t.Ephemeral); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InstancePrices(ctx context.Context, node string) ([]*catalog.InstancePrice, error) {
	regions, err := s.Regions(ctx, node)
	if err != nil {
		return nil, err
	}
	types, err := s.InstanceTypes(ctx, node)
	if err != nil {
		return nil, err
	}
	terms, err := s.PriceTerms(ctx, node)
	if err != nil {
		return nil, err
	}
	regionByID := make(map[uuid.UUID]*catalog.Region, len(regions))
	for _, r := range regions {
		regionByID[r.ID] = r
	}
	typeByID := make(map[uuid.UUID]*catalog.InstanceType, len(types))
	for _, t := range types {
		typeByID[t.ID] = t
	}
	termByID := make(map[uuid.UUID]*catalog.PriceTerm, len(terms))
	for _, t := range terms {
		termByID[t.ID] = t
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, location, term, type, os, COALESCE(software, ''), tenancy, period,
		       cost, cost_period, initial_cost
		FROM prov_instance_price WHERE node = $1 ORDER BY code`, node)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*catalog.InstancePrice
	for rows.Next() {
		var (
			p                             catalog.InstancePrice
			locationID, termID, typeID    uuid.UUID
			cost, costPeriod, initialCost decimal.Decimal
		)
		if err := rows.Scan(&p.ID, &p.Code, &locationID, &termID, &typeID, &p.Os, &p.Software, &p.Tenancy,
			&p.Period, &cost, &costPeriod, &initialCost); err != nil {
			return nil, err
		}
		p.Location = regionByID[locationID]
		p.Term = termByID[termID]
		p.Type = typeByID[typeID]
		p.Cost = cost.InexactFloat64()
		p.CostPeriod = costPeriod.InexactFloat64()
		p.InitialCost = initialCost.InexactFloat64()
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SupportTypes(ctx context.Context, node string) ([]*catalog.SupportType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, node, code, name, COALESCE(description, ''),
		       COALESCE(access_api, ''), COALESCE(access_chat, ''), COALESCE(access_email, ''), COALESCE(access_phone, ''),
		       COALESCE(sla_start_time, 0), COALESCE(sla_end_time, 0), COALESCE(sla_business_critical_system_down, 0),
		       COALESCE(sla_production_system_down, 0), COALESCE(sla_production_system_impaired, 0),
		       COALESCE(sla_system_impaired, 0), COALESCE(sla_general_guidance, 0), sla_week_end,
		       commitment, COALESCE(seats, 0), level
		FROM prov_support_type WHERE node = $1 ORDER BY code`, node)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*catalog.SupportType
	for rows.Next() {
		t := &catalog.SupportType{}
		if err := rows.Scan(&t.ID, &t.Node, &t.Code, &t.Name, &t.Description,
			&t.AccessAPI, &t.AccessChat, &t.AccessEmail, &t.AccessPhone,
			&t.SlaStartTime, &t.SlaEndTime, &t.SlaBusinessCriticalSystemDown,
			&t.SlaProductionSystemDown, &t.SlaProductionSystemImpaired,
			&t.SlaSystemImpaired, &t.SlaGeneralGuidance, &t.SlaWeekEnd,
			&t.Commitment, &t.Seats, &t.Level); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SupportPrices(ctx context.Context, node string) ([]*catalog.SupportPrice, error) {
	types, err := s.SupportTypes(ctx, node)
	if err != nil {
		return nil, err
	}
	typeByID := make(map[uuid.UUID]*catalog.SupportType, len(types))
	for _, t := range types {
		typeByID[t.ID] = t
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, type, COALESCE("limit", ''), COALESCE(rate, ''), min, cost
		FROM prov_support_price WHERE node = $1 ORDER BY code`, node)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*catalog.SupportPrice
	for rows.Next() {
		var (
			p         catalog.SupportPrice
			typeID    uuid.UUID
			min, cost decimal.Decimal
		)
		if err := rows.Scan(&p.ID, &p.Code, &typeID, &p.Limit, &p.Rate, &min, &cost); err != nil {
			return nil, err
		}
		p.Type = typeByID[typeID]
		p.Min = min.InexactFloat64()
		p.Cost = cost.InexactFloat64()
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveRegion(ctx context.Context, r *catalog.Region) error {
	return withID(&r.ID, func(id uuid.UUID) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO prov_location (id, node, name, description, sub_region, country_a2, continent_m49, latitude, longitude)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
			    sub_region = EXCLUDED.sub_region, country_a2 = EXCLUDED.country_a2,
			    continent_m49 = EXCLUDED.continent_m49, latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude`,
			id, r.Node, r.Name, r.Description, r.SubRegion, r.CountryA2, r.ContinentM49, r.Latitude, r.Longitude)
		return err
	})
}

func (s *PostgresStore) SaveInstanceType(ctx context.Context, t *catalog.InstanceType) error {
	return withID(&t.ID, func(id uuid.UUID) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO prov_instance_type (id, node, code, name, description, cpu, ram, processor, constant, auto_scale,
			    cpu_rate, ram_rate, network_rate, storage_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
			    cpu = EXCLUDED.cpu, ram = EXCLUDED.ram, processor = EXCLUDED.processor, constant = EXCLUDED.constant,
			    auto_scale = EXCLUDED.auto_scale, cpu_rate = EXCLUDED.cpu_rate, ram_rate = EXCLUDED.ram_rate,
			    network_rate = EXCLUDED.network_rate, storage_rate = EXCLUDED.storage_rate`,
			id, t.Node, t.Code, t.Name, t.Description, t.CPU, t.RAM, t.Processor, t.Constant, t.AutoScale,
			t.CPURate, t.RAMRate, t.NetworkRate, t.StorageRate)
		return err
	})
}

func (s *PostgresStore) SavePriceTerm(ctx context.Context, t *catalog.PriceTerm) error {
	return withID(&t.ID, func(id uuid.UUID) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO prov_instance_price_term (id, node, code, name, period, reservation, convertible_family,
			    convertible_type, convertible_location, convertible_os, ephemeral)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, period = EXCLUDED.period,
			    reservation = EXCLUDED.reservation, convertible_family = EXCLUDED.convertible_family,
			    convertible_type = EXCLUDED.convertible_type, convertible_location = EXCLUDED.convertible_location,
			    convertible_os = EXCLUDED.convertible_os, ephemeral = EXCLUDED.ephemeral`,
			id, t.Node, t.Code, t.Name, t.Period, t.Reservation, t.ConvertibleFamily, t.ConvertibleType,
			t.ConvertibleLocation, t.ConvertibleOs, t.Ephemeral)
		return err
	})
}

func (s *PostgresStore) SaveInstancePrice(ctx context.Context, p *catalog.InstancePrice) error {
	if p.Location == nil || p.Term == nil || p.Type == nil {
		return fmt.Errorf("instance price %s is not linked to its location, term and type", p.Code)
	}
	return withID(&p.ID, func(id uuid.UUID) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO prov_instance_price (id, node, code, location, term, type, os, software, tenancy, period,
			    cost, cost_period, initial_cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE SET location = EXCLUDED.location, term = EXCLUDED.term, type = EXCLUDED.type,
			    os = EXCLUDED.os, software = EXCLUDED.software, tenancy = EXCLUDED.tenancy, period = EXCLUDED.period,
			    cost = EXCLUDED.cost, cost_period = EXCLUDED.cost_period, initial_cost = EXCLUDED.initial_cost`,
			id, p.Term.Node, p.Code, p.Location.ID, p.Term.ID, p.Type.ID, p.Os, p.Software, p.Tenancy, p.Period,
			decimal.NewFromFloat(p.Cost), decimal.NewFromFloat(p.CostPeriod), decimal.NewFromFloat(p.InitialCost))
		return err
	})
}

func (s *PostgresStore) SaveSupportType(ctx context.Context, t *catalog.SupportType) error {
	return withID(&t.ID, func(id uuid.UUID) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO prov_support_type (id, node, code, name, description, access_api, access_chat, access_email,
			    access_phone, sla_start_time, sla_end_time, sla_business_critical_system_down, sla_production_system_down,
			    sla_production_system_impaired, sla_system_impaired, sla_general_guidance, sla_week_end, commitment,
			    seats, level)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
			    access_api = EXCLUDED.access_api, access_chat = EXCLUDED.access_chat, access_email = EXCLUDED.access_email,
			    access_phone = EXCLUDED.access_phone, sla_start_time = EXCLUDED.sla_start_time,
			    sla_end_time = EXCLUDED.sla_end_time,
			    sla_business_critical_system_down = EXCLUDED.sla_business_critical_system_down,
			    sla_production_system_down = EXCLUDED.sla_production_system_down,
			    sla_production_system_impaired = EXCLUDED.sla_production_system_impaired,
			    sla_system_impaired = EXCLUDED.sla_system_impaired, sla_general_guidance = EXCLUDED.sla_general_guidance,
			    sla_week_end = EXCLUDED.sla_week_end, commitment = EXCLUDED.commitment, seats = EXCLUDED.seats,
			    level = EXCLUDED.level`,
			id, t.Node, t.Code, t.Name, t.Description, t.AccessAPI, t.AccessChat, t.AccessEmail, t.AccessPhone,
			t.SlaStartTime, t.SlaEndTime, t.SlaBusinessCriticalSystemDown, t.SlaProductionSystemDown,
			t.SlaProductionSystemImpaired, t.SlaSystemImpaired, t.SlaGeneralGuidance, t.SlaWeekEnd, t.Commitment,
			t.Seats, t.Level)
		return err
	})
}

func (s *PostgresStore) SaveSupportPrice(ctx context.Context, p *catalog.SupportPrice) error {
	if p.Type == nil {
		return fmt.Errorf("support price %s has no type", p.Code)
	}
	return withID(&p.ID, func(id uuid.UUID) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO prov_support_price (id, node, code, type, "limit", rate, min, cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET type = EXCLUDED.type, "limit" = EXCLUDED."limit", rate = EXCLUDED.rate,
			    min = EXCLUDED.min, cost = EXCLUDED.cost`,
			id, p.Type.Node, p.Code, p.Type.ID, p.Limit, p.Rate, decimal.NewFromFloat(p.Min), decimal.NewFromFloat(p.Cost))
		return err
	})
}

func (s *PostgresStore) DeleteInstancePrices(ctx context.Context, node string, codes []string) (int, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM prov_instance_price WHERE node = $1 AND code = ANY($2)`,
		node, pq.Array(codes))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
