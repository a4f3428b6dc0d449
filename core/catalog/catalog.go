// Package catalog - Provider price catalog entities
// Every entity belongs to a catalog node and is unique by code within it.
package catalog

import (
	"strings"

	"github.com/google/uuid"
)

// VmOs is an operating system a price applies to
type VmOs string

const (
	LINUX   VmOs = "LINUX"
	WINDOWS VmOs = "WINDOWS"
	RHEL    VmOs = "RHEL"
	SUSE    VmOs = "SUSE"
)

// Lower returns the code fragment used in price codes
func (o VmOs) Lower() string {
	return strings.ToLower(string(o))
}

// Rate is a coarse performance rating
type Rate int

const (
	RateWorst Rate = iota
	RateLow
	RateMedium
	RateGood
	RateBest
)

// String returns string representation
func (r Rate) String() string {
	switch r {
	case RateWorst:
		return "worst"
	case RateLow:
		return "low"
	case RateMedium:
		return "medium"
	case RateGood:
		return "good"
	case RateBest:
		return "best"
	default:
		return "unknown"
	}
}

// Tenancy of an instance price
type Tenancy string

const (
	TenancyShared    Tenancy = "SHARED"
	TenancyDedicated Tenancy = "DEDICATED"
)

// Region is a location prices are published for. Name is the stable code.
type Region struct {
	ID           uuid.UUID `json:"id"`
	Node         string    `json:"node"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	SubRegion    string    `json:"sub_region,omitempty"`
	CountryA2    string    `json:"country_a2,omitempty"`
	ContinentM49 int       `json:"continent_m49,omitempty"`
	Latitude     float64   `json:"latitude,omitempty"`
	Longitude    float64   `json:"longitude,omitempty"`
}

// IsNew reports whether the region has never been stored
func (r *Region) IsNew() bool { return r.ID == uuid.Nil }

// InstanceType is a VM flavor
type InstanceType struct {
	ID          uuid.UUID `json:"id"`
	Node        string    `json:"node"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CPU         float64   `json:"cpu"`
	// RAM in MB
	RAM         int    `json:"ram"`
	Processor   string `json:"processor,omitempty"`
	Constant    bool   `json:"constant"`
	AutoScale   bool   `json:"auto_scale"`
	CPURate     Rate   `json:"cpu_rate"`
	RAMRate     Rate   `json:"ram_rate"`
	NetworkRate Rate   `json:"network_rate"`
	StorageRate Rate   `json:"storage_rate"`
}

// IsNew reports whether the type has never been stored
func (t *InstanceType) IsNew() bool { return t.ID == uuid.Nil }

// PriceTerm is a commitment/billing option
type PriceTerm struct {
	ID   uuid.UUID `json:"id"`
	Node string    `json:"node"`
	Code string    `json:"code"`
	Name string    `json:"name"`
	// Period in months, 0 for no commitment
	Period              int  `json:"period"`
	Reservation         bool `json:"reservation"`
	ConvertibleFamily   bool `json:"convertible_family"`
	ConvertibleType     bool `json:"convertible_type"`
	ConvertibleLocation bool `json:"convertible_location"`
	ConvertibleOs       bool `json:"convertible_os"`
	Ephemeral           bool `json:"ephemeral"`
}

// IsNew reports whether the term has never been stored
func (t *PriceTerm) IsNew() bool { return t.ID == uuid.Nil }

// InstancePrice is the priced unit: region, term, type, OS and optional software.
type InstancePrice struct {
	ID       uuid.UUID     `json:"id"`
	Code     string        `json:"code"`
	Location *Region       `json:"location"`
	Term     *PriceTerm    `json:"term"`
	Type     *InstanceType `json:"type"`
	Os       VmOs          `json:"os"`
	Software string        `json:"software,omitempty"`
	Tenancy  Tenancy       `json:"tenancy"`
	Period   int           `json:"period"`

	// Cost is the monthly cost
	Cost float64 `json:"cost"`
	// CostPeriod is the cost of the whole term, upfront fee included
	CostPeriod float64 `json:"cost_period"`
	// InitialCost is the upfront fee
	InitialCost float64 `json:"initial_cost"`
}

// IsNew reports whether the price has never been stored
func (p *InstancePrice) IsNew() bool { return p.ID == uuid.Nil }

// PriceCode builds the code identifying a price within a node. Software
// variants of the same OS share one code.
func PriceCode(region, term, instanceType string, os VmOs) string {
	return strings.ToLower(strings.Join([]string{region, term, instanceType, string(os)}, "/"))
}

// SupportType is a support plan
type SupportType struct {
	ID          uuid.UUID `json:"id"`
	Node        string    `json:"node"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`

	// Access channels: "", "ALL" or "BUSINESS_HOURS"
	AccessAPI   string `json:"access_api,omitempty"`
	AccessChat  string `json:"access_chat,omitempty"`
	AccessEmail string `json:"access_email,omitempty"`
	AccessPhone string `json:"access_phone,omitempty"`

	// SLA delays in minutes, 0 when not provided
	SlaStartTime                  int  `json:"sla_start_time,omitempty"`
	SlaEndTime                    int  `json:"sla_end_time,omitempty"`
	SlaBusinessCriticalSystemDown int  `json:"sla_business_critical_system_down,omitempty"`
	SlaProductionSystemDown       int  `json:"sla_production_system_down,omitempty"`
	SlaProductionSystemImpaired   int  `json:"sla_production_system_impaired,omitempty"`
	SlaSystemImpaired             int  `json:"sla_system_impaired,omitempty"`
	SlaGeneralGuidance            int  `json:"sla_general_guidance,omitempty"`
	SlaWeekEnd                    bool `json:"sla_week_end"`

	// Commitment in months
	Commitment int  `json:"commitment"`
	Seats      int  `json:"seats,omitempty"`
	Level      Rate `json:"level"`
}

// IsNew reports whether the support type has never been stored
func (t *SupportType) IsNew() bool { return t.ID == uuid.Nil }

// SupportPrice is the price of a support plan
type SupportPrice struct {
	ID   uuid.UUID    `json:"id"`
	Code string       `json:"code"`
	Type *SupportType `json:"type"`

	// Limit and Rate are ";" separated tiers, percents applied to the bill
	Limit string  `json:"limit,omitempty"`
	Rate  string  `json:"rate,omitempty"`
	Min   float64 `json:"min"`
	Cost  float64 `json:"cost"`
}

// IsNew reports whether the support price has never been stored
func (p *SupportPrice) IsNew() bool { return p.ID == uuid.Nil }
