package domain

import "time"

// MarkupScope distinguishes where a markup rule was configured.
type MarkupScope string

const (
	// MarkupScopeCarrier applies to every company quoting the carrier.
	MarkupScopeCarrier MarkupScope = "carrier"
	// MarkupScopeCompany applies only to the configured company.
	MarkupScopeCompany MarkupScope = "company"
	// MarkupScopeFixedRate is a flat-rate rule configured per lane.
	MarkupScopeFixedRate MarkupScope = "fixed_rate"
)

// MarkupType selects how a rule's value is turned into an amount.
type MarkupType string

const (
	MarkupTypePercentage  MarkupType = "PERCENTAGE"
	MarkupTypeFixedAmount MarkupType = "FIXED_AMOUNT"
	MarkupTypePerPound    MarkupType = "PER_POUND"
	MarkupTypePerPackage  MarkupType = "PER_PACKAGE"
)

// MatchAny is the wildcard accepted by carrier and service predicates.
const MatchAny = "ANY"

// MarkupRule is one externally configured markup entry. Rules are read-only
// to the engine; expired rules are excluded at fetch time.
type MarkupRule struct {
	ID        string
	Scope     MarkupScope
	CompanyID string

	CarrierName string
	Service     string
	MinWeight   float64
	MaxWeight   float64
	FromCountry string
	ToCountry   string

	Type  MarkupType
	Value float64

	ExpiryDate *time.Time
}

// Expired reports whether the rule's expiry date has passed at the given time.
func (r MarkupRule) Expired(now time.Time) bool {
	return r.ExpiryDate != nil && !r.ExpiryDate.After(now)
}

// RateBreakdownEntry is one named component of a carrier rate's pricing.
type RateBreakdownEntry struct {
	Name   string
	Amount float64
	Type   MarkupType
	Value  float64
}

// RatePricing carries a rate's total alongside its named components.
type RatePricing struct {
	Total     float64
	Markup    float64
	Breakdown []RateBreakdownEntry
}

// RawRate is a carrier quote as returned by the quoting collaborator.
type RawRate struct {
	CarrierName string
	Service     string
	Pricing     RatePricing
	Packages    []Package
}

// AppliedMarkup records one rule application for the audit trail.
type AppliedMarkup struct {
	RuleID string
	Scope  MarkupScope
	Type   MarkupType
	Value  float64
	Amount float64
}

// MarkupMetadata is the audit block attached to a marked-up rate.
type MarkupMetadata struct {
	OriginalTotal         float64
	MarkupTotal           float64
	TotalMarkupAmount     float64
	TotalMarkupPercentage float64
	TotalMarkupFixed      float64
	AppliedMarkups        []AppliedMarkup
	CompanyID             string
	ProcessedAt           time.Time
}

// MarkedUpRate pairs the untouched cost view of a rate with the customer
// charge view produced by markup application. The two views never alias.
type MarkedUpRate struct {
	Cost     RawRate
	Charge   RawRate
	Metadata MarkupMetadata
}
