package domain

import "time"

// ChargeCode identifies a charge category or tax code on a breakdown line.
type ChargeCode = string

// Non-tax charge categories understood by the billing engine. Comparison is
// case-insensitive everywhere these codes are consumed.
const (
	ChargeCodeFreight     ChargeCode = "FRT"
	ChargeCodeAccessorial ChargeCode = "ACC"
	ChargeCodeFuel        ChargeCode = "FUE"
	ChargeCodeMisc        ChargeCode = "MSC"
	ChargeCodeLogistics   ChargeCode = "LOG"
	ChargeCodeSurcharge   ChargeCode = "SUR"
)

// ChargeLine is one row of a shipment's billing breakdown: freight, fuel,
// accessorial, tax, or markup.
type ChargeLine struct {
	ID          string
	Code        ChargeCode
	Description string

	QuotedCost   float64
	QuotedCharge float64
	ActualCost   float64
	ActualCharge float64
	// LegacyCharge carries the single "charge" amount written by older
	// breakdown documents that predate the quoted/actual split.
	LegacyCharge float64

	IsTax    bool
	IsMarkup bool
	Taxable  bool

	InvoiceNumber  string
	EDINumber      string
	Commissionable bool
}

// ChargeAmount returns the amount a line contributes to the taxable base:
// the actual charge when one has been recorded, otherwise the quoted charge,
// falling back to the legacy single-charge field.
func (l ChargeLine) ChargeAmount() float64 {
	if l.ActualCharge > 0 {
		return l.ActualCharge
	}
	if l.QuotedCharge != 0 {
		return l.QuotedCharge
	}
	return l.LegacyCharge
}

// ChargeType is the external per-code catalog entry consumed by the engine.
type ChargeType struct {
	Code           ChargeCode
	Label          string
	Taxable        bool
	Commissionable bool
}

// Package describes one package row of a shipment quote request.
type Package struct {
	Weight   float64
	Quantity int
}

// Address is the subset of a shipment address the billing engine consumes.
type Address struct {
	Country    string
	Province   string
	City       string
	PostalCode string
	// BusinessID identifies the company at this address; company-scoped
	// markup rules match against the origin business.
	BusinessID string
}

// ShipmentContext bundles the shipment facts markup matching and tax
// resolution need. It is a read-only input assembled by the caller.
type ShipmentContext struct {
	ShipFrom Address
	ShipTo   Address
	Packages []Package
}

// TotalWeight returns the summed package weight of the shipment.
func (c ShipmentContext) TotalWeight() float64 {
	var total float64
	for _, pkg := range c.Packages {
		qty := pkg.Quantity
		if qty <= 0 {
			qty = 1
		}
		total += pkg.Weight * float64(qty)
	}
	return total
}

// TotalPackages returns the summed package quantity of the shipment.
func (c ShipmentContext) TotalPackages() int {
	var total int
	for _, pkg := range c.Packages {
		qty := pkg.Quantity
		if qty <= 0 {
			qty = 1
		}
		total += qty
	}
	return total
}

// Shipment captures the breakdown-bearing document the engine reconciles.
type Shipment struct {
	ID        string
	CompanyID string
	ShipFrom  Address
	ShipTo    Address
	Breakdown []ChargeLine
	// Revision increments on every accepted mutation; persistence results
	// carrying a stale revision are discarded rather than applied.
	Revision  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CloneBreakdown returns a value copy of the breakdown slice so edit sessions
// and persistence hand-offs never share a mutable backing array.
func CloneBreakdown(lines []ChargeLine) []ChargeLine {
	if lines == nil {
		return nil
	}
	cloned := make([]ChargeLine, len(lines))
	copy(cloned, lines)
	return cloned
}
