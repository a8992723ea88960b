package services

import (
	"context"

	domain "github.com/freightdesk/billing-api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	ChargeLine            = domain.ChargeLine
	ChargeType            = domain.ChargeType
	ChargeTypeCatalog     = domain.ChargeTypeCatalog
	Address               = domain.Address
	Package               = domain.Package
	ShipmentContext       = domain.ShipmentContext
	Shipment              = domain.Shipment
	MarkupRule            = domain.MarkupRule
	MarkupScope           = domain.MarkupScope
	MarkupType            = domain.MarkupType
	RawRate               = domain.RawRate
	RatePricing           = domain.RatePricing
	RateBreakdownEntry    = domain.RateBreakdownEntry
	AppliedMarkup         = domain.AppliedMarkup
	MarkupMetadata        = domain.MarkupMetadata
	MarkedUpRate          = domain.MarkedUpRate
	TaxComponent          = domain.TaxComponent
	TaxJurisdictionConfig = domain.TaxJurisdictionConfig
	SystemHealthReport    = domain.SystemHealthReport
)

// ChargeCatalogService exposes the charge-type catalog read model.
type ChargeCatalogService interface {
	Catalog(ctx context.Context) (ChargeTypeCatalog, error)
}

// MarkupService turns carrier-quoted raw rates into customer-facing rates.
type MarkupService interface {
	// MarkRates applies every matching markup rule to each rate. When rule
	// fetching fails the raw rates are returned as both cost and charge
	// views and the failure is logged; the shipment flow never aborts.
	MarkRates(ctx context.Context, companyID string, shipment ShipmentContext, rates []RawRate) ([]MarkedUpRate, error)
}

// BreakdownReconcilerService orchestrates user-driven charge line mutations
// and the tax recalculation trigger policy.
type BreakdownReconcilerService interface {
	UpsertLine(ctx context.Context, cmd UpsertChargeLineCommand) (Shipment, error)
	DeleteLine(ctx context.Context, cmd DeleteChargeLineCommand) (Shipment, error)
	SetCommissionable(ctx context.Context, cmd SetCommissionableCommand) (Shipment, error)
	RecalculateShipmentTaxes(ctx context.Context, shipmentID string) (Shipment, error)
}

// BreakdownEventPublisher notifies downstream billing/commission consumers
// after a breakdown has been persisted.
type BreakdownEventPublisher interface {
	PublishBreakdownUpdated(ctx context.Context, event BreakdownUpdatedEvent) (string, error)
}

// BreakdownUpdatedEvent is the message emitted after persistence succeeds.
type BreakdownUpdatedEvent struct {
	ShipmentID string `json:"shipmentId"`
	Revision   int64  `json:"revision"`
	Trigger    string `json:"trigger"`
	LineCount  int    `json:"lineCount"`
	TaxLines   int    `json:"taxLines"`
}

// ActualRateVisibility reports whether the caller may see carrier cost
// figures. Role resolution lives outside this engine.
type ActualRateVisibility func(ctx context.Context) bool
