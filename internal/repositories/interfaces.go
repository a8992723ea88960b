package repositories

import (
	"context"

	domain "github.com/freightdesk/billing-api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	MarkupRules() MarkupRuleRepository
	Shipments() ShipmentRepository
	ChargeTypes() ChargeTypeRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// MarkupRuleFilter scopes a markup rule query.
type MarkupRuleFilter struct {
	Scope     domain.MarkupScope
	CompanyID string
}

// MarkupRuleRepository reads externally managed markup rule sets.
type MarkupRuleRepository interface {
	// List returns the rules matching the filter. Expired rules are filtered
	// out by the caller supplying "now"; repositories return raw documents.
	List(ctx context.Context, filter MarkupRuleFilter) ([]domain.MarkupRule, error)
}

// ShipmentRepository loads and persists shipment billing breakdowns.
type ShipmentRepository interface {
	FindByID(ctx context.Context, shipmentID string) (domain.Shipment, error)
	// SaveBreakdown persists the breakdown for the shipment only when the
	// stored revision is lower than the supplied one, returning a conflict
	// error otherwise. The slice is a value copy owned by the repository.
	SaveBreakdown(ctx context.Context, shipmentID string, breakdown []domain.ChargeLine, revision int64) error
}

// ChargeTypeRepository reads the charge-type catalog configured elsewhere.
type ChargeTypeRepository interface {
	ListChargeTypes(ctx context.Context) ([]domain.ChargeType, error)
}

// HealthRepository aggregates dependency probes for readiness checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
