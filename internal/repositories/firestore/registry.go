package firestore

import (
	"context"
	"errors"
	"fmt"

	pfirestore "github.com/freightdesk/billing-api/internal/platform/firestore"
	"github.com/freightdesk/billing-api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the repositories.Registry contract.
type Registry struct {
	provider *pfirestore.Provider

	markupRules *MarkupRuleRepository
	shipments   *ShipmentRepository
	chargeTypes *ChargeTypeRepository
	health      repositories.HealthRepository
}

// NewRegistry constructs the repository registry over a shared Firestore provider.
func NewRegistry(provider *pfirestore.Provider, health repositories.HealthRepository) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	markupRules, err := NewMarkupRuleRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("registry: markup rules: %w", err)
	}
	shipments, err := NewShipmentRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("registry: shipments: %w", err)
	}
	chargeTypes, err := NewChargeTypeRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("registry: charge types: %w", err)
	}

	return &Registry{
		provider:    provider,
		markupRules: markupRules,
		shipments:   shipments,
		chargeTypes: chargeTypes,
		health:      health,
	}, nil
}

// Close releases the shared Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// MarkupRules returns the markup rule repository.
func (r *Registry) MarkupRules() repositories.MarkupRuleRepository { return r.markupRules }

// Shipments returns the shipment repository.
func (r *Registry) Shipments() repositories.ShipmentRepository { return r.shipments }

// ChargeTypes returns the charge type repository.
func (r *Registry) ChargeTypes() repositories.ChargeTypeRepository { return r.chargeTypes }

// Health returns the dependency health repository when configured.
func (r *Registry) Health() repositories.HealthRepository { return r.health }

var _ repositories.Registry = (*Registry)(nil)
