package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	domain "github.com/freightdesk/billing-api/internal/domain"
	"github.com/freightdesk/billing-api/internal/repositories"
)

// Mutation triggers reported on breakdown events.
const (
	triggerLineUpsert     = "line_upsert"
	triggerLineDelete     = "line_delete"
	triggerFieldUpdate    = "field_update"
	triggerAddressRecheck = "address_recheck"
)

// UpsertChargeLineCommand adds a new charge line or edits an existing one.
type UpsertChargeLineCommand struct {
	ShipmentID string
	Line       ChargeLine
}

// DeleteChargeLineCommand removes one charge line from the breakdown.
type DeleteChargeLineCommand struct {
	ShipmentID string
	LineID     string
}

// SetCommissionableCommand toggles the commissionable default on a line.
type SetCommissionableCommand struct {
	ShipmentID     string
	LineID         string
	Commissionable bool
}

// BreakdownReconcilerDeps bundles constructor inputs for the reconciler.
type BreakdownReconcilerDeps struct {
	Shipments    repositories.ShipmentRepository
	Catalog      ChargeCatalogService
	Taxes        *TaxLineItemManager
	Jurisdiction *TaxJurisdictionResolver
	Events       BreakdownEventPublisher
	Logger       *zap.Logger
	Clock        func() time.Time
	// Dispatch runs fire-and-forget persistence work. Defaults to a
	// goroutine; tests inject an inline runner.
	Dispatch func(fn func())
}

type breakdownReconciler struct {
	shipments    repositories.ShipmentRepository
	catalog      ChargeCatalogService
	taxes        *TaxLineItemManager
	jurisdiction *TaxJurisdictionResolver
	events       BreakdownEventPublisher
	logger       *zap.Logger
	clock        func() time.Time
	dispatch     func(fn func())
	sanitizer    *bluemonday.Policy
}

// NewBreakdownReconciler constructs the charge breakdown reconciler.
func NewBreakdownReconciler(deps BreakdownReconcilerDeps) (BreakdownReconcilerService, error) {
	if deps.Shipments == nil {
		return nil, errors.New("breakdown reconciler: shipment repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("breakdown reconciler: charge catalog service is required")
	}
	jurisdiction := deps.Jurisdiction
	if jurisdiction == nil {
		jurisdiction = NewTaxJurisdictionResolver(nil)
	}
	taxes := deps.Taxes
	if taxes == nil {
		taxes = NewTaxLineItemManager(jurisdiction)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	dispatch := deps.Dispatch
	if dispatch == nil {
		dispatch = func(fn func()) { go fn() }
	}
	return &breakdownReconciler{
		shipments:    deps.Shipments,
		catalog:      deps.Catalog,
		taxes:        taxes,
		jurisdiction: jurisdiction,
		events:       deps.Events,
		logger:       logger,
		clock:        func() time.Time { return clock().UTC() },
		dispatch:     dispatch,
		sanitizer:    bluemonday.StrictPolicy(),
	}, nil
}

// UpsertLine applies a user add/edit of a single charge line. Tax lines are
// applied verbatim. Adding or editing a non-tax line triggers the first tax
// computation when none exist yet and the shipment is domestic; once tax
// lines are present they stay frozen even though the taxable base may have
// moved. The save is awaited; on failure the caller receives the last
// known-good breakdown to roll back to and the line id to reopen.
func (s *breakdownReconciler) UpsertLine(ctx context.Context, cmd UpsertChargeLineCommand) (Shipment, error) {
	shipment, err := s.loadShipment(ctx, cmd.ShipmentID)
	if err != nil {
		return Shipment{}, err
	}

	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return Shipment{}, fmt.Errorf("breakdown reconciler: load catalog: %w", err)
	}

	line := cmd.Line
	line.Description = strings.TrimSpace(s.sanitizer.Sanitize(line.Description))
	line.Code = strings.ToUpper(strings.TrimSpace(line.Code))

	if err := validateLine(line, catalog); err != nil {
		return Shipment{}, err
	}

	lastKnownGood := domain.CloneBreakdown(shipment.Breakdown)
	working := domain.CloneBreakdown(shipment.Breakdown)

	if strings.TrimSpace(line.ID) == "" {
		line.ID = strconv.FormatInt(maxNumericID(working)+1, 10)
	}

	replaced := false
	for i := range working {
		if working[i].ID == line.ID {
			working[i] = line
			replaced = true
			break
		}
	}
	if !replaced {
		working = append(working, line)
	}

	province := strings.ToUpper(strings.TrimSpace(shipment.ShipTo.Province))
	_, resolvable := s.jurisdiction.ResolveConfig(province)

	// Taxes are computed once, on the transition out of the no-taxes state.
	// Later base changes intentionally leave existing tax lines untouched so
	// already-invoiced amounts cannot drift.
	if !line.IsTax && !hasTaxLines(lastKnownGood) &&
		s.jurisdiction.IsDomestic(shipment.ShipFrom, shipment.ShipTo) && resolvable {
		working = s.taxes.Recalculate(working, province, catalog)
	}

	updated, err := s.persistAwaited(ctx, shipment, working, triggerLineUpsert)
	if err != nil {
		return Shipment{}, &PersistenceError{
			LineID:        line.ID,
			LastKnownGood: lastKnownGood,
			Err:           err,
		}
	}
	return updated, nil
}

// DeleteLine removes a charge line. Deleting a tax line reruns the full tax
// recalculation against the remaining breakdown; deleting anything else
// leaves existing tax lines untouched. Persistence is fire-and-forget.
func (s *breakdownReconciler) DeleteLine(ctx context.Context, cmd DeleteChargeLineCommand) (Shipment, error) {
	shipment, err := s.loadShipment(ctx, cmd.ShipmentID)
	if err != nil {
		return Shipment{}, err
	}

	lineID := strings.TrimSpace(cmd.LineID)
	var deleted *ChargeLine
	working := make([]ChargeLine, 0, len(shipment.Breakdown))
	for _, line := range shipment.Breakdown {
		if line.ID == lineID {
			removed := line
			deleted = &removed
			continue
		}
		working = append(working, line)
	}
	if deleted == nil {
		return Shipment{}, ErrLineNotFound
	}

	if deleted.IsTax || domain.IsTaxCode(deleted.Code) {
		catalog, err := s.catalog.Catalog(ctx)
		if err != nil {
			return Shipment{}, fmt.Errorf("breakdown reconciler: load catalog: %w", err)
		}
		province := strings.ToUpper(strings.TrimSpace(shipment.ShipTo.Province))
		if _, ok := s.jurisdiction.ResolveConfig(province); ok &&
			s.jurisdiction.IsDomestic(shipment.ShipFrom, shipment.ShipTo) {
			working = s.taxes.Recalculate(working, province, catalog)
		} else {
			working = s.taxes.RemoveTaxLines(working)
		}
	}

	return s.persistOptimistic(ctx, shipment, working, triggerLineDelete), nil
}

// SetCommissionable toggles the commissionable flag on a line. The update is
// applied optimistically; a save failure is logged without reverting.
func (s *breakdownReconciler) SetCommissionable(ctx context.Context, cmd SetCommissionableCommand) (Shipment, error) {
	shipment, err := s.loadShipment(ctx, cmd.ShipmentID)
	if err != nil {
		return Shipment{}, err
	}

	lineID := strings.TrimSpace(cmd.LineID)
	working := domain.CloneBreakdown(shipment.Breakdown)
	found := false
	for i := range working {
		if working[i].ID == lineID {
			working[i].Commissionable = cmd.Commissionable
			found = true
			break
		}
	}
	if !found {
		return Shipment{}, ErrLineNotFound
	}

	return s.persistOptimistic(ctx, shipment, working, triggerFieldUpdate), nil
}

// RecalculateShipmentTaxes re-evaluates the whole breakdown against the
// shipment's current addresses: a domestic shipment with a resolvable
// province gets a full tax recalculation, anything else has every tax line
// stripped.
func (s *breakdownReconciler) RecalculateShipmentTaxes(ctx context.Context, shipmentID string) (Shipment, error) {
	shipment, err := s.loadShipment(ctx, shipmentID)
	if err != nil {
		return Shipment{}, err
	}

	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return Shipment{}, fmt.Errorf("breakdown reconciler: load catalog: %w", err)
	}

	var working []ChargeLine
	province := strings.ToUpper(strings.TrimSpace(shipment.ShipTo.Province))
	_, resolvable := s.jurisdiction.ResolveConfig(province)
	if s.jurisdiction.IsDomestic(shipment.ShipFrom, shipment.ShipTo) && resolvable {
		working = s.taxes.Recalculate(shipment.Breakdown, province, catalog)
	} else {
		working = s.taxes.RemoveTaxLines(shipment.Breakdown)
	}

	updated, err := s.persistAwaited(ctx, shipment, working, triggerAddressRecheck)
	if err != nil {
		return Shipment{}, &PersistenceError{
			LastKnownGood: domain.CloneBreakdown(shipment.Breakdown),
			Err:           err,
		}
	}
	return updated, nil
}

func (s *breakdownReconciler) loadShipment(ctx context.Context, shipmentID string) (Shipment, error) {
	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return Shipment{}, &ValidationError{Field: "shipmentId", Reason: "is required"}
	}
	shipment, err := s.shipments.FindByID(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, repositories.ErrShipmentNotFound) {
			return Shipment{}, ErrShipmentNotFound
		}
		return Shipment{}, fmt.Errorf("breakdown reconciler: load shipment: %w", err)
	}
	return shipment, nil
}

// persistAwaited saves the breakdown and blocks on confirmation. A stale
// revision means a newer trigger already won; its result stands and this one
// is discarded.
func (s *breakdownReconciler) persistAwaited(ctx context.Context, shipment Shipment, breakdown []ChargeLine, trigger string) (Shipment, error) {
	revision := shipment.Revision + 1
	if err := s.shipments.SaveBreakdown(ctx, shipment.ID, domain.CloneBreakdown(breakdown), revision); err != nil {
		if errors.Is(err, repositories.ErrStaleBreakdown) {
			s.logger.Info("discarding stale breakdown result",
				zap.String("shipment_id", shipment.ID),
				zap.Int64("revision", revision),
				zap.String("trigger", trigger),
			)
		}
		return Shipment{}, err
	}

	shipment.Breakdown = breakdown
	shipment.Revision = revision
	shipment.UpdatedAt = s.clock()

	s.publishUpdated(ctx, shipment, trigger)
	return shipment, nil
}

// persistOptimistic applies the breakdown in memory immediately and saves in
// the background; failures are logged, never surfaced, and never revert the
// returned state.
func (s *breakdownReconciler) persistOptimistic(ctx context.Context, shipment Shipment, breakdown []ChargeLine, trigger string) Shipment {
	revision := shipment.Revision + 1
	saveCtx := context.WithoutCancel(ctx)
	snapshot := domain.CloneBreakdown(breakdown)

	s.dispatch(func() {
		if err := s.shipments.SaveBreakdown(saveCtx, shipment.ID, snapshot, revision); err != nil {
			if errors.Is(err, repositories.ErrStaleBreakdown) {
				s.logger.Info("discarding stale breakdown result",
					zap.String("shipment_id", shipment.ID),
					zap.Int64("revision", revision),
					zap.String("trigger", trigger),
				)
				return
			}
			s.logger.Error("optimistic breakdown save failed",
				zap.String("shipment_id", shipment.ID),
				zap.String("trigger", trigger),
				zap.Error(err),
			)
		}
	})

	shipment.Breakdown = breakdown
	shipment.Revision = revision
	shipment.UpdatedAt = s.clock()

	s.publishUpdated(ctx, shipment, trigger)
	return shipment
}

func (s *breakdownReconciler) publishUpdated(ctx context.Context, shipment Shipment, trigger string) {
	if s.events == nil {
		return
	}
	event := BreakdownUpdatedEvent{
		ShipmentID: shipment.ID,
		Revision:   shipment.Revision,
		Trigger:    trigger,
		LineCount:  len(shipment.Breakdown),
		TaxLines:   countTaxLines(shipment.Breakdown),
	}
	eventCtx := context.WithoutCancel(ctx)
	s.dispatch(func() {
		if _, err := s.events.PublishBreakdownUpdated(eventCtx, event); err != nil {
			s.logger.Warn("breakdown event publish failed",
				zap.String("shipment_id", event.ShipmentID),
				zap.Error(err),
			)
		}
	})
}

func validateLine(line ChargeLine, catalog ChargeTypeCatalog) error {
	if line.Description == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if line.Code == "" {
		return &ValidationError{Field: "code", Reason: "is required"}
	}
	if _, ok := catalog.Lookup(line.Code); !ok && !domain.IsTaxCode(line.Code) {
		return &ValidationError{Field: "code", Reason: fmt.Sprintf("%q is not a configured charge type", line.Code)}
	}
	return nil
}

func hasTaxLines(breakdown []ChargeLine) bool {
	for _, line := range breakdown {
		if line.IsTax {
			return true
		}
	}
	return false
}

func countTaxLines(breakdown []ChargeLine) int {
	var count int
	for _, line := range breakdown {
		if line.IsTax {
			count++
		}
	}
	return count
}

var _ BreakdownReconcilerService = (*breakdownReconciler)(nil)
