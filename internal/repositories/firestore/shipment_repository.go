package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/freightdesk/billing-api/internal/domain"
	pfirestore "github.com/freightdesk/billing-api/internal/platform/firestore"
	"github.com/freightdesk/billing-api/internal/repositories"
)

const shipmentCollection = "shipments"

// ShipmentRepository persists shipment billing breakdowns in Firestore.
type ShipmentRepository struct {
	base     *pfirestore.BaseRepository[shipmentDocument]
	provider *pfirestore.Provider
}

// NewShipmentRepository constructs a Firestore-backed shipment repository.
func NewShipmentRepository(provider *pfirestore.Provider) (*ShipmentRepository, error) {
	if provider == nil {
		return nil, errors.New("shipment repository requires firestore provider")
	}
	return &ShipmentRepository{
		base:     pfirestore.NewBaseRepository[shipmentDocument](provider, shipmentCollection, nil, nil),
		provider: provider,
	}, nil
}

// FindByID loads the shipment together with its charge breakdown.
func (r *ShipmentRepository) FindByID(ctx context.Context, shipmentID string) (domain.Shipment, error) {
	if r == nil || r.base == nil {
		return domain.Shipment{}, errors.New("shipment repository not initialised")
	}
	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return domain.Shipment{}, errors.New("shipment repository: shipment id is required")
	}

	doc, err := r.base.Get(ctx, shipmentID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.Shipment{}, repositories.ErrShipmentNotFound
		}
		return domain.Shipment{}, err
	}

	return doc.Data.toDomain(doc.ID, doc.CreateTime, doc.UpdateTime), nil
}

// SaveBreakdown writes the breakdown guarded by the revision counter. A save
// computed against an older revision than the stored document fails with
// ErrStaleBreakdown so late persistence completions cannot clobber newer
// trigger results.
func (r *ShipmentRepository) SaveBreakdown(ctx context.Context, shipmentID string, breakdown []domain.ChargeLine, revision int64) error {
	if r == nil || r.base == nil {
		return errors.New("shipment repository not initialised")
	}
	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return errors.New("shipment repository: shipment id is required")
	}
	if revision <= 0 {
		return fmt.Errorf("shipment repository: revision must be positive, got %d", revision)
	}

	docRef, err := r.base.DocumentRef(ctx, shipmentID)
	if err != nil {
		return err
	}

	lines := make([]chargeLineDocument, 0, len(breakdown))
	for _, line := range breakdown {
		lines = append(lines, chargeLineFromDomain(line))
	}

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			return pfirestore.WrapError("shipments.save", err)
		}

		var stored shipmentDocument
		if err := snap.DataTo(&stored); err != nil {
			return fmt.Errorf("shipments.save: decode: %w", err)
		}
		if stored.Revision >= revision {
			return repositories.ErrStaleBreakdown
		}

		return tx.Update(docRef, []firestore.Update{
			{Path: "chargesBreakdown", Value: lines},
			{Path: "revision", Value: revision},
			{Path: "updatedAt", Value: time.Now().UTC()},
		})
	})
}

var _ repositories.ShipmentRepository = (*ShipmentRepository)(nil)

type shipmentDocument struct {
	CompanyID        string               `firestore:"companyId"`
	ShipFrom         addressDocument      `firestore:"shipFrom"`
	ShipTo           addressDocument      `firestore:"shipTo"`
	ChargesBreakdown []chargeLineDocument `firestore:"chargesBreakdown"`
	Revision         int64                `firestore:"revision"`
	UpdatedAt        time.Time            `firestore:"updatedAt"`
}

type addressDocument struct {
	Country    string `firestore:"country"`
	Province   string `firestore:"state,omitempty"`
	City       string `firestore:"city,omitempty"`
	PostalCode string `firestore:"postalCode,omitempty"`
	BusinessID string `firestore:"businessId,omitempty"`
}

type chargeLineDocument struct {
	ID             string  `firestore:"id"`
	Code           string  `firestore:"code"`
	Description    string  `firestore:"description"`
	QuotedCost     float64 `firestore:"quotedCost"`
	QuotedCharge   float64 `firestore:"quotedCharge"`
	ActualCost     float64 `firestore:"actualCost"`
	ActualCharge   float64 `firestore:"actualCharge"`
	LegacyCharge   float64 `firestore:"charge,omitempty"`
	IsTax          bool    `firestore:"isTax"`
	IsMarkup       bool    `firestore:"isMarkup,omitempty"`
	InvoiceNumber  string  `firestore:"invoiceNumber,omitempty"`
	EDINumber      string  `firestore:"ediNumber,omitempty"`
	Commissionable bool    `firestore:"commissionable"`
}

func chargeLineFromDomain(line domain.ChargeLine) chargeLineDocument {
	return chargeLineDocument{
		ID:             line.ID,
		Code:           line.Code,
		Description:    line.Description,
		QuotedCost:     line.QuotedCost,
		QuotedCharge:   line.QuotedCharge,
		ActualCost:     line.ActualCost,
		ActualCharge:   line.ActualCharge,
		LegacyCharge:   line.LegacyCharge,
		IsTax:          line.IsTax,
		IsMarkup:       line.IsMarkup,
		InvoiceNumber:  line.InvoiceNumber,
		EDINumber:      line.EDINumber,
		Commissionable: line.Commissionable,
	}
}

func (d chargeLineDocument) toDomain() domain.ChargeLine {
	return domain.ChargeLine{
		ID:             d.ID,
		Code:           d.Code,
		Description:    d.Description,
		QuotedCost:     d.QuotedCost,
		QuotedCharge:   d.QuotedCharge,
		ActualCost:     d.ActualCost,
		ActualCharge:   d.ActualCharge,
		LegacyCharge:   d.LegacyCharge,
		IsTax:          d.IsTax,
		IsMarkup:       d.IsMarkup,
		InvoiceNumber:  d.InvoiceNumber,
		EDINumber:      d.EDINumber,
		Commissionable: d.Commissionable,
	}
}

func (d addressDocument) toDomain() domain.Address {
	return domain.Address{
		Country:    strings.TrimSpace(d.Country),
		Province:   strings.TrimSpace(d.Province),
		City:       strings.TrimSpace(d.City),
		PostalCode: strings.TrimSpace(d.PostalCode),
		BusinessID: strings.TrimSpace(d.BusinessID),
	}
}

func (d shipmentDocument) toDomain(id string, createdAt, updatedAt time.Time) domain.Shipment {
	lines := make([]domain.ChargeLine, 0, len(d.ChargesBreakdown))
	for _, line := range d.ChargesBreakdown {
		lines = append(lines, line.toDomain())
	}
	shipment := domain.Shipment{
		ID:        id,
		CompanyID: strings.TrimSpace(d.CompanyID),
		ShipFrom:  d.ShipFrom.toDomain(),
		ShipTo:    d.ShipTo.toDomain(),
		Breakdown: lines,
		Revision:  d.Revision,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if !d.UpdatedAt.IsZero() {
		shipment.UpdatedAt = d.UpdatedAt
	}
	return shipment
}
