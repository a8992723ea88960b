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

const (
	carrierMarkupCollection   = "markups"
	companyMarkupCollection   = "companyMarkups"
	fixedRateMarkupCollection = "fixedRateMarkups"
)

// MarkupRuleRepository reads markup rule documents from their per-scope collections.
type MarkupRuleRepository struct {
	carrier   *pfirestore.BaseRepository[markupRuleDocument]
	company   *pfirestore.BaseRepository[markupRuleDocument]
	fixedRate *pfirestore.BaseRepository[markupRuleDocument]
}

// NewMarkupRuleRepository constructs a Firestore-backed markup rule repository.
func NewMarkupRuleRepository(provider *pfirestore.Provider) (*MarkupRuleRepository, error) {
	if provider == nil {
		return nil, errors.New("markup rule repository requires firestore provider")
	}
	return &MarkupRuleRepository{
		carrier:   pfirestore.NewBaseRepository[markupRuleDocument](provider, carrierMarkupCollection, nil, nil),
		company:   pfirestore.NewBaseRepository[markupRuleDocument](provider, companyMarkupCollection, nil, nil),
		fixedRate: pfirestore.NewBaseRepository[markupRuleDocument](provider, fixedRateMarkupCollection, nil, nil),
	}, nil
}

// List returns the raw rule documents for the requested scope.
func (r *MarkupRuleRepository) List(ctx context.Context, filter repositories.MarkupRuleFilter) ([]domain.MarkupRule, error) {
	if r == nil {
		return nil, errors.New("markup rule repository not initialised")
	}

	var (
		base  *pfirestore.BaseRepository[markupRuleDocument]
		build pfirestore.QueryBuilder
	)

	switch filter.Scope {
	case domain.MarkupScopeCarrier:
		base = r.carrier
	case domain.MarkupScopeFixedRate:
		base = r.fixedRate
	case domain.MarkupScopeCompany:
		base = r.company
		companyID := strings.TrimSpace(filter.CompanyID)
		if companyID == "" {
			return nil, errors.New("markup rule repository: company id is required for company scope")
		}
		build = func(q firestore.Query) firestore.Query {
			return q.Where("companyId", "==", companyID)
		}
	default:
		return nil, fmt.Errorf("markup rule repository: unknown scope %q", filter.Scope)
	}

	docs, err := base.Query(ctx, build)
	if err != nil {
		return nil, err
	}

	rules := make([]domain.MarkupRule, 0, len(docs))
	for _, doc := range docs {
		rules = append(rules, doc.Data.toDomain(doc.ID, filter.Scope))
	}
	return rules, nil
}

var _ repositories.MarkupRuleRepository = (*MarkupRuleRepository)(nil)

type markupRuleDocument struct {
	CompanyID   string     `firestore:"companyId,omitempty"`
	CarrierName string     `firestore:"carrierName"`
	Service     string     `firestore:"service,omitempty"`
	MinWeight   float64    `firestore:"minWeight,omitempty"`
	MaxWeight   float64    `firestore:"maxWeight,omitempty"`
	FromCountry string     `firestore:"fromCountry,omitempty"`
	ToCountry   string     `firestore:"toCountry,omitempty"`
	Type        string     `firestore:"type"`
	Value       float64    `firestore:"value"`
	ExpiryDate  *time.Time `firestore:"expiryDate,omitempty"`
}

func (d markupRuleDocument) toDomain(id string, scope domain.MarkupScope) domain.MarkupRule {
	return domain.MarkupRule{
		ID:          id,
		Scope:       scope,
		CompanyID:   strings.TrimSpace(d.CompanyID),
		CarrierName: strings.TrimSpace(d.CarrierName),
		Service:     strings.TrimSpace(d.Service),
		MinWeight:   d.MinWeight,
		MaxWeight:   d.MaxWeight,
		FromCountry: strings.TrimSpace(d.FromCountry),
		ToCountry:   strings.TrimSpace(d.ToCountry),
		Type:        domain.MarkupType(strings.ToUpper(strings.TrimSpace(d.Type))),
		Value:       d.Value,
		ExpiryDate:  d.ExpiryDate,
	}
}
