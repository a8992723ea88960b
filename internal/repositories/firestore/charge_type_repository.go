package firestore

import (
	"context"
	"errors"
	"strings"

	domain "github.com/freightdesk/billing-api/internal/domain"
	pfirestore "github.com/freightdesk/billing-api/internal/platform/firestore"
	"github.com/freightdesk/billing-api/internal/repositories"
)

const chargeTypeCollection = "chargeTypes"

// ChargeTypeRepository reads the externally managed charge-type catalog.
type ChargeTypeRepository struct {
	base *pfirestore.BaseRepository[chargeTypeDocument]
}

// NewChargeTypeRepository constructs a Firestore-backed charge type repository.
func NewChargeTypeRepository(provider *pfirestore.Provider) (*ChargeTypeRepository, error) {
	if provider == nil {
		return nil, errors.New("charge type repository requires firestore provider")
	}
	return &ChargeTypeRepository{
		base: pfirestore.NewBaseRepository[chargeTypeDocument](provider, chargeTypeCollection, nil, nil),
	}, nil
}

// ListChargeTypes returns every configured charge type.
func (r *ChargeTypeRepository) ListChargeTypes(ctx context.Context) ([]domain.ChargeType, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("charge type repository not initialised")
	}

	docs, err := r.base.Query(ctx, nil)
	if err != nil {
		return nil, err
	}

	types := make([]domain.ChargeType, 0, len(docs))
	for _, doc := range docs {
		code := strings.ToUpper(strings.TrimSpace(doc.Data.Code))
		if code == "" {
			code = strings.ToUpper(strings.TrimSpace(doc.ID))
		}
		types = append(types, domain.ChargeType{
			Code:           code,
			Label:          strings.TrimSpace(doc.Data.Label),
			Taxable:        doc.Data.Taxable,
			Commissionable: doc.Data.Commissionable,
		})
	}
	return types, nil
}

var _ repositories.ChargeTypeRepository = (*ChargeTypeRepository)(nil)

type chargeTypeDocument struct {
	Code           string `firestore:"code"`
	Label          string `firestore:"label,omitempty"`
	Taxable        bool   `firestore:"taxable"`
	Commissionable bool   `firestore:"commissionable"`
}
