package services

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "github.com/freightdesk/billing-api/internal/domain"
	"github.com/freightdesk/billing-api/internal/repositories"
)

const defaultCatalogTTL = 5 * time.Minute

// ChargeCatalogServiceDeps bundles constructor inputs for the catalog service.
type ChargeCatalogServiceDeps struct {
	ChargeTypes repositories.ChargeTypeRepository
	CacheTTL    time.Duration
	Clock       func() time.Time
}

type chargeCatalogService struct {
	repo  repositories.ChargeTypeRepository
	ttl   time.Duration
	clock func() time.Time

	mu        sync.RWMutex
	cached    ChargeTypeCatalog
	refreshed time.Time
	primed    bool
}

// NewChargeCatalogService constructs a read-through cached view over the
// charge-type configuration collection.
func NewChargeCatalogService(deps ChargeCatalogServiceDeps) (ChargeCatalogService, error) {
	if deps.ChargeTypes == nil {
		return nil, errors.New("charge catalog service: charge type repository is required")
	}
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &chargeCatalogService{
		repo:  deps.ChargeTypes,
		ttl:   ttl,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

// Catalog returns the indexed charge-type catalog, refreshing from the
// repository when the cached copy has aged out. A refresh failure falls back
// to the last good copy when one exists.
func (s *chargeCatalogService) Catalog(ctx context.Context) (ChargeTypeCatalog, error) {
	s.mu.RLock()
	if s.primed && s.clock().Sub(s.refreshed) < s.ttl {
		cached := s.cached
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	types, err := s.repo.ListChargeTypes(ctx)
	if err != nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.primed {
			return s.cached, nil
		}
		return ChargeTypeCatalog{}, err
	}

	catalog := domain.NewChargeTypeCatalog(types)

	s.mu.Lock()
	s.cached = catalog
	s.refreshed = s.clock()
	s.primed = true
	s.mu.Unlock()

	return catalog, nil
}

var _ ChargeCatalogService = (*chargeCatalogService)(nil)
