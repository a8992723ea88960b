package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/freightdesk/billing-api/internal/domain"
)

type stubChargeTypeRepository struct {
	calls int
	types []domain.ChargeType
	err   error
}

func (s *stubChargeTypeRepository) ListChargeTypes(ctx context.Context) ([]domain.ChargeType, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.types, nil
}

func TestCatalogCachesWithinTTL(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	repo := &stubChargeTypeRepository{types: []domain.ChargeType{
		{Code: "FRT", Label: "Freight", Taxable: true},
	}}
	svc, err := NewChargeCatalogService(ChargeCatalogServiceDeps{
		ChargeTypes: repo,
		CacheTTL:    time.Minute,
		Clock:       func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 3; i++ {
		catalog, err := svc.Catalog(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !catalog.IsTaxable("FRT") {
			t.Fatalf("expected FRT taxable")
		}
	}
	if repo.calls != 1 {
		t.Fatalf("expected 1 repository call, got %d", repo.calls)
	}
}

func TestCatalogRefreshesAfterTTL(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	repo := &stubChargeTypeRepository{types: []domain.ChargeType{{Code: "FRT", Taxable: true}}}
	svc, err := NewChargeCatalogService(ChargeCatalogServiceDeps{
		ChargeTypes: repo,
		CacheTTL:    time.Minute,
		Clock:       func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Catalog(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(2 * time.Minute)
	repo.types = append(repo.types, domain.ChargeType{Code: "FUE", Taxable: true})

	catalog, err := svc.Catalog(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.calls != 2 {
		t.Fatalf("expected 2 repository calls, got %d", repo.calls)
	}
	if !catalog.IsTaxable("FUE") {
		t.Fatalf("expected refreshed catalog to carry FUE")
	}
}

func TestCatalogFallsBackToLastGoodCopy(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	repo := &stubChargeTypeRepository{types: []domain.ChargeType{{Code: "FRT", Taxable: true}}}
	svc, err := NewChargeCatalogService(ChargeCatalogServiceDeps{
		ChargeTypes: repo,
		CacheTTL:    time.Minute,
		Clock:       func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Catalog(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(2 * time.Minute)
	repo.err = errors.New("firestore unavailable")

	catalog, err := svc.Catalog(context.Background())
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if !catalog.IsTaxable("FRT") {
		t.Fatalf("expected stale catalog to remain usable")
	}
}

func TestCatalogSurfacesErrorWhenNeverPrimed(t *testing.T) {
	repoErr := errors.New("firestore unavailable")
	repo := &stubChargeTypeRepository{err: repoErr}
	svc, err := NewChargeCatalogService(ChargeCatalogServiceDeps{ChargeTypes: repo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Catalog(context.Background()); !errors.Is(err, repoErr) {
		t.Fatalf("expected repository error, got %v", err)
	}
}
