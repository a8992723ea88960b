package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/freightdesk/billing-api/internal/domain"
	"github.com/freightdesk/billing-api/internal/repositories"
)

func TestMarkRatesAppliesCompanyAndCarrierRules(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &stubMarkupRuleRepository{
		listFunc: func(ctx context.Context, filter repositories.MarkupRuleFilter) ([]domain.MarkupRule, error) {
			switch filter.Scope {
			case domain.MarkupScopeCarrier:
				return []domain.MarkupRule{{
					ID:          "carrier-pct",
					Scope:       domain.MarkupScopeCarrier,
					CarrierName: "ANY",
					Service:     "ANY",
					Type:        domain.MarkupTypePercentage,
					Value:       10,
				}}, nil
			case domain.MarkupScopeCompany:
				return []domain.MarkupRule{{
					ID:          "company-fixed",
					Scope:       domain.MarkupScopeCompany,
					CarrierName: "ANY",
					Service:     "ANY",
					Type:        domain.MarkupTypeFixedAmount,
					Value:       5,
				}}, nil
			}
			return nil, nil
		},
	}

	resolver, err := NewMarkupResolver(MarkupResolverDeps{Rules: repo, Clock: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc, err := NewMarkupService(MarkupServiceDeps{Resolver: resolver, Clock: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	shipment := ShipmentContext{
		ShipFrom: Address{Country: "CA", Province: "ON", BusinessID: "company-1"},
		ShipTo:   Address{Country: "CA", Province: "BC"},
	}
	rates := []RawRate{{
		CarrierName: "Purolator",
		Service:     "Ground",
		Pricing:     RatePricing{Total: 100},
	}}

	marked, err := svc.MarkRates(context.Background(), "company-1", shipment, rates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(marked) != 1 {
		t.Fatalf("expected 1 marked rate, got %d", len(marked))
	}
	// Company rule applies first (+5), then carrier percentage on the mutated total.
	if marked[0].Cost.Pricing.Total != 100 {
		t.Fatalf("cost view mutated: %v", marked[0].Cost.Pricing.Total)
	}
	if got := marked[0].Charge.Pricing.Total; got != 115.5 {
		t.Fatalf("expected charge total 115.5, got %v", got)
	}
	meta := marked[0].Metadata
	if meta.OriginalTotal != 100 || meta.MarkupTotal != 115.5 {
		t.Fatalf("unexpected metadata totals: %+v", meta)
	}
	if len(meta.AppliedMarkups) != 2 || meta.AppliedMarkups[0].RuleID != "company-fixed" {
		t.Fatalf("unexpected applied markups: %+v", meta.AppliedMarkups)
	}
	if meta.ProcessedAt != now {
		t.Fatalf("expected processed-at %v, got %v", now, meta.ProcessedAt)
	}
}

func TestMarkRatesFallsBackToRawRatesOnFetchFailure(t *testing.T) {
	repo := &stubMarkupRuleRepository{
		listFunc: func(ctx context.Context, filter repositories.MarkupRuleFilter) ([]domain.MarkupRule, error) {
			return nil, errors.New("firestore unavailable")
		},
	}
	resolver, err := NewMarkupResolver(MarkupResolverDeps{Rules: repo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc, err := NewMarkupService(MarkupServiceDeps{Resolver: resolver})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rates := []RawRate{
		{CarrierName: "Purolator", Service: "Ground", Pricing: RatePricing{Total: 80.25}},
		{CarrierName: "Canpar", Service: "Express", Pricing: RatePricing{Total: 120}},
	}

	marked, err := svc.MarkRates(context.Background(), "company-1", ShipmentContext{}, rates)
	if err != nil {
		t.Fatalf("expected degraded success, got error: %v", err)
	}
	if len(marked) != len(rates) {
		t.Fatalf("expected %d rates, got %d", len(rates), len(marked))
	}
	for i, m := range marked {
		if m.Cost.Pricing.Total != rates[i].Pricing.Total || m.Charge.Pricing.Total != rates[i].Pricing.Total {
			t.Fatalf("rate %d: expected both views unmarked, got cost=%v charge=%v", i, m.Cost.Pricing.Total, m.Charge.Pricing.Total)
		}
		if len(m.Metadata.AppliedMarkups) != 0 {
			t.Fatalf("rate %d: expected no applied markups, got %+v", i, m.Metadata.AppliedMarkups)
		}
		if m.Metadata.OriginalTotal != rates[i].Pricing.Total {
			t.Fatalf("rate %d: unexpected original total %v", i, m.Metadata.OriginalTotal)
		}
	}
}
