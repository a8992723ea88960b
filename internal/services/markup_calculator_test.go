package services

import (
	"context"
	"testing"
	"time"

	domain "github.com/freightdesk/billing-api/internal/domain"
)

func testShipmentContext() ShipmentContext {
	return ShipmentContext{
		ShipFrom: Address{Country: "CA", Province: "ON", BusinessID: "company-1"},
		ShipTo:   Address{Country: "CA", Province: "QC"},
		Packages: []Package{
			{Weight: 100, Quantity: 5},
		},
	}
}

func TestComputeAmountPercentage(t *testing.T) {
	calc := NewMarkupCalculator(nil)
	rate := RawRate{Pricing: RatePricing{Total: 200.00}}
	rule := MarkupRule{Type: domain.MarkupTypePercentage, Value: 10}

	result := calc.ComputeAmount(context.Background(), rate, rule, testShipmentContext())

	if result.Amount != 20.00 {
		t.Fatalf("expected 20.00, got %v", result.Amount)
	}
}

func TestComputeAmountPerPound(t *testing.T) {
	calc := NewMarkupCalculator(nil)
	rate := RawRate{Pricing: RatePricing{Total: 300.00}}
	rule := MarkupRule{Type: domain.MarkupTypePerPound, Value: 0.05}

	// 100 lb × 5 packages = 500 lb total weight.
	result := calc.ComputeAmount(context.Background(), rate, rule, testShipmentContext())

	if result.Amount != 25.00 {
		t.Fatalf("expected 25.00, got %v", result.Amount)
	}
}

func TestComputeAmountPerPackageAndFixed(t *testing.T) {
	calc := NewMarkupCalculator(nil)
	rate := RawRate{Pricing: RatePricing{Total: 300.00}}
	shipment := testShipmentContext()

	perPackage := calc.ComputeAmount(context.Background(), rate, MarkupRule{Type: domain.MarkupTypePerPackage, Value: 2.50}, shipment)
	if perPackage.Amount != 12.50 {
		t.Fatalf("expected 12.50 for 5 packages, got %v", perPackage.Amount)
	}

	fixed := calc.ComputeAmount(context.Background(), rate, MarkupRule{Type: domain.MarkupTypeFixedAmount, Value: 17.35}, shipment)
	if fixed.Amount != 17.35 {
		t.Fatalf("expected 17.35, got %v", fixed.Amount)
	}
}

func TestComputeAmountClampsNegativeAndUnknownTypes(t *testing.T) {
	calc := NewMarkupCalculator(nil)
	rate := RawRate{Pricing: RatePricing{Total: 300.00}}
	shipment := testShipmentContext()

	negative := calc.ComputeAmount(context.Background(), rate, MarkupRule{Type: domain.MarkupTypeFixedAmount, Value: -50}, shipment)
	if negative.Amount != 0 {
		t.Fatalf("expected negative amount clamped to 0, got %v", negative.Amount)
	}

	unknown := calc.ComputeAmount(context.Background(), rate, MarkupRule{Type: MarkupType("TIERED"), Value: 5}, shipment)
	if unknown.Amount != 0 {
		t.Fatalf("expected unknown type to compute 0, got %v", unknown.Amount)
	}
}

func TestApplyMarkupAppendsBreakdownEntry(t *testing.T) {
	calc := NewMarkupCalculator(nil)
	rate := RawRate{Pricing: RatePricing{Total: 100.00}}

	calc.ApplyMarkup(&rate, MarkupComputation{Amount: 15.00, Type: domain.MarkupTypePercentage, Value: 15})

	if rate.Pricing.Total != 115.00 {
		t.Fatalf("expected total 115.00, got %v", rate.Pricing.Total)
	}
	if rate.Pricing.Markup != 15.00 {
		t.Fatalf("expected accumulated markup 15.00, got %v", rate.Pricing.Markup)
	}
	if len(rate.Pricing.Breakdown) != 1 {
		t.Fatalf("expected 1 breakdown entry, got %d", len(rate.Pricing.Breakdown))
	}
	entry := rate.Pricing.Breakdown[0]
	if entry.Name != "Platform Markup" || entry.Amount != 15.00 {
		t.Fatalf("unexpected breakdown entry %+v", entry)
	}
}

func TestApplyRulesKeepsCostAndChargeViewsSeparate(t *testing.T) {
	calc := NewMarkupCalculator(nil)
	now := time.Date(2024, 8, 12, 10, 0, 0, 0, time.UTC)
	rate := RawRate{
		CarrierName: "Purolator",
		Service:     "Ground",
		Pricing:     RatePricing{Total: 200.00, Breakdown: []RateBreakdownEntry{{Name: "Base", Amount: 200.00}}},
	}
	rules := []MarkupRule{
		{ID: "rule-1", Scope: domain.MarkupScopeCompany, CarrierName: "ANY", Service: "ANY", Type: domain.MarkupTypePercentage, Value: 10},
		{ID: "rule-2", Scope: domain.MarkupScopeCarrier, CarrierName: "purolator", Service: "ANY", Type: domain.MarkupTypeFixedAmount, Value: 5},
	}

	marked := calc.ApplyRules(context.Background(), rate, rules, "company-1", testShipmentContext(), now)

	if marked.Cost.Pricing.Total != 200.00 {
		t.Fatalf("cost view mutated: %v", marked.Cost.Pricing.Total)
	}
	// 10% of 200 then +5 fixed.
	if marked.Charge.Pricing.Total != 225.00 {
		t.Fatalf("expected charge total 225.00, got %v", marked.Charge.Pricing.Total)
	}
	if len(marked.Cost.Pricing.Breakdown) != 1 {
		t.Fatalf("cost breakdown gained entries: %d", len(marked.Cost.Pricing.Breakdown))
	}
	if len(marked.Charge.Pricing.Breakdown) != 3 {
		t.Fatalf("expected base + 2 markup entries, got %d", len(marked.Charge.Pricing.Breakdown))
	}

	meta := marked.Metadata
	if meta.OriginalTotal != 200.00 || meta.MarkupTotal != 225.00 {
		t.Fatalf("unexpected totals %+v", meta)
	}
	if meta.TotalMarkupAmount != 25.00 {
		t.Fatalf("expected total markup 25.00, got %v", meta.TotalMarkupAmount)
	}
	if meta.TotalMarkupPercentage != 10 || meta.TotalMarkupFixed != 5 {
		t.Fatalf("unexpected per-kind totals %+v", meta)
	}
	if len(meta.AppliedMarkups) != 2 {
		t.Fatalf("expected 2 applied markups, got %d", len(meta.AppliedMarkups))
	}
	if meta.ProcessedAt != now {
		t.Fatalf("expected processedAt %v, got %v", now, meta.ProcessedAt)
	}
	if meta.CompanyID != "company-1" {
		t.Fatalf("expected companyId recorded, got %q", meta.CompanyID)
	}
}

func TestApplyRulesSkipsNonMatchingRules(t *testing.T) {
	calc := NewMarkupCalculator(nil)
	rate := RawRate{CarrierName: "FedEx", Service: "Express", Pricing: RatePricing{Total: 100.00}}
	rules := []MarkupRule{
		{ID: "other-carrier", Scope: domain.MarkupScopeCarrier, CarrierName: "UPS", Service: "ANY", Type: domain.MarkupTypePercentage, Value: 50},
	}

	marked := calc.ApplyRules(context.Background(), rate, rules, "company-1", testShipmentContext(), time.Now())

	if marked.Charge.Pricing.Total != 100.00 {
		t.Fatalf("expected no markup applied, got %v", marked.Charge.Pricing.Total)
	}
	if len(marked.Metadata.AppliedMarkups) != 0 {
		t.Fatalf("expected no applied markups, got %+v", marked.Metadata.AppliedMarkups)
	}
}
