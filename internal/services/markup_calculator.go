package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "github.com/freightdesk/billing-api/internal/domain"
)

// markupEntryName labels the breakdown component added by markup application.
const markupEntryName = "Platform Markup"

// MarkupComputation is the audit-friendly result of evaluating one rule
// against one rate.
type MarkupComputation struct {
	Amount float64
	Type   MarkupType
	Value  float64
}

// MarkupCalculator turns matched markup rules into amounts and applies them
// to a rate's pricing structure.
type MarkupCalculator struct {
	logger *zap.Logger
}

// NewMarkupCalculator constructs a calculator logging through the supplied logger.
func NewMarkupCalculator(logger *zap.Logger) *MarkupCalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkupCalculator{logger: logger}
}

// ComputeAmount evaluates the rule against the rate and shipment. Amounts are
// clamped to zero; unknown rule types compute nothing and are logged rather
// than failing the quote.
func (c *MarkupCalculator) ComputeAmount(ctx context.Context, rate RawRate, rule MarkupRule, shipment ShipmentContext) MarkupComputation {
	var amount decimal.Decimal

	switch rule.Type {
	case domain.MarkupTypePercentage:
		amount = decimal.NewFromFloat(rate.Pricing.Total).
			Mul(decimal.NewFromFloat(rule.Value)).
			Div(decimal.NewFromInt(100))
	case domain.MarkupTypeFixedAmount:
		amount = decimal.NewFromFloat(rule.Value)
	case domain.MarkupTypePerPound:
		amount = decimal.NewFromFloat(shipment.TotalWeight()).Mul(decimal.NewFromFloat(rule.Value))
	case domain.MarkupTypePerPackage:
		amount = decimal.NewFromInt(int64(shipment.TotalPackages())).Mul(decimal.NewFromFloat(rule.Value))
	default:
		c.logger.Warn("unknown markup rule type",
			zap.String("rule_id", rule.ID),
			zap.String("type", string(rule.Type)),
		)
		amount = decimal.Zero
	}

	if amount.IsNegative() {
		amount = decimal.Zero
	}

	value, _ := amount.Round(2).Float64()
	return MarkupComputation{Amount: value, Type: rule.Type, Value: rule.Value}
}

// ApplyMarkup folds a computed markup into the rate's pricing: the total and
// accumulated markup grow by the amount and a named breakdown entry records
// the application.
func (c *MarkupCalculator) ApplyMarkup(rate *RawRate, result MarkupComputation) {
	if rate == nil || result.Amount <= 0 {
		return
	}
	rate.Pricing.Total += result.Amount
	rate.Pricing.Markup += result.Amount
	rate.Pricing.Breakdown = append(rate.Pricing.Breakdown, RateBreakdownEntry{
		Name:   markupEntryName,
		Amount: result.Amount,
		Type:   result.Type,
		Value:  result.Value,
	})
}

// ApplyRules applies every matching rule in resolver order and returns the
// cost view, the marked-up charge view, and the audit metadata. The input
// rate is never mutated; both views are freshly owned copies.
func (c *MarkupCalculator) ApplyRules(ctx context.Context, rate RawRate, rules []MarkupRule, companyID string, shipment ShipmentContext, now time.Time) MarkedUpRate {
	cost := cloneRate(rate)
	charge := cloneRate(rate)

	metadata := MarkupMetadata{
		OriginalTotal: rate.Pricing.Total,
		CompanyID:     companyID,
		ProcessedAt:   now,
	}

	for _, rule := range rules {
		if !MatchRule(rule, rate.CarrierName, rate.Service, companyID, shipment) {
			continue
		}
		result := c.ComputeAmount(ctx, charge, rule, shipment)
		if result.Amount <= 0 {
			continue
		}
		c.ApplyMarkup(&charge, result)

		metadata.TotalMarkupAmount += result.Amount
		switch rule.Type {
		case domain.MarkupTypePercentage:
			metadata.TotalMarkupPercentage += rule.Value
		default:
			metadata.TotalMarkupFixed += result.Amount
		}
		metadata.AppliedMarkups = append(metadata.AppliedMarkups, AppliedMarkup{
			RuleID: rule.ID,
			Scope:  rule.Scope,
			Type:   rule.Type,
			Value:  rule.Value,
			Amount: result.Amount,
		})
	}

	metadata.MarkupTotal = charge.Pricing.Total

	return MarkedUpRate{Cost: cost, Charge: charge, Metadata: metadata}
}

func cloneRate(rate RawRate) RawRate {
	cloned := rate
	if rate.Pricing.Breakdown != nil {
		cloned.Pricing.Breakdown = make([]RateBreakdownEntry, len(rate.Pricing.Breakdown))
		copy(cloned.Pricing.Breakdown, rate.Pricing.Breakdown)
	}
	if rate.Packages != nil {
		cloned.Packages = make([]Package, len(rate.Packages))
		copy(cloned.Packages, rate.Packages)
	}
	return cloned
}
