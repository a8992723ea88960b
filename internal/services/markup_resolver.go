package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	domain "github.com/freightdesk/billing-api/internal/domain"
	"github.com/freightdesk/billing-api/internal/repositories"
)

// MarkupResolverDeps bundles constructor inputs for the markup resolver.
type MarkupResolverDeps struct {
	Rules repositories.MarkupRuleRepository
	Clock func() time.Time
}

// MarkupResolver fetches and orders the markup rules applicable to a
// company's shipment. Company-specific rules sort ahead of carrier-wide ones;
// fixed-rate rules participate without extra priority.
type MarkupResolver struct {
	rules repositories.MarkupRuleRepository
	clock func() time.Time
}

// NewMarkupResolver constructs the resolver with the supplied dependencies.
func NewMarkupResolver(deps MarkupResolverDeps) (*MarkupResolver, error) {
	if deps.Rules == nil {
		return nil, errors.New("markup resolver: rule repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &MarkupResolver{
		rules: deps.Rules,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

// FetchApplicable queries the carrier-wide, company-specific, and fixed-rate
// rule sets, drops expired rules, and returns the union in application order.
func (r *MarkupResolver) FetchApplicable(ctx context.Context, companyID string) ([]MarkupRule, error) {
	now := r.clock()

	scopes := []repositories.MarkupRuleFilter{
		{Scope: domain.MarkupScopeCarrier},
		{Scope: domain.MarkupScopeFixedRate},
	}
	if trimmed := strings.TrimSpace(companyID); trimmed != "" {
		scopes = append(scopes, repositories.MarkupRuleFilter{Scope: domain.MarkupScopeCompany, CompanyID: trimmed})
	}

	var rules []MarkupRule
	for _, filter := range scopes {
		fetched, err := r.rules.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("markup resolver: fetch %s rules: %w", filter.Scope, err)
		}
		for _, rule := range fetched {
			if rule.Expired(now) {
				continue
			}
			rules = append(rules, rule)
		}
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return scopeRank(rules[i].Scope) < scopeRank(rules[j].Scope)
	})
	return rules, nil
}

func scopeRank(scope MarkupScope) int {
	if scope == domain.MarkupScopeCompany {
		return 0
	}
	return 1
}

// MatchRule reports whether the rule's predicates accept the shipment.
func MatchRule(rule MarkupRule, carrierName, service, companyID string, shipment ShipmentContext) bool {
	if !matchWildcard(rule.CarrierName, carrierName) {
		return false
	}
	if !matchWildcard(rule.Service, service) {
		return false
	}
	if !matchWeight(rule, shipment.TotalWeight()) {
		return false
	}
	if !matchCountry(rule.FromCountry, shipment.ShipFrom.Country) {
		return false
	}
	if !matchCountry(rule.ToCountry, shipment.ShipTo.Country) {
		return false
	}
	if rule.Scope == domain.MarkupScopeCompany {
		if !strings.EqualFold(strings.TrimSpace(shipment.ShipFrom.BusinessID), strings.TrimSpace(companyID)) {
			return false
		}
	}
	return true
}

func matchWildcard(pattern, value string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.EqualFold(pattern, domain.MatchAny) {
		return true
	}
	return strings.EqualFold(pattern, strings.TrimSpace(value))
}

func matchWeight(rule MarkupRule, totalWeight float64) bool {
	if rule.MinWeight > 0 && totalWeight < rule.MinWeight {
		return false
	}
	if rule.MaxWeight > 0 && totalWeight > rule.MaxWeight {
		return false
	}
	return true
}

func matchCountry(pattern, country string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.EqualFold(pattern, domain.MatchAny) {
		return true
	}
	return strings.EqualFold(pattern, strings.TrimSpace(country))
}
