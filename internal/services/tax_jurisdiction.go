package services

import (
	"strings"

	domain "github.com/freightdesk/billing-api/internal/domain"
)

const domesticCountry = "CA"

// TaxJurisdictionResolver answers whether provincial tax applies to a
// shipment and which tax components a province levies. The provincial table
// is injected at construction and never mutated.
type TaxJurisdictionResolver struct {
	table map[string]TaxJurisdictionConfig
}

// NewTaxJurisdictionResolver builds a resolver over the supplied table,
// defaulting to the Canadian provincial table when none is given.
func NewTaxJurisdictionResolver(table map[string]TaxJurisdictionConfig) *TaxJurisdictionResolver {
	if len(table) == 0 {
		table = domain.CanadianTaxTable()
	}
	copied := make(map[string]TaxJurisdictionConfig, len(table))
	for province, cfg := range table {
		copied[strings.ToUpper(strings.TrimSpace(province))] = cfg
	}
	return &TaxJurisdictionResolver{table: copied}
}

// IsDomestic reports whether both shipment endpoints are in Canada.
func (r *TaxJurisdictionResolver) IsDomestic(shipFrom, shipTo Address) bool {
	return strings.ToUpper(strings.TrimSpace(shipFrom.Country)) == domesticCountry &&
		strings.ToUpper(strings.TrimSpace(shipTo.Country)) == domesticCountry
}

// ResolveConfig looks up the tax configuration for a province. A false return
// means no tax applies.
func (r *TaxJurisdictionResolver) ResolveConfig(province string) (TaxJurisdictionConfig, bool) {
	cfg, ok := r.table[strings.ToUpper(strings.TrimSpace(province))]
	return cfg, ok
}
