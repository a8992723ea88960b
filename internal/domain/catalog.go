package domain

import "strings"

// ChargeTypeCatalog is the read model over the externally configured charge
// types. Lookups are case-insensitive; the catalog is immutable once built.
type ChargeTypeCatalog struct {
	byCode map[string]ChargeType
}

// NewChargeTypeCatalog indexes the supplied charge types by uppercase code.
// Later duplicates win, matching the configuration screens' save order.
func NewChargeTypeCatalog(types []ChargeType) ChargeTypeCatalog {
	byCode := make(map[string]ChargeType, len(types))
	for _, ct := range types {
		code := strings.ToUpper(strings.TrimSpace(ct.Code))
		if code == "" {
			continue
		}
		ct.Code = code
		byCode[code] = ct
	}
	return ChargeTypeCatalog{byCode: byCode}
}

// Lookup returns the charge type for the code when configured.
func (c ChargeTypeCatalog) Lookup(code ChargeCode) (ChargeType, bool) {
	ct, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return ct, ok
}

// IsTaxable reports whether the catalog flags the code as taxable.
func (c ChargeTypeCatalog) IsTaxable(code ChargeCode) bool {
	ct, ok := c.Lookup(code)
	return ok && ct.Taxable
}

// Len returns the number of configured charge types.
func (c ChargeTypeCatalog) Len() int { return len(c.byCode) }
