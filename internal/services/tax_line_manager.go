package services

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	domain "github.com/freightdesk/billing-api/internal/domain"
)

const preservedFieldDefault = "-"

// TaxLineItemManager derives provincial tax line items from a charge
// breakdown. Recalculation is idempotent: it strips every existing tax line,
// regenerates one line per applicable tax code, and carries user-entered
// invoice/EDI metadata forward by code.
type TaxLineItemManager struct {
	jurisdiction *TaxJurisdictionResolver
}

// NewTaxLineItemManager constructs the manager over a jurisdiction resolver.
func NewTaxLineItemManager(jurisdiction *TaxJurisdictionResolver) *TaxLineItemManager {
	if jurisdiction == nil {
		jurisdiction = NewTaxJurisdictionResolver(nil)
	}
	return &TaxLineItemManager{jurisdiction: jurisdiction}
}

// ComputeTaxableBase sums the charge amounts of non-tax lines whose code the
// catalog flags as taxable.
func (m *TaxLineItemManager) ComputeTaxableBase(breakdown []ChargeLine, catalog ChargeTypeCatalog) float64 {
	base := decimal.Zero
	for _, line := range breakdown {
		if line.IsTax || domain.IsTaxCode(line.Code) {
			continue
		}
		if !catalog.IsTaxable(line.Code) {
			continue
		}
		base = base.Add(decimal.NewFromFloat(line.ChargeAmount()))
	}
	value, _ := base.Float64()
	return value
}

// GenerateTaxLines emits one line per tax component of the province's
// configuration, with charge = taxableBase × rate / 100 rounded to cents and
// cost fixed at zero. Lines are emitted even when the taxable base is zero,
// matching the historical breakdowns downstream billing already reconciles
// against.
func (m *TaxLineItemManager) GenerateTaxLines(nonTaxLines []ChargeLine, province string, catalog ChargeTypeCatalog, nextID int64) []ChargeLine {
	cfg, ok := m.jurisdiction.ResolveConfig(province)
	if !ok {
		return nil
	}

	base := decimal.NewFromFloat(m.ComputeTaxableBase(nonTaxLines, catalog))

	lines := make([]ChargeLine, 0, len(cfg.Components))
	for i, component := range cfg.Components {
		charge := base.Mul(decimal.NewFromFloat(component.Rate)).Div(decimal.NewFromInt(100)).Round(2)
		chargeValue, _ := charge.Float64()
		lines = append(lines, ChargeLine{
			ID:            strconv.FormatInt(nextID+int64(i), 10),
			Code:          component.Code,
			Description:   component.Name,
			QuotedCharge:  chargeValue,
			ActualCharge:  chargeValue,
			QuotedCost:    0,
			ActualCost:    0,
			IsTax:         true,
			Taxable:       false,
			InvoiceNumber: preservedFieldDefault,
			EDINumber:     preservedFieldDefault,
		})
	}
	return lines
}

// RemoveTaxLines filters out every tax line, whether flagged or recognised by
// its code.
func (m *TaxLineItemManager) RemoveTaxLines(breakdown []ChargeLine) []ChargeLine {
	nonTax := make([]ChargeLine, 0, len(breakdown))
	for _, line := range breakdown {
		if line.IsTax || domain.IsTaxCode(line.Code) {
			continue
		}
		nonTax = append(nonTax, line)
	}
	return nonTax
}

// MergePreservedMetadata copies invoice and EDI numbers forward from the old
// breakdown onto regenerated tax lines sharing the same code.
func (m *TaxLineItemManager) MergePreservedMetadata(newTaxLines []ChargeLine, oldBreakdown []ChargeLine) []ChargeLine {
	for i := range newTaxLines {
		code := strings.ToUpper(strings.TrimSpace(newTaxLines[i].Code))
		for _, old := range oldBreakdown {
			if !old.IsTax && !domain.IsTaxCode(old.Code) {
				continue
			}
			if strings.ToUpper(strings.TrimSpace(old.Code)) != code {
				continue
			}
			if old.InvoiceNumber != "" {
				newTaxLines[i].InvoiceNumber = old.InvoiceNumber
			}
			if old.EDINumber != "" {
				newTaxLines[i].EDINumber = old.EDINumber
			}
			break
		}
	}
	return newTaxLines
}

// Recalculate rebuilds the tax lines of a breakdown from scratch. The result
// contains the untouched non-tax lines followed by exactly one line per tax
// code of the province, with ids strictly greater than any retained numeric
// id. Applying Recalculate twice yields the same breakdown.
func (m *TaxLineItemManager) Recalculate(breakdown []ChargeLine, province string, catalog ChargeTypeCatalog) []ChargeLine {
	nonTax := m.RemoveTaxLines(breakdown)
	nextID := maxNumericID(nonTax) + 1
	taxLines := m.MergePreservedMetadata(m.GenerateTaxLines(nonTax, province, catalog, nextID), breakdown)

	merged := make([]ChargeLine, 0, len(nonTax)+len(taxLines))
	merged = append(merged, nonTax...)
	merged = append(merged, taxLines...)
	return merged
}

// maxNumericID returns the largest numeric line id present, ignoring
// externally assigned non-numeric ids.
func maxNumericID(lines []ChargeLine) int64 {
	var max int64
	for _, line := range lines {
		id, err := strconv.ParseInt(strings.TrimSpace(line.ID), 10, 64)
		if err != nil {
			continue
		}
		if id > max {
			max = id
		}
	}
	return max
}
