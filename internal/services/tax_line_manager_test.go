package services

import (
	"reflect"
	"testing"

	domain "github.com/freightdesk/billing-api/internal/domain"
)

func testCatalog() ChargeTypeCatalog {
	return domain.NewChargeTypeCatalog([]ChargeType{
		{Code: "FRT", Label: "Freight", Taxable: true, Commissionable: true},
		{Code: "FUE", Label: "Fuel Surcharge", Taxable: true},
		{Code: "ACC", Label: "Accessorial", Taxable: true},
		{Code: "MSC", Label: "Miscellaneous", Taxable: false},
	})
}

func TestRecalculateSingleTaxableLineOntario(t *testing.T) {
	manager := NewTaxLineItemManager(nil)
	breakdown := []ChargeLine{
		{ID: "1", Code: "FRT", Description: "Freight", QuotedCharge: 100.00},
	}

	result := manager.Recalculate(breakdown, "ON", testCatalog())

	if len(result) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(result))
	}
	taxLine := result[1]
	if taxLine.Code != "HST ON" {
		t.Fatalf("expected code HST ON, got %q", taxLine.Code)
	}
	if taxLine.ActualCharge != 13.00 {
		t.Fatalf("expected charge 13.00, got %v", taxLine.ActualCharge)
	}
	if taxLine.ActualCost != 0 || taxLine.QuotedCost != 0 {
		t.Fatalf("expected zero cost, got actual=%v quoted=%v", taxLine.ActualCost, taxLine.QuotedCost)
	}
	if !taxLine.IsTax {
		t.Fatalf("expected tax line flagged isTax")
	}
	if taxLine.ID != "2" {
		t.Fatalf("expected id 2, got %q", taxLine.ID)
	}
}

func TestRecalculateIsIdempotent(t *testing.T) {
	manager := NewTaxLineItemManager(nil)
	catalog := testCatalog()
	breakdown := []ChargeLine{
		{ID: "1", Code: "FRT", Description: "Freight", QuotedCharge: 250.00},
		{ID: "2", Code: "FUE", Description: "Fuel", ActualCharge: 40.00},
		{ID: "7", Code: "HST ON", Description: "stale tax", IsTax: true, ActualCharge: 999},
	}

	once := manager.Recalculate(breakdown, "BC", catalog)
	twice := manager.Recalculate(once, "BC", catalog)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("recalculate is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}

	codes := map[string]int{}
	for _, line := range twice {
		if line.IsTax {
			codes[line.Code]++
		}
	}
	for code, count := range codes {
		if count != 1 {
			t.Fatalf("tax code %s appears %d times", code, count)
		}
	}
}

func TestRecalculateQuebecTwoComponents(t *testing.T) {
	manager := NewTaxLineItemManager(nil)
	breakdown := []ChargeLine{
		{ID: "1", Code: "FRT", Description: "Freight", QuotedCharge: 1000.00},
	}

	result := manager.Recalculate(breakdown, "QC", testCatalog())

	if len(result) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(result))
	}
	byCode := map[string]ChargeLine{}
	for _, line := range result {
		if line.IsTax {
			byCode[line.Code] = line
		}
	}
	gst, ok := byCode["GST"]
	if !ok {
		t.Fatalf("missing GST line: %+v", result)
	}
	if gst.ActualCharge != 50.00 {
		t.Fatalf("expected GST 50.00, got %v", gst.ActualCharge)
	}
	qst, ok := byCode["QST"]
	if !ok {
		t.Fatalf("missing QST line: %+v", result)
	}
	if qst.ActualCharge != 99.75 {
		t.Fatalf("expected QST 99.75, got %v", qst.ActualCharge)
	}
	if total := gst.ActualCharge + qst.ActualCharge; total != 149.75 {
		t.Fatalf("expected combined 149.75, got %v", total)
	}
}

func TestRecalculatePreservesInvoiceMetadata(t *testing.T) {
	manager := NewTaxLineItemManager(nil)
	breakdown := []ChargeLine{
		{ID: "1", Code: "FRT", Description: "Freight", QuotedCharge: 100.00},
		{ID: "2", Code: "HST ON", Description: "HST Ontario", IsTax: true, ActualCharge: 13.00, InvoiceNumber: "INV123", EDINumber: "EDI-9"},
	}

	result := manager.Recalculate(breakdown, "ON", testCatalog())

	var taxLine *ChargeLine
	for i := range result {
		if result[i].IsTax {
			taxLine = &result[i]
		}
	}
	if taxLine == nil {
		t.Fatalf("expected a tax line")
	}
	if taxLine.InvoiceNumber != "INV123" {
		t.Fatalf("expected invoice number preserved, got %q", taxLine.InvoiceNumber)
	}
	if taxLine.EDINumber != "EDI-9" {
		t.Fatalf("expected EDI number preserved, got %q", taxLine.EDINumber)
	}
}

func TestGenerateTaxLinesEmitsZeroAmountRows(t *testing.T) {
	manager := NewTaxLineItemManager(nil)

	lines := manager.GenerateTaxLines(nil, "ON", testCatalog(), 1)

	if len(lines) != 1 {
		t.Fatalf("expected 1 zero-amount tax line, got %d", len(lines))
	}
	if lines[0].ActualCharge != 0 {
		t.Fatalf("expected zero charge, got %v", lines[0].ActualCharge)
	}
	if lines[0].InvoiceNumber != "-" || lines[0].EDINumber != "-" {
		t.Fatalf("expected default metadata markers, got %q/%q", lines[0].InvoiceNumber, lines[0].EDINumber)
	}
}

func TestComputeTaxableBaseSelectsActualOverQuoted(t *testing.T) {
	manager := NewTaxLineItemManager(nil)
	breakdown := []ChargeLine{
		{ID: "1", Code: "FRT", QuotedCharge: 100.00, ActualCharge: 120.00},
		{ID: "2", Code: "FUE", QuotedCharge: 30.00},
		{ID: "3", Code: "ACC", LegacyCharge: 15.00},
		{ID: "4", Code: "MSC", QuotedCharge: 500.00},
		{ID: "5", Code: "UNKNOWN", QuotedCharge: 75.00},
		{ID: "6", Code: "GST", IsTax: true, ActualCharge: 9.99},
	}

	base := manager.ComputeTaxableBase(breakdown, testCatalog())

	// 120 (actual wins) + 30 (quoted) + 15 (legacy); MSC non-taxable,
	// UNKNOWN not in catalog, GST is a tax line.
	if base != 165.00 {
		t.Fatalf("expected taxable base 165.00, got %v", base)
	}
}

func TestRecalculateAssignsIDsAboveRetainedMax(t *testing.T) {
	manager := NewTaxLineItemManager(nil)
	breakdown := []ChargeLine{
		{ID: "41", Code: "FRT", Description: "Freight", QuotedCharge: 100.00},
		{ID: "external-id", Code: "ACC", Description: "Liftgate", QuotedCharge: 25.00},
		{ID: "3", Code: "GST", IsTax: true, ActualCharge: 1.00},
	}

	result := manager.Recalculate(breakdown, "BC", testCatalog())

	ids := map[string]bool{}
	for _, line := range result {
		if ids[line.ID] {
			t.Fatalf("duplicate id %q", line.ID)
		}
		ids[line.ID] = true
		if line.IsTax && (line.ID != "42" && line.ID != "43") {
			t.Fatalf("tax line id %q not above retained max 41", line.ID)
		}
	}
}

func TestRemoveTaxLinesRecognisesCodeOnlyLines(t *testing.T) {
	manager := NewTaxLineItemManager(nil)
	breakdown := []ChargeLine{
		{ID: "1", Code: "FRT"},
		{ID: "2", Code: "hst on"}, // legacy line missing the isTax flag
		{ID: "3", Code: "QST", IsTax: true},
	}

	nonTax := manager.RemoveTaxLines(breakdown)

	if len(nonTax) != 1 || nonTax[0].ID != "1" {
		t.Fatalf("expected only line 1 to remain, got %+v", nonTax)
	}
}

func TestRecalculateUnknownProvinceStripsTaxes(t *testing.T) {
	manager := NewTaxLineItemManager(nil)
	breakdown := []ChargeLine{
		{ID: "1", Code: "FRT", QuotedCharge: 100.00},
		{ID: "2", Code: "GST", IsTax: true, ActualCharge: 5.00},
	}

	result := manager.Recalculate(breakdown, "XX", testCatalog())

	if len(result) != 1 || result[0].ID != "1" {
		t.Fatalf("expected taxes stripped for unknown province, got %+v", result)
	}
}
