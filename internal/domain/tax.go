package domain

import "strings"

// TaxComponentType labels the kind of tax a component charges.
type TaxComponentType string

const (
	TaxTypeHST TaxComponentType = "HST"
	TaxTypeGST TaxComponentType = "GST"
	TaxTypePST TaxComponentType = "PST"
	TaxTypeQST TaxComponentType = "QST"
)

// TaxComponent is one tax code/rate pair levied in a jurisdiction.
type TaxComponent struct {
	Code ChargeCode
	Name string
	// Rate is a percentage, e.g. 13 for 13%.
	Rate float64
	Type TaxComponentType
}

// TaxJurisdictionConfig lists the ordered tax components for one province.
type TaxJurisdictionConfig struct {
	Province   string
	Components []TaxComponent
	TotalRate  float64
}

// knownTaxCodes holds the uppercase charge codes reserved for tax lines.
var knownTaxCodes = map[string]struct{}{
	"HST":    {},
	"HST ON": {},
	"HST BC": {},
	"HST NB": {},
	"HST NS": {},
	"HST NL": {},
	"HST PE": {},
	"GST":    {},
	"QST":    {},
	"PST BC": {},
	"PST SK": {},
	"PST MB": {},
}

// IsTaxCode reports whether the code belongs to the reserved tax-code
// vocabulary. Comparison is case-insensitive.
func IsTaxCode(code ChargeCode) bool {
	_, ok := knownTaxCodes[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// CanadianTaxTable returns a fresh copy of the provincial tax table keyed by
// uppercase province code. Callers own the returned map; the engine never
// reads it through package state.
func CanadianTaxTable() map[string]TaxJurisdictionConfig {
	gst := TaxComponent{Code: "GST", Name: "GST", Rate: 5, Type: TaxTypeGST}
	return map[string]TaxJurisdictionConfig{
		"ON": {
			Province:   "ON",
			Components: []TaxComponent{{Code: "HST ON", Name: "HST Ontario", Rate: 13, Type: TaxTypeHST}},
			TotalRate:  13,
		},
		"NB": {
			Province:   "NB",
			Components: []TaxComponent{{Code: "HST NB", Name: "HST New Brunswick", Rate: 15, Type: TaxTypeHST}},
			TotalRate:  15,
		},
		"NL": {
			Province:   "NL",
			Components: []TaxComponent{{Code: "HST NL", Name: "HST Newfoundland and Labrador", Rate: 15, Type: TaxTypeHST}},
			TotalRate:  15,
		},
		"PE": {
			Province:   "PE",
			Components: []TaxComponent{{Code: "HST PE", Name: "HST Prince Edward Island", Rate: 15, Type: TaxTypeHST}},
			TotalRate:  15,
		},
		"NS": {
			Province:   "NS",
			Components: []TaxComponent{{Code: "HST NS", Name: "HST Nova Scotia", Rate: 14, Type: TaxTypeHST}},
			TotalRate:  14,
		},
		"BC": {
			Province: "BC",
			Components: []TaxComponent{
				gst,
				{Code: "PST BC", Name: "PST British Columbia", Rate: 7, Type: TaxTypePST},
			},
			TotalRate: 12,
		},
		"MB": {
			Province: "MB",
			Components: []TaxComponent{
				gst,
				{Code: "PST MB", Name: "PST Manitoba", Rate: 7, Type: TaxTypePST},
			},
			TotalRate: 12,
		},
		"SK": {
			Province: "SK",
			Components: []TaxComponent{
				gst,
				{Code: "PST SK", Name: "PST Saskatchewan", Rate: 6, Type: TaxTypePST},
			},
			TotalRate: 11,
		},
		"QC": {
			Province: "QC",
			Components: []TaxComponent{
				gst,
				{Code: "QST", Name: "QST Quebec", Rate: 9.975, Type: TaxTypeQST},
			},
			TotalRate: 14.975,
		},
		"AB": {Province: "AB", Components: []TaxComponent{gst}, TotalRate: 5},
		"NT": {Province: "NT", Components: []TaxComponent{gst}, TotalRate: 5},
		"NU": {Province: "NU", Components: []TaxComponent{gst}, TotalRate: 5},
		"YT": {Province: "YT", Components: []TaxComponent{gst}, TotalRate: 5},
	}
}
