package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/freightdesk/billing-api/internal/domain"
	"github.com/freightdesk/billing-api/internal/platform/httpx"
	"github.com/freightdesk/billing-api/internal/services"
)

const maxRateBodySize = 128 * 1024

// RateHandlers exposes the rate markup endpoint used during quoting.
type RateHandlers struct {
	markups     services.MarkupService
	canViewCost services.ActualRateVisibility
}

// NewRateHandlers constructs handlers around the markup service.
func NewRateHandlers(markups services.MarkupService, canViewCost services.ActualRateVisibility) *RateHandlers {
	return &RateHandlers{
		markups:     markups,
		canViewCost: canViewCost,
	}
}

// Routes wires the /rates endpoints onto the provided router.
func (h *RateHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/markup", h.markRates)
}

type markRatesRequest struct {
	CompanyID string           `json:"companyId"`
	Shipment  shipmentPayload  `json:"shipment"`
	Rates     []rawRatePayload `json:"rates"`
}

type shipmentPayload struct {
	ShipFrom addressPayload   `json:"shipFrom"`
	ShipTo   addressPayload   `json:"shipTo"`
	Packages []packagePayload `json:"packages,omitempty"`
}

type addressPayload struct {
	Country    string `json:"country"`
	Province   string `json:"province,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	BusinessID string `json:"businessId,omitempty"`
}

type packagePayload struct {
	Weight   float64 `json:"weight"`
	Quantity int     `json:"quantity,omitempty"`
}

type rawRatePayload struct {
	CarrierName string                 `json:"carrierName"`
	Service     string                 `json:"service"`
	Pricing     ratePricingPayload     `json:"pricing"`
	Breakdown   []rateBreakdownPayload `json:"breakdown,omitempty"`
}

type ratePricingPayload struct {
	Total float64 `json:"total"`
}

type rateBreakdownPayload struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Type   string  `json:"type,omitempty"`
}

type markedRatePayload struct {
	CarrierName string                `json:"carrierName"`
	Service     string                `json:"service"`
	Charge      ratePricingView       `json:"charge"`
	Cost        *ratePricingView      `json:"cost,omitempty"`
	Markup      markupMetadataPayload `json:"markup"`
}

type ratePricingView struct {
	Total     float64                `json:"total"`
	Breakdown []rateBreakdownPayload `json:"breakdown,omitempty"`
}

type markupMetadataPayload struct {
	OriginalTotal         float64                `json:"originalTotal,omitempty"`
	MarkupTotal           float64                `json:"markupTotal"`
	TotalMarkupAmount     float64                `json:"totalMarkupAmount"`
	TotalMarkupPercentage float64                `json:"totalMarkupPercentage,omitempty"`
	TotalMarkupFixed      float64                `json:"totalMarkupFixed,omitempty"`
	AppliedMarkups        []appliedMarkupPayload `json:"appliedMarkups,omitempty"`
	ProcessedAt           time.Time              `json:"processedAt"`
}

type appliedMarkupPayload struct {
	RuleID string  `json:"ruleId"`
	Scope  string  `json:"scope"`
	Type   string  `json:"type"`
	Value  float64 `json:"value"`
	Amount float64 `json:"amount"`
}

func (h *RateHandlers) markRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.markups == nil {
		httpx.WriteError(ctx, w, httpx.NewError("markup_service_unavailable", "markup service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxRateBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req markRatesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed rate payload", http.StatusBadRequest))
		return
	}
	if len(req.Rates) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "at least one rate is required", http.StatusBadRequest))
		return
	}

	shipment := req.Shipment.toDomain()
	rates := make([]domain.RawRate, 0, len(req.Rates))
	for _, rate := range req.Rates {
		rates = append(rates, rate.toDomain(shipment))
	}

	marked, err := h.markups.MarkRates(ctx, strings.TrimSpace(req.CompanyID), shipment, rates)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("markup_failed", "unable to apply rate markups", http.StatusInternalServerError))
		return
	}

	showCost := h.canViewCost != nil && h.canViewCost(ctx)
	payload := make([]markedRatePayload, 0, len(marked))
	for _, rate := range marked {
		payload = append(payload, buildMarkedRatePayload(rate, showCost))
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"rates": payload})
}

func buildMarkedRatePayload(rate domain.MarkedUpRate, showCost bool) markedRatePayload {
	out := markedRatePayload{
		CarrierName: rate.Charge.CarrierName,
		Service:     rate.Charge.Service,
		Charge:      buildPricingView(rate.Charge.Pricing),
		Markup: markupMetadataPayload{
			MarkupTotal:           rate.Metadata.MarkupTotal,
			TotalMarkupAmount:     rate.Metadata.TotalMarkupAmount,
			TotalMarkupPercentage: rate.Metadata.TotalMarkupPercentage,
			TotalMarkupFixed:      rate.Metadata.TotalMarkupFixed,
			ProcessedAt:           rate.Metadata.ProcessedAt,
		},
	}
	for _, applied := range rate.Metadata.AppliedMarkups {
		out.Markup.AppliedMarkups = append(out.Markup.AppliedMarkups, appliedMarkupPayload{
			RuleID: applied.RuleID,
			Scope:  string(applied.Scope),
			Type:   string(applied.Type),
			Value:  applied.Value,
			Amount: applied.Amount,
		})
	}
	if showCost {
		cost := buildPricingView(rate.Cost.Pricing)
		out.Cost = &cost
		out.Markup.OriginalTotal = rate.Metadata.OriginalTotal
	}
	return out
}

func buildPricingView(pricing domain.RatePricing) ratePricingView {
	view := ratePricingView{Total: pricing.Total}
	for _, entry := range pricing.Breakdown {
		view.Breakdown = append(view.Breakdown, rateBreakdownPayload{
			Name:   entry.Name,
			Amount: entry.Amount,
			Type:   string(entry.Type),
		})
	}
	return view
}

func (p shipmentPayload) toDomain() domain.ShipmentContext {
	packages := make([]domain.Package, 0, len(p.Packages))
	for _, pkg := range p.Packages {
		packages = append(packages, domain.Package{
			Weight:   pkg.Weight,
			Quantity: pkg.Quantity,
		})
	}
	return domain.ShipmentContext{
		ShipFrom: p.ShipFrom.toDomain(),
		ShipTo:   p.ShipTo.toDomain(),
		Packages: packages,
	}
}

func (p addressPayload) toDomain() domain.Address {
	return domain.Address{
		Country:    strings.TrimSpace(p.Country),
		Province:   strings.TrimSpace(p.Province),
		City:       strings.TrimSpace(p.City),
		PostalCode: strings.TrimSpace(p.PostalCode),
		BusinessID: strings.TrimSpace(p.BusinessID),
	}
}

func (p rawRatePayload) toDomain(shipment domain.ShipmentContext) domain.RawRate {
	breakdown := make([]domain.RateBreakdownEntry, 0, len(p.Breakdown))
	for _, entry := range p.Breakdown {
		breakdown = append(breakdown, domain.RateBreakdownEntry{
			Name:   entry.Name,
			Amount: entry.Amount,
			Type:   domain.MarkupType(strings.ToUpper(strings.TrimSpace(entry.Type))),
		})
	}
	return domain.RawRate{
		CarrierName: strings.TrimSpace(p.CarrierName),
		Service:     strings.TrimSpace(p.Service),
		Pricing: domain.RatePricing{
			Total:     p.Pricing.Total,
			Breakdown: breakdown,
		},
		Packages: shipment.Packages,
	}
}
