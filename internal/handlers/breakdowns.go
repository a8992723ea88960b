package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/freightdesk/billing-api/internal/domain"
	"github.com/freightdesk/billing-api/internal/platform/httpx"
	"github.com/freightdesk/billing-api/internal/repositories"
	"github.com/freightdesk/billing-api/internal/services"
)

const maxBreakdownBodySize = 32 * 1024

// BreakdownHandlers exposes the shipment charge breakdown mutation endpoints.
type BreakdownHandlers struct {
	reconciler  services.BreakdownReconcilerService
	canViewCost services.ActualRateVisibility
}

// NewBreakdownHandlers constructs handlers around the breakdown reconciler.
func NewBreakdownHandlers(reconciler services.BreakdownReconcilerService, canViewCost services.ActualRateVisibility) *BreakdownHandlers {
	return &BreakdownHandlers{
		reconciler:  reconciler,
		canViewCost: canViewCost,
	}
}

// Routes wires the /shipments breakdown endpoints onto the provided router.
func (h *BreakdownHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/{shipmentID}/breakdown", func(r chi.Router) {
		r.Put("/lines", h.upsertLine)
		r.Delete("/lines/{lineID}", h.deleteLine)
		r.Patch("/lines/{lineID}/commissionable", h.setCommissionable)
		r.Post("/recalculate-taxes", h.recalculateTaxes)
	})
}

type chargeLinePayload struct {
	ID             string  `json:"id,omitempty"`
	Code           string  `json:"code"`
	Description    string  `json:"description"`
	QuotedCost     float64 `json:"quotedCost,omitempty"`
	QuotedCharge   float64 `json:"quotedCharge,omitempty"`
	ActualCost     float64 `json:"actualCost,omitempty"`
	ActualCharge   float64 `json:"actualCharge,omitempty"`
	IsTax          bool    `json:"isTax,omitempty"`
	IsMarkup       bool    `json:"isMarkup,omitempty"`
	InvoiceNumber  string  `json:"invoiceNumber,omitempty"`
	EDINumber      string  `json:"ediNumber,omitempty"`
	Commissionable bool    `json:"commissionable,omitempty"`
}

type breakdownResponse struct {
	ShipmentID string              `json:"shipmentId"`
	Revision   int64               `json:"revision"`
	Breakdown  []chargeLinePayload `json:"breakdown"`
}

type commissionablePayload struct {
	Commissionable bool `json:"commissionable"`
}

func (h *BreakdownHandlers) upsertLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reconciler == nil {
		httpx.WriteError(ctx, w, httpx.NewError("breakdown_service_unavailable", "breakdown service is unavailable", http.StatusServiceUnavailable))
		return
	}

	shipmentID := chi.URLParam(r, "shipmentID")

	body, err := readLimitedBody(r, maxBreakdownBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload chargeLinePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed charge line payload", http.StatusBadRequest))
		return
	}

	updated, err := h.reconciler.UpsertLine(ctx, services.UpsertChargeLineCommand{
		ShipmentID: shipmentID,
		Line:       payload.toDomain(),
	})
	if err != nil {
		h.writeBreakdownError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, h.buildResponse(ctx, updated))
}

func (h *BreakdownHandlers) deleteLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reconciler == nil {
		httpx.WriteError(ctx, w, httpx.NewError("breakdown_service_unavailable", "breakdown service is unavailable", http.StatusServiceUnavailable))
		return
	}

	updated, err := h.reconciler.DeleteLine(ctx, services.DeleteChargeLineCommand{
		ShipmentID: chi.URLParam(r, "shipmentID"),
		LineID:     chi.URLParam(r, "lineID"),
	})
	if err != nil {
		h.writeBreakdownError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, h.buildResponse(ctx, updated))
}

func (h *BreakdownHandlers) setCommissionable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reconciler == nil {
		httpx.WriteError(ctx, w, httpx.NewError("breakdown_service_unavailable", "breakdown service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxBreakdownBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload commissionablePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed commissionable payload", http.StatusBadRequest))
		return
	}

	updated, err := h.reconciler.SetCommissionable(ctx, services.SetCommissionableCommand{
		ShipmentID:     chi.URLParam(r, "shipmentID"),
		LineID:         chi.URLParam(r, "lineID"),
		Commissionable: payload.Commissionable,
	})
	if err != nil {
		h.writeBreakdownError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, h.buildResponse(ctx, updated))
}

func (h *BreakdownHandlers) recalculateTaxes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reconciler == nil {
		httpx.WriteError(ctx, w, httpx.NewError("breakdown_service_unavailable", "breakdown service is unavailable", http.StatusServiceUnavailable))
		return
	}

	updated, err := h.reconciler.RecalculateShipmentTaxes(ctx, chi.URLParam(r, "shipmentID"))
	if err != nil {
		h.writeBreakdownError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, h.buildResponse(ctx, updated))
}

func (h *BreakdownHandlers) buildResponse(ctx context.Context, shipment domain.Shipment) breakdownResponse {
	showCost := h.canViewCost != nil && h.canViewCost(ctx)

	lines := make([]chargeLinePayload, 0, len(shipment.Breakdown))
	for _, line := range shipment.Breakdown {
		payload := chargeLinePayload{
			ID:             line.ID,
			Code:           line.Code,
			Description:    line.Description,
			QuotedCharge:   line.QuotedCharge,
			ActualCharge:   line.ActualCharge,
			IsTax:          line.IsTax,
			IsMarkup:       line.IsMarkup,
			InvoiceNumber:  line.InvoiceNumber,
			EDINumber:      line.EDINumber,
			Commissionable: line.Commissionable,
		}
		if showCost {
			payload.QuotedCost = line.QuotedCost
			payload.ActualCost = line.ActualCost
		}
		lines = append(lines, payload)
	}

	return breakdownResponse{
		ShipmentID: shipment.ID,
		Revision:   shipment.Revision,
		Breakdown:  lines,
	}
}

func (h *BreakdownHandlers) writeBreakdownError(ctx context.Context, w http.ResponseWriter, err error) {
	var verr *services.ValidationError
	var perr *services.PersistenceError

	switch {
	case errors.As(err, &verr):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_charge_line", verr.Error(), http.StatusBadRequest).
			WithDetails(map[string]any{"field": verr.Field}))
	case errors.Is(err, services.ErrShipmentNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("shipment_not_found", "shipment not found", http.StatusNotFound))
	case errors.Is(err, services.ErrLineNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("charge_line_not_found", "charge line not found", http.StatusNotFound))
	case errors.Is(err, repositories.ErrStaleBreakdown):
		httpx.WriteError(ctx, w, httpx.NewError("breakdown_conflict", "a newer breakdown update already applied", http.StatusConflict))
	case errors.As(err, &perr):
		details := map[string]any{
			"lastKnownGood": linesToPayload(perr.LastKnownGood),
		}
		if strings.TrimSpace(perr.LineID) != "" {
			details["lineId"] = perr.LineID
		}
		httpx.WriteError(ctx, w, httpx.NewError("breakdown_save_failed", "breakdown could not be saved", http.StatusBadGateway).
			WithDetails(details))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "internal server error", http.StatusInternalServerError))
	}
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func linesToPayload(lines []domain.ChargeLine) []chargeLinePayload {
	out := make([]chargeLinePayload, 0, len(lines))
	for _, line := range lines {
		out = append(out, chargeLinePayload{
			ID:             line.ID,
			Code:           line.Code,
			Description:    line.Description,
			QuotedCharge:   line.QuotedCharge,
			ActualCharge:   line.ActualCharge,
			IsTax:          line.IsTax,
			IsMarkup:       line.IsMarkup,
			InvoiceNumber:  line.InvoiceNumber,
			EDINumber:      line.EDINumber,
			Commissionable: line.Commissionable,
		})
	}
	return out
}

func (p chargeLinePayload) toDomain() domain.ChargeLine {
	return domain.ChargeLine{
		ID:             strings.TrimSpace(p.ID),
		Code:           p.Code,
		Description:    p.Description,
		QuotedCost:     p.QuotedCost,
		QuotedCharge:   p.QuotedCharge,
		ActualCost:     p.ActualCost,
		ActualCharge:   p.ActualCharge,
		IsTax:          p.IsTax,
		IsMarkup:       p.IsMarkup,
		InvoiceNumber:  p.InvoiceNumber,
		EDINumber:      p.EDINumber,
		Commissionable: p.Commissionable,
	}
}
