package http

import (
	"net/http"

	"github.com/utafrali/storefront/internal/checkout"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// MsgOrderPlaced is queued once checkout completes.
const MsgOrderPlaced = "Order placed successfully! Redirecting to confirmation..."

// ShippingRequest is the JSON body for a shipping estimate.
type ShippingRequest struct {
	Country string `json:"country" validate:"required,len=2"`
	Zip     string `json:"zip"`
}

// ShippingResponse prices the current cart for a destination.
type ShippingResponse struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

// HandoffResponse is a pending checkout with its grand total.
type HandoffResponse struct {
	checkout.Handoff
	Total float64 `json:"total"`
}

// ConfirmationResponse carries the placed order and the toasts it queued.
type ConfirmationResponse struct {
	Order  checkout.OrderConfirmation `json:"order"`
	Toasts []notify.Message           `json:"toasts,omitempty"`
}

// EstimateShipping handles POST /api/v1/checkout/shipping
func (h *Handler) EstimateShipping(w http.ResponseWriter, r *http.Request) {
	var req ShippingRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s := h.shopper(r)
	subtotal := s.cart.Total()
	shipping, err := checkout.EstimateShipping(req.Country, req.Zip, subtotal)
	if err != nil {
		s.toasts.Notify(r.Context(), notify.Info(checkout.MsgZipRequired))
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ShippingResponse{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal + shipping,
	}})
}

// BeginCheckout handles POST /api/v1/checkout
func (h *Handler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	var sel checkout.Selections
	if err := validator.Decode(r, &sel); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s := h.shopper(r)
	handoff, err := h.checkout.Begin(r.Context(), s.id, s.cart.Snapshot(), sel)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: HandoffResponse{Handoff: handoff, Total: handoff.Total()}})
}

// GetCheckout handles GET /api/v1/checkout
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	handoff, err := h.checkout.Peek(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: HandoffResponse{Handoff: handoff, Total: handoff.Total()}})
}

// CompleteCheckout handles POST /api/v1/checkout/complete
func (h *Handler) CompleteCheckout(w http.ResponseWriter, r *http.Request) {
	// Complete trims the form before validating it.
	var form checkout.Form
	if err := validator.Decode(r, &form); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s := h.shopper(r)
	conf, err := h.checkout.Complete(r.Context(), s.id, form, s.cart)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	s.toasts.Notify(r.Context(), notify.Success(MsgOrderPlaced))
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: ConfirmationResponse{
		Order:  conf,
		Toasts: s.toasts.Drain(r.Context()),
	}})
}

// GetConfirmation handles GET /api/v1/checkout/confirmation
func (h *Handler) GetConfirmation(w http.ResponseWriter, r *http.Request) {
	conf, err := h.checkout.Confirmation(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: conf})
}
