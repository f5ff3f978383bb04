package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/service"
)

type CheckoutHandler struct {
	checkout *service.CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(checkout *service.CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

type CheckoutRequestDTO struct {
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	VoucherCode   string               `json:"voucher_code,omitempty"`
}

// Checkout runs the whole saga and responds with the resulting order.
// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.PaymentMethod.Kind == "" {
		respondError(w, http.StatusBadRequest, "missing_payment_method", "payment_method.kind is required")
		return
	}

	order, err := h.checkout.Checkout(ctx, userID, req.PaymentMethod, req.VoucherCode)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}
