package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/service"
	"github.com/fjod/go_shop/internal/store"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError converts service sentinel errors to HTTP status codes
func handleServiceError(w http.ResponseWriter, err error) {
	var declined *service.PaymentDeclinedError
	var shortage *store.InsufficientStockError

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
	case errors.Is(err, repository.ErrSessionNotFound):
		respondError(w, http.StatusUnauthorized, "unauthenticated", "invalid or expired session")
	case errors.Is(err, service.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be positive")
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty, nothing to checkout")
	case errors.Is(err, repository.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product does not exist")
	case errors.Is(err, repository.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item_not_found", "item is not in the cart")
	case errors.Is(err, repository.ErrCartNotFound):
		respondError(w, http.StatusNotFound, "cart_not_found", "cart does not exist")
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order does not exist")
	case errors.Is(err, repository.ErrVoucherNotFound):
		respondError(w, http.StatusNotFound, "voucher_not_found", "voucher does not exist")
	case errors.Is(err, service.ErrCheckoutInProgress):
		respondError(w, http.StatusConflict, "checkout_in_progress", "another checkout is already running for this cart")
	case errors.As(err, &shortage):
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "not enough stock",
			Code:    "insufficient_stock",
			Details: shortage.Error(),
		})
	case errors.Is(err, store.ErrInsufficientStock):
		respondError(w, http.StatusConflict, "insufficient_stock", "not enough stock")
	case errors.Is(err, service.ErrOrderNotCancellable):
		respondError(w, http.StatusConflict, "order_not_cancellable", err.Error())
	case errors.Is(err, service.IllegalTransitionError):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.As(err, &declined):
		respondJSON(w, http.StatusPaymentRequired, ErrorResponse{
			Error:   "payment was declined",
			Code:    "payment_declined",
			Details: declined.Reason,
		})
	case errors.Is(err, service.ErrPaymentGateway):
		respondError(w, http.StatusBadGateway, "payment_gateway_error", "payment gateway is unavailable, try again later")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func getUserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value("user_id").(string); ok {
		return userID
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
