package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"comprafacil/internal/cart"
	"comprafacil/internal/logger"
	"comprafacil/internal/middleware"
	"comprafacil/internal/order"
	"comprafacil/internal/product"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type handlers struct {
	deps Deps
}

type addLineReq struct {
	ProductID  string            `json:"product_id"`
	Variations map[string]string `json:"selected_variations"`
	Quantity   int               `json:"quantity"`
}

type setQuantityReq struct {
	Quantity *int `json:"quantity"`
}

type placeOrderReq struct {
	TotalPrice    decimal.Decimal   `json:"total_price"`
	Location      string            `json:"location"`
	PaymentMethod string            `json:"payment_method"`
	WhatsApp      string            `json:"whatsapp"`
	CustomerName  string            `json:"customer_name"`
	Items         []order.OrderItem `json:"items"`
}

func (h *handlers) ownerOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.IdentityFrom(r.Context())
		if h.deps.Owner != "" && id.UserID != h.deps.Owner {
			writeError(w, http.StatusForbidden, "session belongs to another user")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userID(r *http.Request) string {
	id, _ := middleware.IdentityFrom(r.Context())
	return id.UserID
}

func (h *handlers) getCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.deps.Cart.GetCart(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if lines == nil {
		lines = []*cart.CartLine{}
	}
	writeJSON(w, http.StatusOK, lines)
}

func (h *handlers) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Cart.ClearCart(r.Context(), userID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) addToCart(w http.ResponseWriter, r *http.Request) {
	var req addLineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	line, err := h.deps.Cart.AddToCart(r.Context(), cart.AddToCartParams{
		UserID:     userID(r),
		ProductID:  req.ProductID,
		Variations: req.Variations,
		Quantity:   req.Quantity,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if line == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *handlers) setQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	line, err := h.deps.Cart.SetQuantity(r.Context(), cart.SetQuantityParams{
		UserID:   userID(r),
		LineID:   chi.URLParam(r, "id"),
		Quantity: *req.Quantity,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if line == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *handlers) removeLine(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Cart.RemoveLine(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.deps.Orders.ListOrders(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if orders == nil {
		orders = []*order.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *handlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	placed, err := h.deps.Orders.PlaceOrder(r.Context(), &order.Order{
		UserID:        userID(r),
		TotalPrice:    req.TotalPrice,
		Location:      req.Location,
		PaymentMethod: req.PaymentMethod,
		WhatsApp:      req.WhatsApp,
		CustomerName:  req.CustomerName,
	}, req.Items)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, placed)
}

func (h *handlers) statusHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.Orders.StatusHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []*order.StatusHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
	if h.deps.Logout == nil {
		return
	}
	// The session context is cancelled by Logout, which also ends this
	// server; run it detached from the request.
	go func() {
		if err := h.deps.Logout(context.WithoutCancel(r.Context())); err != nil {
			logger.FromCtx(r.Context()).Error("logout failed", zap.Error(err))
		}
	}()
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, code, http.StatusText(code))
		return
	}
	writeError(w, code, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, cart.ErrStockExceeded):
		return http.StatusConflict
	case errors.Is(err, cart.ErrCartItemNotFound),
		errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrUserRequired),
		errors.Is(err, cart.ErrProductRequired),
		errors.Is(err, cart.ErrLineRequired),
		errors.Is(err, product.ErrUnknownVariation),
		errors.Is(err, product.ErrUnknownVariationValue),
		errors.Is(err, order.ErrEmptyUserID),
		errors.Is(err, order.ErrEmptyOrder):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
