package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"comprafacil/internal/cart"
	"comprafacil/internal/order"
	"comprafacil/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCartService struct{ mock.Mock }

func (m *MockCartService) AddToCart(ctx context.Context, p cart.AddToCartParams) (*cart.CartLine, error) {
	args := m.Called(ctx, p)
	line, _ := args.Get(0).(*cart.CartLine)
	return line, args.Error(1)
}

func (m *MockCartService) SetQuantity(ctx context.Context, p cart.SetQuantityParams) (*cart.CartLine, error) {
	args := m.Called(ctx, p)
	line, _ := args.Get(0).(*cart.CartLine)
	return line, args.Error(1)
}

func (m *MockCartService) GetCart(ctx context.Context, userID string) ([]*cart.CartLine, error) {
	args := m.Called(ctx, userID)
	lines, _ := args.Get(0).([]*cart.CartLine)
	return lines, args.Error(1)
}

func (m *MockCartService) RemoveLine(ctx context.Context, userID, lineID string) error {
	return m.Called(ctx, userID, lineID).Error(0)
}

func (m *MockCartService) ClearCart(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type MockOrders struct{ mock.Mock }

func (m *MockOrders) ActiveOrders(ctx context.Context, userID string) ([]order.Record, error) {
	args := m.Called(ctx, userID)
	recs, _ := args.Get(0).([]order.Record)
	return recs, args.Error(1)
}

func (m *MockOrders) ListOrders(ctx context.Context, userID string) ([]*order.Order, error) {
	args := m.Called(ctx, userID)
	orders, _ := args.Get(0).([]*order.Order)
	return orders, args.Error(1)
}

func (m *MockOrders) StatusHistory(ctx context.Context, orderID string) ([]*order.StatusHistoryEntry, error) {
	args := m.Called(ctx, orderID)
	entries, _ := args.Get(0).([]*order.StatusHistoryEntry)
	return entries, args.Error(1)
}

func (m *MockOrders) PlaceOrder(ctx context.Context, o *order.Order, items []order.OrderItem) (*order.Order, error) {
	args := m.Called(ctx, o, items)
	placed, _ := args.Get(0).(*order.Order)
	return placed, args.Error(1)
}

type deviceSession struct{ userID string }

func (d deviceSession) Load() (*session.Session, error) {
	if d.userID == "" {
		return nil, session.ErrNoSession
	}
	return &session.Session{UserID: d.userID, AccessToken: "t"}, nil
}

func setup(t *testing.T) (*MockCartService, *MockOrders, Deps) {
	t.Helper()
	c, o := new(MockCartService), new(MockOrders)
	return c, o, Deps{Cart: c, Orders: o, Device: deviceSession{userID: "u1"}, Owner: "u1"}
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthzAndMetrics(t *testing.T) {
	_, _, deps := setup(t)
	deps.Device = deviceSession{}
	r := NewRouter(deps)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "").Code)

	w := do(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "comprafacil_http_requests_total")
}

func TestAuthRequired(t *testing.T) {
	_, _, deps := setup(t)
	deps.Device = deviceSession{}

	w := do(NewRouter(deps), http.MethodGet, "/cart", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOtherUserRefused(t *testing.T) {
	_, _, deps := setup(t)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "intruder"}).SignedString([]byte("k"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	NewRouter(deps).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCartRoutes(t *testing.T) {
	t.Run("Get cart", func(t *testing.T) {
		c, _, deps := setup(t)
		c.On("GetCart", mock.Anything, "u1").Return(nil, nil)

		w := do(NewRouter(deps), http.MethodGet, "/cart", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
		c.AssertExpectations(t)
	})

	t.Run("Add line", func(t *testing.T) {
		c, _, deps := setup(t)
		params := cart.AddToCartParams{
			UserID:     "u1",
			ProductID:  "p1",
			Variations: map[string]string{"size": "M"},
			Quantity:   2,
		}
		c.On("AddToCart", mock.Anything, params).Return(&cart.CartLine{ID: "l1", Quantity: 2}, nil)

		w := do(NewRouter(deps), http.MethodPost, "/cart/lines",
			`{"product_id":"p1","selected_variations":{"size":"M"},"quantity":2}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"l1"`)
		c.AssertExpectations(t)
	})

	t.Run("Add beyond stock", func(t *testing.T) {
		c, _, deps := setup(t)
		c.On("AddToCart", mock.Anything, mock.Anything).Return(nil, cart.ErrStockExceeded)

		w := do(NewRouter(deps), http.MethodPost, "/cart/lines", `{"product_id":"p1","quantity":99}`)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Add that removes the line", func(t *testing.T) {
		c, _, deps := setup(t)
		c.On("AddToCart", mock.Anything, mock.Anything).Return(nil, nil)

		w := do(NewRouter(deps), http.MethodPost, "/cart/lines", `{"product_id":"p1","quantity":-5}`)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Set quantity", func(t *testing.T) {
		c, _, deps := setup(t)
		c.On("SetQuantity", mock.Anything, cart.SetQuantityParams{UserID: "u1", LineID: "l1", Quantity: 0}).
			Return(nil, nil)

		w := do(NewRouter(deps), http.MethodPatch, "/cart/lines/l1", `{"quantity":0}`)

		assert.Equal(t, http.StatusNoContent, w.Code)
		c.AssertExpectations(t)
	})

	t.Run("Set quantity needs a value", func(t *testing.T) {
		_, _, deps := setup(t)

		w := do(NewRouter(deps), http.MethodPatch, "/cart/lines/l1", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Missing line", func(t *testing.T) {
		c, _, deps := setup(t)
		c.On("RemoveLine", mock.Anything, "u1", "nope").Return(cart.ErrCartItemNotFound)

		w := do(NewRouter(deps), http.MethodDelete, "/cart/lines/nope", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Clear cart", func(t *testing.T) {
		c, _, deps := setup(t)
		c.On("ClearCart", mock.Anything, "u1").Return(nil)

		w := do(NewRouter(deps), http.MethodDelete, "/cart", "")

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestOrderRoutes(t *testing.T) {
	t.Run("List", func(t *testing.T) {
		_, o, deps := setup(t)
		o.On("ListOrders", mock.Anything, "u1").
			Return([]*order.Order{{ID: "o1", Status: order.StatusAccepted}}, nil)

		w := do(NewRouter(deps), http.MethodGet, "/orders", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"aceito"`)
	})

	t.Run("History", func(t *testing.T) {
		_, o, deps := setup(t)
		o.On("StatusHistory", mock.Anything, "o1").Return(nil, nil)

		w := do(NewRouter(deps), http.MethodGet, "/orders/o1/history", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("Place", func(t *testing.T) {
		_, o, deps := setup(t)
		o.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(ord *order.Order) bool {
			return ord.UserID == "u1" && ord.PaymentMethod == "pix"
		}), mock.Anything).Return(&order.Order{ID: "o9", Status: order.StatusPending}, nil)

		w := do(NewRouter(deps), http.MethodPost, "/orders",
			`{"total_price":"10.50","payment_method":"pix","items":[{"product_id":"p1","quantity":1,"price_at_time":"10.50"}]}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		o.AssertExpectations(t)
	})

	t.Run("Place without items", func(t *testing.T) {
		_, o, deps := setup(t)
		o.On("PlaceOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil, order.ErrEmptyOrder)

		w := do(NewRouter(deps), http.MethodPost, "/orders", `{"items":[]}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Platform failure is hidden", func(t *testing.T) {
		_, o, deps := setup(t)
		o.On("ListOrders", mock.Anything, "u1").Return(nil, order.ErrFailedFetchOrders)

		w := do(NewRouter(deps), http.MethodGet, "/orders", "")

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.NotContains(t, w.Body.String(), "fetch")
	})
}

func TestLogout(t *testing.T) {
	_, _, deps := setup(t)
	called := make(chan struct{})
	deps.Logout = func(ctx context.Context) error {
		close(called)
		return nil
	}

	w := do(NewRouter(deps), http.MethodPost, "/session/logout", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("logout not called")
	}
}
