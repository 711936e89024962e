package order

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"comprafacil/internal/supabase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T, h http.HandlerFunc) Repository {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := supabase.New(supabase.Config{URL: srv.URL, APIKey: "anon"})
	require.NoError(t, err)
	return NewRepository(client)
}

func TestRepository_ActiveOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("Excludes terminal statuses in the query", func(t *testing.T) {
		repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rest/v1/orders", r.URL.Path)
			assert.Equal(t, "eq.u1", r.URL.Query().Get("user_id"))
			assert.Equal(t, `not.in.("entregue","concluído","cancelado")`, r.URL.Query().Get("status"))
			_, _ = w.Write([]byte(`[{"id":"o1","status":"aceito","user_id":"u1"},42]`))
		})

		recs, err := repo.ActiveOrders(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "o1", recs[0]["id"])
		assert.Nil(t, recs[1])
	})

	t.Run("Server failure", func(t *testing.T) {
		repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := repo.ActiveOrders(ctx, "u1")
		assert.ErrorIs(t, err, ErrFailedFetchOrders)
		assert.True(t, supabase.IsTransient(err))
	})

	t.Run("Body is not an array", func(t *testing.T) {
		repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"oops":true}`))
		})

		_, err := repo.ActiveOrders(ctx, "u1")
		assert.ErrorIs(t, err, ErrFailedFetchOrders)
	})

	t.Run("Empty user", func(t *testing.T) {
		repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		})

		_, err := repo.ActiveOrders(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyUserID)
	})
}

func TestRepository_ListOrders(t *testing.T) {
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "*,order_items(*)", r.URL.Query().Get("select"))
		assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
		_, _ = w.Write([]byte(`[{
			"id":"o1","user_id":"u1","status":"saindo para entrega","total_price":59.9,
			"created_at":"2024-05-01T10:00:00.123456+00:00",
			"order_items":[{"order_id":"o1","product_id":"p1","quantity":2,"price_at_time":"29.95",
				"selected_variations":{"size":"M"}}]
		}]`))
	})

	orders, err := repo.ListOrders(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)

	o := orders[0]
	assert.Equal(t, StatusOutForDelivery, o.Status)
	assert.True(t, decimal.RequireFromString("59.9").Equal(o.TotalPrice))
	require.Len(t, o.Items, 1)
	assert.Equal(t, map[string]string{"size": "M"}, o.Items[0].SelectedVariations)
	assert.True(t, decimal.RequireFromString("29.95").Equal(o.Items[0].PriceAtTime))
}

func TestRepository_StatusHistory(t *testing.T) {
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/order_status_history", r.URL.Path)
		assert.Equal(t, "eq.o1", r.URL.Query().Get("order_id"))
		assert.Equal(t, "created_at.asc", r.URL.Query().Get("order"))
		_, _ = w.Write([]byte(`[
			{"order_id":"o1","status":"pendente","created_at":"2024-05-01T10:00:00Z"},
			{"order_id":"o1","status":"aceito","notes":"ok","created_at":"2024-05-01T10:05:00Z"}
		]`))
	})

	entries, err := repo.StatusHistory(context.Background(), "o1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, StatusAccepted, entries[1].Status)
	assert.Equal(t, "ok", entries[1].Notes)
}

func TestRepository_PlaceOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Inserts order then items", func(t *testing.T) {
		var paths []string
		repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			body, _ := io.ReadAll(r.Body)

			switch r.URL.Path {
			case "/rest/v1/orders":
				var got map[string]any
				assert.NoError(t, json.Unmarshal(body, &got))
				assert.Equal(t, "pendente", got["status"])
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`[{"id":"o9","user_id":"u1","status":"pendente","total_price":"20"}]`))
			case "/rest/v1/order_items":
				var got []map[string]any
				assert.NoError(t, json.Unmarshal(body, &got))
				if assert.Len(t, got, 1) {
					assert.Equal(t, "o9", got[0]["order_id"])
				}
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`[]`))
			}
		})

		placed, err := repo.PlaceOrder(ctx,
			&Order{UserID: "u1", TotalPrice: decimal.NewFromInt(20)},
			[]OrderItem{{ProductID: "p1", Quantity: 1, PriceAtTime: decimal.NewFromInt(20)}},
		)
		require.NoError(t, err)
		assert.Equal(t, "o9", placed.ID)
		assert.Equal(t, "o9", placed.Items[0].OrderID)
		assert.Equal(t, []string{"/rest/v1/orders", "/rest/v1/order_items"}, paths)
	})

	t.Run("No items", func(t *testing.T) {
		repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		})

		_, err := repo.PlaceOrder(ctx, &Order{UserID: "u1"}, nil)
		assert.ErrorIs(t, err, ErrEmptyOrder)
	})

	t.Run("Order insert rejected", func(t *testing.T) {
		repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"rls"}`))
		})

		_, err := repo.PlaceOrder(ctx, &Order{UserID: "u1"}, []OrderItem{{ProductID: "p1", Quantity: 1}})
		assert.ErrorIs(t, err, ErrFailedPlaceOrder)
	})
}
