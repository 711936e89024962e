package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"comprafacil/internal/supabase"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func realtimeServer(t *testing.T, joined chan<- map[string]any, changes ...map[string]any) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var join map[string]any
		if err := conn.ReadJSON(&join); err != nil {
			return
		}
		joined <- join
		_ = conn.WriteJSON(map[string]any{
			"topic": join["topic"], "event": "phx_reply", "ref": join["ref"],
			"payload": map[string]any{"status": "ok", "response": map[string]any{}},
		})
		for _, c := range changes {
			_ = conn.WriteJSON(map[string]any{
				"topic": join["topic"], "event": "postgres_changes",
				"payload": map[string]any{"data": c},
			})
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	c, err := supabase.New(supabase.Config{URL: srv.URL, APIKey: "anon"})
	require.NoError(t, err)
	return c
}

func TestRealtimeSource(t *testing.T) {
	joined := make(chan map[string]any, 1)
	client := realtimeServer(t, joined,
		map[string]any{"type": "INSERT", "table": "orders", "record": map[string]any{"id": "new"}},
		map[string]any{"type": "UPDATE", "table": "orders", "record": map[string]any{"id": "o1", "status": "aceito", "user_id": "u1"}},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	src := NewRealtimeSource(client.Realtime(), "jwt")
	st, err := src.Subscribe(ctx, "orders", "u1")
	require.NoError(t, err)
	defer st.Close()

	join := <-joined
	cfg := join["payload"].(map[string]any)["config"].(map[string]any)
	pc := cfg["postgres_changes"].([]any)[0].(map[string]any)
	assert.Equal(t, "UPDATE", pc["event"])
	assert.Equal(t, "user_id=eq.u1", pc["filter"])

	select {
	case upd := <-st.Updates():
		assert.Equal(t, "o1", upd.Record["id"], "non-update events are dropped")
	case <-ctx.Done():
		t.Fatal("no update delivered")
	}
}

func TestRealtimeSource_EmptyTable(t *testing.T) {
	c, err := supabase.New(supabase.Config{URL: "http://127.0.0.1:1", APIKey: "anon"})
	require.NoError(t, err)

	_, err = NewRealtimeSource(c.Realtime(), "").Subscribe(context.Background(), "", "u1")
	assert.ErrorIs(t, err, ErrEmptyTable)
}
