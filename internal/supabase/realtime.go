package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultHeartbeat = 30 * time.Second
	joinTimeout      = 10 * time.Second
	changeBuffer     = 64
)

// ChangeFilter selects postgres_changes for one table.
type ChangeFilter struct {
	Schema string
	Table  string
	Event  string // INSERT, UPDATE, DELETE or *
	Filter string // server side row filter, e.g. user_id=eq.42
}

// Change is one postgres_changes event. Record holds the full new row.
type Change struct {
	Type            string         `json:"type"`
	Schema          string         `json:"schema"`
	Table           string         `json:"table"`
	CommitTimestamp string         `json:"commit_timestamp"`
	Record          map[string]any `json:"record"`
	OldRecord       map[string]any `json:"old_record"`
}

type message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

// RealtimeClient opens Realtime websocket subscriptions.
type RealtimeClient struct {
	url       string
	dialer    *websocket.Dialer
	heartbeat time.Duration
}

// Realtime returns a client for the project's Realtime endpoint.
func (c *Client) Realtime() *RealtimeClient {
	wsURL := c.baseURL
	switch {
	case strings.HasPrefix(wsURL, "https"):
		wsURL = "wss" + strings.TrimPrefix(wsURL, "https")
	case strings.HasPrefix(wsURL, "http"):
		wsURL = "ws" + strings.TrimPrefix(wsURL, "http")
	}
	wsURL += "/realtime/v1/websocket?apikey=" + c.apiKey + "&vsn=1.0.0"

	return &RealtimeClient{
		url:       wsURL,
		dialer:    &websocket.Dialer{HandshakeTimeout: joinTimeout, Proxy: http.ProxyFromEnvironment},
		heartbeat: defaultHeartbeat,
	}
}

// SetHeartbeat overrides the heartbeat interval.
func (r *RealtimeClient) SetHeartbeat(d time.Duration) {
	if d > 0 {
		r.heartbeat = d
	}
}

// Subscription is one joined channel on its own connection.
type Subscription struct {
	conn    *websocket.Conn
	topic   string
	changes chan Change

	writeMu sync.Mutex
	ref     int

	closeOnce sync.Once
	done      chan struct{}
	errMu     sync.Mutex
	err       error
}

// Subscribe dials, joins the channel and waits for the server to accept the
// join. Changes are delivered until ctx is cancelled or the connection
// drops; Err reports why the Changes channel was closed.
func (r *RealtimeClient) Subscribe(ctx context.Context, accessToken string, f ChangeFilter) (*Subscription, error) {
	if f.Table == "" {
		return nil, ErrMissingTable
	}
	if f.Schema == "" {
		f.Schema = "public"
	}
	if f.Event == "" {
		f.Event = "*"
	}

	conn, _, err := r.dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: websocket dial: %v", ErrTransient, err)
	}

	s := &Subscription{
		conn:    conn,
		topic:   fmt.Sprintf("realtime:%s:%s", f.Schema, f.Table),
		changes: make(chan Change, changeBuffer),
		done:    make(chan struct{}),
	}

	if err := s.join(ctx, accessToken, f); err != nil {
		conn.Close()
		return nil, err
	}

	go s.readLoop()
	go s.heartbeatLoop(r.heartbeat)
	go func() {
		select {
		case <-ctx.Done():
			s.fail(ctx.Err())
		case <-s.done:
		}
	}()

	return s, nil
}

func (s *Subscription) join(ctx context.Context, accessToken string, f ChangeFilter) error {
	change := map[string]any{
		"event":  f.Event,
		"schema": f.Schema,
		"table":  f.Table,
	}
	if f.Filter != "" {
		change["filter"] = f.Filter
	}
	payload := map[string]any{
		"config": map[string]any{
			"postgres_changes": []any{change},
		},
	}
	if accessToken != "" {
		payload["access_token"] = accessToken
	}

	ref, err := s.send("phx_join", payload)
	if err != nil {
		return fmt.Errorf("%w: send join: %v", ErrTransient, err)
	}

	deadline := time.Now().Add(joinTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = s.conn.SetReadDeadline(deadline)
	defer s.conn.SetReadDeadline(time.Time{})

	for {
		var msg message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: await join reply: %v", ErrTransient, err)
		}
		if msg.Event != "phx_reply" || msg.Ref == nil || *msg.Ref != ref {
			continue
		}

		var reply struct {
			Status   string          `json:"status"`
			Response json.RawMessage `json:"response"`
		}
		if err := json.Unmarshal(msg.Payload, &reply); err != nil {
			return fmt.Errorf("decode join reply: %w", err)
		}
		if reply.Status != "ok" {
			return fmt.Errorf("%w: %s %s", ErrJoinRejected, reply.Status, string(reply.Response))
		}
		return nil
	}
}

func (s *Subscription) send(event string, payload any) (string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.ref++
	ref := strconv.Itoa(s.ref)
	topic := s.topic
	if event == "heartbeat" {
		topic = "phoenix"
	}

	return ref, s.conn.WriteJSON(map[string]any{
		"topic":   topic,
		"event":   event,
		"payload": payload,
		"ref":     ref,
	})
}

func (s *Subscription) readLoop() {
	defer close(s.changes)

	for {
		var msg message
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.fail(fmt.Errorf("%w: read: %v", ErrTransient, err))
			return
		}

		switch msg.Event {
		case "postgres_changes":
			var p struct {
				Data Change `json:"data"`
			}
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				continue
			}
			if !s.deliver(p.Data) {
				return
			}
		case "INSERT", "UPDATE", "DELETE":
			var c Change
			if err := json.Unmarshal(msg.Payload, &c); err != nil {
				continue
			}
			if c.Type == "" {
				c.Type = msg.Event
			}
			if !s.deliver(c) {
				return
			}
		case "phx_error", "phx_close":
			if msg.Topic == s.topic {
				s.fail(fmt.Errorf("%w: %s", ErrChannelClosed, msg.Event))
				return
			}
		}
	}
}

func (s *Subscription) deliver(c Change) bool {
	select {
	case s.changes <- c:
		return true
	case <-s.done:
		return false
	}
}

func (s *Subscription) heartbeatLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if _, err := s.send("heartbeat", map[string]any{}); err != nil {
				s.fail(fmt.Errorf("%w: heartbeat: %v", ErrTransient, err))
				return
			}
		}
	}
}

func (s *Subscription) fail(err error) {
	s.closeOnce.Do(func() {
		s.errMu.Lock()
		s.err = err
		s.errMu.Unlock()
		close(s.done)
		s.conn.Close()
	})
}

// Changes streams row changes. It is closed when the subscription ends.
func (s *Subscription) Changes() <-chan Change {
	return s.changes
}

// Err reports why the subscription ended, or nil while it is open.
func (s *Subscription) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close leaves the channel and closes the connection.
func (s *Subscription) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	_, _ = s.send("phx_leave", map[string]any{})
	s.fail(context.Canceled)
	return nil
}
