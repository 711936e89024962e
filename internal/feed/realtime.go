package feed

import (
	"context"

	"comprafacil/internal/supabase"
)

// RealtimeSource streams UPDATE events from Supabase Realtime.
type RealtimeSource struct {
	rt          *supabase.RealtimeClient
	accessToken string
}

func NewRealtimeSource(rt *supabase.RealtimeClient, accessToken string) *RealtimeSource {
	return &RealtimeSource{rt: rt, accessToken: accessToken}
}

func (s *RealtimeSource) Subscribe(ctx context.Context, table, userID string) (Stream, error) {
	if table == "" {
		return nil, ErrEmptyTable
	}

	filter := supabase.ChangeFilter{Table: table, Event: "UPDATE"}
	if userID != "" {
		filter.Filter = "user_id=eq." + userID
	}

	sub, err := s.rt.Subscribe(ctx, s.accessToken, filter)
	if err != nil {
		return nil, err
	}

	st := &realtimeStream{sub: sub, updates: make(chan RowUpdate)}
	go st.pump()
	return st, nil
}

type realtimeStream struct {
	sub     *supabase.Subscription
	updates chan RowUpdate
}

func (st *realtimeStream) pump() {
	defer close(st.updates)
	for c := range st.sub.Changes() {
		if c.Type != "" && c.Type != "UPDATE" {
			continue
		}
		st.updates <- RowUpdate{Table: c.Table, Record: c.Record}
	}
}

func (st *realtimeStream) Updates() <-chan RowUpdate { return st.updates }

func (st *realtimeStream) Err() error {
	if err := st.sub.Err(); err != nil {
		return err
	}
	return ErrStreamClosed
}

func (st *realtimeStream) Close() error {
	err := st.sub.Close()
	// drain so pump can exit
	go func() {
		for range st.updates {
		}
	}()
	return err
}
