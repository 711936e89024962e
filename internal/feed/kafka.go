package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"comprafacil/internal/logger"
	"comprafacil/internal/order"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource reads a CDC topic (Debezium-style envelopes) carrying
// changes of the public schema.
type KafkaSource struct {
	newReader func(groupID string) messageReader
}

func NewKafkaSource(brokers []string, topic string) (*KafkaSource, error) {
	if len(brokers) == 0 {
		return nil, ErrNoKafkaBroker
	}
	return &KafkaSource{
		newReader: func(groupID string) messageReader {
			return kafka.NewReader(kafka.ReaderConfig{
				Brokers:        brokers,
				GroupID:        groupID,
				Topic:          topic,
				MinBytes:       1,
				MaxBytes:       10e6,
				StartOffset:    kafka.LastOffset,
				CommitInterval: 0,
			})
		},
	}, nil
}

func (s *KafkaSource) Subscribe(ctx context.Context, table, userID string) (Stream, error) {
	if table == "" {
		return nil, ErrEmptyTable
	}

	st := &kafkaStream{
		r:       s.newReader("comprafacil-feed-" + userID),
		table:   table,
		updates: make(chan RowUpdate),
		done:    make(chan struct{}),
	}
	go st.run(ctx)
	return st, nil
}

type kafkaStream struct {
	r       messageReader
	table   string
	updates chan RowUpdate

	once sync.Once
	done chan struct{}
	mu   sync.Mutex
	err  error
}

func (st *kafkaStream) run(ctx context.Context) {
	defer close(st.updates)
	defer st.r.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-st.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	log := logger.FromCtx(ctx).With(zap.String("layer", "feed"), zap.String("source", "kafka"))

	for {
		m, err := st.r.FetchMessage(ctx)
		if err != nil {
			st.setErr(err)
			return
		}

		upd, err := DecodeCDC(m.Value)
		switch {
		case errors.Is(err, ErrNotAChange):
		case err != nil:
			// the reconciler sees an empty record and counts it as malformed
			log.Warn("undecodable cdc message", zap.Int64("offset", m.Offset), zap.Error(err))
			upd = RowUpdate{Table: st.table}
			fallthrough
		default:
			if upd.Table == st.table {
				select {
				case st.updates <- upd:
				case <-ctx.Done():
					st.setErr(ctx.Err())
					return
				}
			}
		}

		if err := st.r.CommitMessages(ctx, m); err != nil {
			st.setErr(err)
			return
		}
	}
}

func (st *kafkaStream) setErr(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.err == nil {
		st.err = err
	}
}

func (st *kafkaStream) Updates() <-chan RowUpdate { return st.updates }

func (st *kafkaStream) Err() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.err != nil {
		return st.err
	}
	return ErrStreamClosed
}

func (st *kafkaStream) Close() error {
	st.once.Do(func() { close(st.done) })
	return nil
}

type cdcEnvelope struct {
	Op     string       `json:"op"`
	After  order.Record `json:"after"`
	Source struct {
		Table string `json:"table"`
	} `json:"source"`
}

// DecodeCDC decodes a Debezium change message, with or without the
// schema/payload wrapper. Deletes and tombstones yield ErrNotAChange.
func DecodeCDC(value []byte) (RowUpdate, error) {
	if len(value) == 0 {
		return RowUpdate{}, ErrNotAChange
	}

	var wrapped struct {
		Payload *cdcEnvelope `json:"payload"`
	}
	if err := json.Unmarshal(value, &wrapped); err != nil {
		return RowUpdate{}, fmt.Errorf("decode cdc message: %w", err)
	}

	env := wrapped.Payload
	if env == nil {
		env = &cdcEnvelope{}
		if err := json.Unmarshal(value, env); err != nil {
			return RowUpdate{}, fmt.Errorf("decode cdc message: %w", err)
		}
	}

	switch env.Op {
	case "u", "c", "r":
	default:
		return RowUpdate{}, ErrNotAChange
	}

	return RowUpdate{Table: env.Source.Table, Record: env.After}, nil
}
