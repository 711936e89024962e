package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStatusRow(t *testing.T) {
	t.Run("Full row", func(t *testing.T) {
		row, err := DecodeStatusRow(Record{
			"id": "a1b2c3d4e5f6", "status": "em_preparo", "user_id": "u1", "total_price": 10.5,
		})
		require.NoError(t, err)
		assert.Equal(t, StatusRow{ID: "a1b2c3d4e5f6", UserID: "u1", Status: StatusPreparing}, row)
	})

	t.Run("Numeric id", func(t *testing.T) {
		row, err := DecodeStatusRow(Record{"id": float64(42), "status": "aceito", "user_id": "u1"})
		require.NoError(t, err)
		assert.Equal(t, "42", row.ID)
	})

	t.Run("Legacy status is normalized", func(t *testing.T) {
		row, err := DecodeStatusRow(Record{"id": "o1", "status": "saindo para entrega", "user_id": "u1"})
		require.NoError(t, err)
		assert.Equal(t, StatusOutForDelivery, row.Status)
	})

	malformed := map[string]Record{
		"nil record":       nil,
		"missing id":       {"status": "aceito", "user_id": "u1"},
		"empty id":         {"id": "", "status": "aceito", "user_id": "u1"},
		"missing status":   {"id": "o1", "user_id": "u1"},
		"status not text":  {"id": "o1", "status": 3.0, "user_id": "u1"},
		"blank status":     {"id": "o1", "status": "  ", "user_id": "u1"},
		"missing user_id":  {"id": "o1", "status": "aceito"},
		"user_id is a map": {"id": "o1", "status": "aceito", "user_id": map[string]any{}},
	}
	for name, rec := range malformed {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeStatusRow(rec)
			assert.ErrorIs(t, err, ErrMalformedRow)
		})
	}
}
