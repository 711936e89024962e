package order

import (
	"fmt"
	"strconv"
	"strings"
)

// DecodeStatusRow extracts id, status and user_id from a raw row. Any of
// the three missing or empty makes the row malformed.
func DecodeStatusRow(rec Record) (StatusRow, error) {
	if rec == nil {
		return StatusRow{}, fmt.Errorf("%w: empty record", ErrMalformedRow)
	}

	id, ok := scalar(rec["id"])
	if !ok || id == "" {
		return StatusRow{}, fmt.Errorf("%w: missing id", ErrMalformedRow)
	}

	rawStatus, ok := rec["status"].(string)
	if !ok || strings.TrimSpace(rawStatus) == "" {
		return StatusRow{}, fmt.Errorf("%w: order %s: missing status", ErrMalformedRow, id)
	}

	userID, ok := scalar(rec["user_id"])
	if !ok || userID == "" {
		return StatusRow{}, fmt.Errorf("%w: order %s: missing user_id", ErrMalformedRow, id)
	}

	return StatusRow{ID: id, UserID: userID, Status: Normalize(rawStatus)}, nil
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}
