package order

import "strings"

type Status string

const (
	StatusPending        Status = "pendente"
	StatusAccepted       Status = "aceito"
	StatusConfirmed      Status = "confirmado"
	StatusPreparing      Status = "em_preparo"
	StatusOutForDelivery Status = "saiu_para_entrega"
	StatusDelivered      Status = "entregue"
	StatusCompleted      Status = "concluído"
	StatusCanceled       Status = "cancelado"
)

// legacy label still written by older admin builds
const legacyOutForDelivery = "saindo para entrega"

var terminal = map[Status]bool{
	StatusDelivered: true,
	StatusCompleted: true,
	StatusCanceled:  true,
}

var validNext = map[Status][]Status{
	StatusPending:        {StatusAccepted, StatusConfirmed, StatusCanceled},
	StatusAccepted:       {StatusConfirmed, StatusPreparing, StatusCanceled},
	StatusConfirmed:      {StatusPreparing, StatusCanceled},
	StatusPreparing:      {StatusOutForDelivery, StatusCanceled},
	StatusOutForDelivery: {StatusDelivered, StatusCompleted, StatusCanceled},
	StatusDelivered:      {StatusCompleted},
}

// lifecycle position; aceito and confirmado are alternative second steps
var rank = map[Status]int{
	StatusPending:        0,
	StatusAccepted:       1,
	StatusConfirmed:      1,
	StatusPreparing:      2,
	StatusOutForDelivery: 3,
	StatusDelivered:      4,
	StatusCompleted:      5,
	StatusCanceled:       5,
}

// TerminalStatuses returns the statuses excluded from active-order queries.
func TerminalStatuses() []Status {
	return []Status{StatusDelivered, StatusCompleted, StatusCanceled}
}

func (s Status) IsTerminal() bool {
	return terminal[s]
}

// Normalize maps raw backend values onto a Status. Unknown values are kept
// as-is: the backend is authoritative.
func Normalize(raw string) Status {
	v := strings.TrimSpace(raw)
	if strings.EqualFold(v, legacyOutForDelivery) {
		return StatusOutForDelivery
	}
	return Status(v)
}

// Label is the user-facing form used in notifications.
func (s Status) Label() string {
	return strings.ToUpper(strings.ReplaceAll(string(s), "_", " "))
}

// CanTransition reports whether from -> to is an expected forward move.
// Observed statuses are never rejected; callers only log unexpected jumps.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, n := range validNext[from] {
		if n == to {
			return true
		}
	}
	return false
}

// IsRegression reports whether to lies strictly behind from in the
// lifecycle, or from is terminal and to is not one of its successors.
// Such an observation comes from a stale read. Unknown statuses are never
// regressions.
func IsRegression(from, to Status) bool {
	if from == to {
		return false
	}
	rf, okFrom := rank[from]
	rt, okTo := rank[to]
	if !okFrom || !okTo {
		return false
	}
	if from.IsTerminal() {
		return !CanTransition(from, to)
	}
	return rt < rf
}
