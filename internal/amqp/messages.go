package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cleaningos/internal/core"
)

// Event kinds, one per recorder operation.
const (
	KindJobClosed       = "job_closed"
	KindExpenseRecorded = "expense_recorded"
	KindSalaryRecorded  = "salary_recorded"
	KindWriteResumed    = "partial_write_resumed"
)

// EventRow is one ledger row carried by an event. Baseline is the number of
// identical rows the table held before this row was appended.
type EventRow struct {
	Table    core.Table `json:"table"`
	Row      core.Row   `json:"row"`
	Baseline int        `json:"baseline"`
}

// LedgerEvent announces rows that were appended to the ledger. Consumers use
// it to keep a mirror of the ledger in another store.
type LedgerEvent struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	OccurredAt time.Time  `json:"occurred_at"`
	Rows       []EventRow `json:"rows"`
}

// NewLedgerEvent creates an event with a fresh ID.
func NewLedgerEvent(kind string, rows []EventRow) *LedgerEvent {
	return &LedgerEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		Rows:       rows,
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and sanity-checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		return nil, fmt.Errorf("event id: %w", err)
	}
	if len(msg.Rows) == 0 {
		return nil, errors.New("event carries no rows")
	}
	for i, r := range msg.Rows {
		if !r.Table.Valid() {
			return nil, fmt.Errorf("row %d: unknown table %q", i, r.Table)
		}
	}
	return &msg, nil
}
