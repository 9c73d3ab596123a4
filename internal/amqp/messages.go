package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Change kinds carried by a ChangeEvent.
const (
	KindExpenseCreated = "expense.created"
	KindExpenseUpdated = "expense.updated"
	KindIncomeSet      = "income.set"
)

// ChangeEvent tells dashboards that the ledger changed and cached analytics
// are stale. It carries only identifiers; consumers refetch what they need.
type ChangeEvent struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id,omitempty"`
	Month     string    `json:"month,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeEvent(kind, id, month string) *ChangeEvent {
	return &ChangeEvent{
		Kind:      kind,
		ID:        id,
		Month:     month,
		Timestamp: time.Now(),
	}
}

func (m *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var msg ChangeEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case KindExpenseCreated, KindExpenseUpdated, KindIncomeSet:
	default:
		return nil, fmt.Errorf("unknown change kind %q", msg.Kind)
	}
	return &msg, nil
}
