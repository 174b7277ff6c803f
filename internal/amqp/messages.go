package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
)

// RecordAppendedMessage announces one appended record. Fields carry the
// stored text so the consumer writes exactly what the ledger holds.
type RecordAppendedMessage struct {
	EventID   string    `json:"event_id"`
	Ref       string    `json:"ref"`
	Date      string    `json:"date"`
	Kind      string    `json:"type"`
	Category  string    `json:"category"`
	Amount    string    `json:"amount"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordAppendedMessage creates a message with a fresh event id
func NewRecordAppendedMessage(r core.Record, ref string) *RecordAppendedMessage {
	return &RecordAppendedMessage{
		EventID:   uuid.NewString(),
		Ref:       ref,
		Date:      r.Date.String(),
		Kind:      string(r.Kind),
		Category:  r.Category,
		Amount:    r.Amount.String(),
		Note:      r.Note,
		Timestamp: time.Now().UTC(),
	}
}

// Record decodes the carried fields the same way a ledger read does.
func (m *RecordAppendedMessage) Record() core.Record {
	return core.Record{
		Date:     core.DateFromText(m.Date),
		Kind:     core.Kind(m.Kind),
		Category: m.Category,
		Amount:   core.AmountFromText(m.Amount),
		Note:     m.Note,
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordAppendedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordAppendedMessageFromJSON creates a message from JSON bytes. A message
// without a valid event id is rejected.
func RecordAppendedMessageFromJSON(data []byte) (*RecordAppendedMessage, error) {
	var msg RecordAppendedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.EventID); err != nil {
		return nil, errors.New("message has no valid event_id")
	}
	return &msg, nil
}
