package amqp

import (
	"encoding/json"
	"time"
)

// ReasonTransactionChanged marks signals emitted after any successful
// transaction write. The writer does not distinguish the operation;
// consumers rebuild from the store either way.
const ReasonTransactionChanged = "transaction_changed"

// RevalidationMessage tells consumers that externally cached rendered
// output for a user is out of date. It carries only the user id and the
// reason; consumers fetch whatever data they need from the store.
type RevalidationMessage struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRevalidationMessage(userID, reason string) *RevalidationMessage {
	return &RevalidationMessage{
		UserID:    userID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *RevalidationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RevalidationMessageFromJSON(data []byte) (*RevalidationMessage, error) {
	var msg RevalidationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
