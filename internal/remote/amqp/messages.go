package amqp

import (
	"encoding/json"
	"time"
)

// SnapshotMessage carries a whole ledger document for one user.
type SnapshotMessage struct {
	UserID    string          `json:"user_id"`
	Document  json.RawMessage `json:"document"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewSnapshotMessage(userID string, document []byte) *SnapshotMessage {
	return &SnapshotMessage{
		UserID:    userID,
		Document:  document,
		Timestamp: time.Now(),
	}
}

func (m *SnapshotMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SnapshotMessageFromJSON(data []byte) (*SnapshotMessage, error) {
	var msg SnapshotMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
