package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Change operations carried by ActivityChangeMessage.
const (
	OpActivityCreated = "activity.created"
	OpActivityUpdated = "activity.updated"
	OpActivityDeleted = "activity.deleted"
)

// ActivityChangeMessage announces that one day of one user changed. It carries
// identifiers only; consumers read the authoritative day from the store.
type ActivityChangeMessage struct {
	Op         string    `json:"op"`
	UserID     string    `json:"user_id"`
	Date       string    `json:"date"`
	ActivityID string    `json:"activity_id"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewActivityChangeMessage(op, userID, date, activityID string) *ActivityChangeMessage {
	return &ActivityChangeMessage{
		Op:         op,
		UserID:     userID,
		Date:       date,
		ActivityID: activityID,
		Timestamp:  time.Now().UTC(),
	}
}

func (m *ActivityChangeMessage) Validate() error {
	switch m.Op {
	case OpActivityCreated, OpActivityUpdated, OpActivityDeleted:
	default:
		return fmt.Errorf("unknown op %q", m.Op)
	}
	if m.UserID == "" || m.Date == "" {
		return fmt.Errorf("message missing user or date")
	}
	return nil
}

func (m *ActivityChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActivityChangeMessageFromJSON decodes and validates a message body.
func ActivityChangeMessageFromJSON(data []byte) (*ActivityChangeMessage, error) {
	var msg ActivityChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
