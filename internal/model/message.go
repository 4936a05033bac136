package model

import "time"

type Status string

const (
	Pending Status = "pending"
	Sent    Status = "sent"
	Failed  Status = "failed"
)

// ScheduledMessage is a single scheduled send request. Status is pending
// until the dispatcher processes it; sent and failed are terminal.
type ScheduledMessage struct {
	ID            string     `json:"id"`
	Recipient     string     `json:"recipient"`
	Message       string     `json:"message"`
	ScheduledTime time.Time  `json:"scheduledTime"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	SentAt        *time.Time `json:"sentAt,omitempty"`
	FailedAt      *time.Time `json:"failedAt,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Terminal reports whether the message has left the pending state.
func (m ScheduledMessage) Terminal() bool {
	return m.Status == Sent || m.Status == Failed
}
