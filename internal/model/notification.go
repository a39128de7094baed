package model

import (
	"time"

	"github.com/google/uuid"
)

// Status describes the delivery state of a notification.
type Status string

const (
	StatusPending   Status = "pending"   // waiting for its due instant or retrying delivery
	StatusDelivered Status = "delivered" // delivery confirmed, terminal
)

// Notification represents a scheduled reminder in the system.
type Notification struct {
	ID        uuid.UUID `json:"id"`         // unique identifier, assigned at creation
	Subject   string    `json:"subject"`    // recipient identifier, such as a chat ID
	Text      string    `json:"text"`       // reminder text entered by the user
	DueAt     time.Time `json:"due_at"`     // instant at which delivery becomes eligible
	Status    Status    `json:"status"`     // current state, "pending" or "delivered"
	CreatedAt time.Time `json:"created_at"` // timestamp when the notification was created
}
