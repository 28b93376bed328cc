package model

import "time"

const (
    NotificationPending = "pending"
    NotificationSent    = "sent"
    NotificationFailed  = "failed"
)

// Notification mirrors the `notifications` table: a message addressed to
// one user, delivered asynchronously by the queue consumer.
type Notification struct {
    ID        uint64     `json:"id"`
    UserID    uint64     `json:"user_id"`
    Subject   string     `json:"subject"`
    Message   string     `json:"message"`
    Status    string     `json:"status"`
    SentAt    *time.Time `json:"sent_at"`
    CreatedAt time.Time  `json:"created_at"`
}
