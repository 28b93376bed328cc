// Package queue defines message payloads exchanged over the message broker
// and the consumer that processes them.
package queue

import "time"

// Queue names.
const (
    AllocationsQueue   = "hostel.allocations"
    NotificationsQueue = "hostel.notifications"
)

// Allocation event names.
const (
    AllocationCreated    = "allocation.created"
    AllocationTerminated = "allocation.terminated"
)

// AllocationEvent is published after an allocation is created or closed.
// It carries enough of the ledger row for consumers to log or react without
// querying the database.
type AllocationEvent struct {
    Event        string    `json:"event"`
    AllocationID uint64    `json:"allocation_id"`
    UserID       uint64    `json:"user_id"`
    RoomID       uint64    `json:"room_id"`
    RoomNumber   string    `json:"room_number"`
    StartDate    string    `json:"start_date"`
    EndDate      string    `json:"end_date,omitempty"`
    Status       string    `json:"status"`
    MonthlyRent  string    `json:"monthly_rent"`
    ActorID      uint64    `json:"actor_id"`
    OccurredAt   time.Time `json:"occurred_at"`
}

// NotificationEvent asks the consumer to deliver a stored notification.
type NotificationEvent struct {
    NotificationID uint64    `json:"notification_id"`
    UserID         uint64    `json:"user_id"`
    Subject        string    `json:"subject"`
    Message        string    `json:"message"`
    CreatedAt      time.Time `json:"created_at"`
}
