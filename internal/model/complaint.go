package model

import "time"

const (
    ComplaintOpen       = "open"
    ComplaintInProgress = "in_progress"
    ComplaintResolved   = "resolved"
)

// Complaint mirrors the `complaints` table. RoomID is optional.
type Complaint struct {
    ID          uint64    `json:"id"`
    UserID      uint64    `json:"user_id"`
    RoomID      *uint64   `json:"room_id"`
    Title       string    `json:"title"`
    Description string    `json:"description"`
    Status      string    `json:"status"`
    CreatedAt   time.Time `json:"created_at"`
    UpdatedAt   time.Time `json:"updated_at"`
}
