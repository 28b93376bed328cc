package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Allocation status values.
const (
    AllocationActive     = "active"
    AllocationInactive   = "inactive"
    AllocationTerminated = "terminated"
)

// Allocation represents one tenancy interval in the `room_allocations`
// table. MonthlyRent and SecurityDeposit are snapshotted at creation so
// later changes to the room's rent do not alter history. EndDate is nil
// while the tenancy is ongoing. Rows are never deleted.
type Allocation struct {
    ID              uint64          `json:"id"`                 // room_allocations.id
    UserID          uint64          `json:"user_id"`            // room_allocations.user_id
    RoomID          uint64          `json:"room_id"`            // room_allocations.room_id
    StartDate       time.Time       `json:"start_date"`         // room_allocations.start_date (DATE)
    EndDate         *time.Time      `json:"end_date"`           // room_allocations.end_date (DATE, nullable)
    Status          string          `json:"status"`             // room_allocations.status
    MonthlyRent     decimal.Decimal `json:"monthly_rent"`       // room_allocations.monthly_rent
    SecurityDeposit decimal.Decimal `json:"security_deposit"`   // room_allocations.security_deposit
    CreatedAt       time.Time       `json:"created_at"`         // room_allocations.created_at
    UpdatedAt       time.Time       `json:"updated_at"`         // room_allocations.updated_at
    RoomNumber      string          `json:"room_number,omitempty"` // joined from rooms.number on reads
}
