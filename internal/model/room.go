package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Room types.
const (
    RoomSingle = "single"
    RoomDouble = "double"
    RoomTriple = "triple"
    RoomQuad   = "quad"
)

// Room status values. The status flag is set by staff and is informational
// only: availability is derived from the allocation ledger.
const (
    RoomStatusAvailable   = "available"
    RoomStatusOccupied    = "occupied"
    RoomStatusMaintenance = "maintenance"
)

// Room mirrors the `rooms` table.
type Room struct {
    ID          uint64          `json:"id"`           // rooms.id
    Number      string          `json:"number"`       // rooms.number (unique)
    Capacity    int             `json:"capacity"`     // rooms.capacity (>= 1)
    Floor       int             `json:"floor"`        // rooms.floor
    RoomType    string          `json:"room_type"`    // rooms.room_type
    Status      string          `json:"status"`       // rooms.status (manual flag)
    MonthlyRent decimal.Decimal `json:"monthly_rent"` // rooms.monthly_rent DECIMAL(10,2)
    Amenities   string          `json:"amenities"`    // rooms.amenities (comma separated)
    Description string          `json:"description"`  // rooms.description
    CreatedAt   time.Time       `json:"created_at"`   // rooms.created_at
    UpdatedAt   time.Time       `json:"updated_at"`   // rooms.updated_at
}

// RoomOccupancy pairs a room with its derived occupancy on a given date.
// Status and IsAvailable are independent: the former is the manual flag,
// the latter is computed from active allocations.
type RoomOccupancy struct {
    Room
    CurrentOccupancy int  `json:"current_occupancy"`
    IsAvailable      bool `json:"is_available"`
}
