package model

import (
    "time"

    "github.com/shopspring/decimal"
)

const (
    MaintenancePending    = "pending"
    MaintenanceInProgress = "in_progress"
    MaintenanceCompleted  = "completed"
    MaintenanceCancelled  = "cancelled"
)

// Priorities shared by maintenance requests and notices.
const (
    PriorityLow    = "low"
    PriorityMedium = "medium"
    PriorityHigh   = "high"
    PriorityUrgent = "urgent"
)

// MaintenanceRequest mirrors the `maintenance_requests` table.
type MaintenanceRequest struct {
    ID            uint64              `json:"id"`
    UserID        uint64              `json:"user_id"`
    RoomID        uint64              `json:"room_id"`
    Title         string              `json:"title"`
    Description   string              `json:"description"`
    Priority      string              `json:"priority"`
    Status        string              `json:"status"`
    AssignedTo    *uint64             `json:"assigned_to"`
    EstimatedCost decimal.NullDecimal `json:"estimated_cost"`
    ActualCost    decimal.NullDecimal `json:"actual_cost"`
    CompletedAt   *time.Time          `json:"completed_at"`
    CreatedAt     time.Time           `json:"created_at"`
    UpdatedAt     time.Time           `json:"updated_at"`
}
