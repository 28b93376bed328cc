package model

import "time"

const (
    VisitorPending  = "pending"
    VisitorApproved = "approved"
    VisitorRejected = "rejected"
)

// Visitor mirrors the `visitors` table. UserID is the hosting resident.
type Visitor struct {
    ID          uint64     `json:"id"`
    UserID      uint64     `json:"user_id"`
    VisitorName string     `json:"visitor_name"`
    Phone       string     `json:"phone"`
    Purpose     string     `json:"purpose"`
    VisitDate   time.Time  `json:"visit_date"`
    Status      string     `json:"status"`
    ApprovedBy  *uint64    `json:"approved_by"`
    ApprovedAt  *time.Time `json:"approved_at"`
    CreatedAt   time.Time  `json:"created_at"`
}
