package model

import "time"

// AudienceAll targets every role.
const AudienceAll = "all"

// Notice mirrors the `notices` table.
type Notice struct {
    ID             uint64    `json:"id"`
    Title          string    `json:"title"`
    Content        string    `json:"content"`
    Priority       string    `json:"priority"`
    TargetAudience string    `json:"target_audience"`
    IsActive       bool      `json:"is_active"`
    CreatedBy      uint64    `json:"created_by"`
    CreatedAt      time.Time `json:"created_at"`
    UpdatedAt      time.Time `json:"updated_at"`
}
