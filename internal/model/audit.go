package model

import "time"

// AuditLog mirrors the `audit_logs` table. UserID is nil for system actions.
type AuditLog struct {
    ID          uint64    `json:"id"`
    UserID      *uint64   `json:"user_id"`
    Action      string    `json:"action"`
    ModelName   string    `json:"model_name"`
    ObjectID    *uint64   `json:"object_id"`
    Description string    `json:"description"`
    IPAddress   string    `json:"ip_address"`
    UserAgent   string    `json:"user_agent"`
    CreatedAt   time.Time `json:"created_at"`
}
