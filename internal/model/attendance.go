package model

import "time"

// Attendance mirrors the `attendance` table. (user_id, date) is unique.
type Attendance struct {
    ID       uint64    `json:"id"`
    UserID   uint64    `json:"user_id"`
    Date     time.Time `json:"date"`
    Present  bool      `json:"present"`
    MarkedAt time.Time `json:"marked_at"`
}

// AttendanceStats summarizes attendance rows over a date window.
type AttendanceStats struct {
    Total      int     `json:"total"`
    Present    int     `json:"present"`
    Absent     int     `json:"absent"`
    Percentage float64 `json:"percentage"`
}
