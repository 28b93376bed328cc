package model

import "github.com/shopspring/decimal"

// DashboardStats is the staff summary computed on read.
type DashboardStats struct {
    TotalStudents      int             `json:"total_students"`
    TotalRooms         int             `json:"total_rooms"`
    TotalCapacity      int             `json:"total_capacity"`
    CurrentOccupancy   int             `json:"current_occupancy"`
    OccupiedRooms      int             `json:"occupied_rooms"`
    AvailableRooms     int             `json:"available_rooms"`
    PendingPayments    int             `json:"pending_payments"`
    PendingComplaints  int             `json:"pending_complaints"`
    PendingMaintenance int             `json:"pending_maintenance"`
    PendingVisitors    int             `json:"pending_visitors"`
    MonthlyRevenue     decimal.Decimal `json:"monthly_revenue"`
    AverageRating      float64         `json:"average_rating"`
    RecentActivities   []AuditLog      `json:"recent_activities"`
}

// RoomStats summarizes the room inventory.
type RoomStats struct {
    TotalRooms       int            `json:"total_rooms"`
    TotalCapacity    int            `json:"total_capacity"`
    CurrentOccupancy int            `json:"current_occupancy"`
    ByStatus         map[string]int `json:"by_status"`
    ByType           map[string]int `json:"by_type"`
}
