package model

import "time"

// Feedback mirrors the `feedback` table. Rating is 1..5.
type Feedback struct {
    ID        uint64    `json:"id"`
    UserID    uint64    `json:"user_id"`
    Rating    int       `json:"rating"`
    Comments  string    `json:"comments"`
    CreatedAt time.Time `json:"created_at"`
}

// FeedbackStats summarizes ratings. Distribution is keyed "1_star".."5_star".
type FeedbackStats struct {
    Total         int            `json:"total_feedback"`
    AverageRating float64        `json:"average_rating"`
    Distribution  map[string]int `json:"rating_distribution"`
}
