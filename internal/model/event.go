package model

import "time"

const (
    EventSocial   = "social"
    EventAcademic = "academic"
    EventSports   = "sports"
    EventCultural = "cultural"
    EventOther    = "other"
)

// Event mirrors the `events` table. AttendeesCount is derived from
// `event_attendees` on read.
type Event struct {
    ID             uint64     `json:"id"`
    Title          string     `json:"title"`
    Description    string     `json:"description"`
    EventType      string     `json:"event_type"`
    StartsAt       time.Time  `json:"start_date"`
    EndsAt         *time.Time `json:"end_date"`
    Location       string     `json:"location"`
    OrganizerID    uint64     `json:"organizer_id"`
    IsPublic       bool       `json:"is_public"`
    AttendeesCount int        `json:"attendees_count"`
    CreatedAt      time.Time  `json:"created_at"`
    UpdatedAt      time.Time  `json:"updated_at"`
}
