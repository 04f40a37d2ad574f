package model

import "time"

// Post is a social post written by a member.
type Post struct {
    ID            string
    UserID        string
    Content       string
    CommentsCount int // computed, not a column
    LikesCount    int // computed, not a column
    CreatedAt     time.Time
    UpdatedAt     time.Time
}

// Comment is a reply attached to a post.
type Comment struct {
    ID        string
    PostID    string
    UserID    string
    Content   string
    CreatedAt time.Time
}

// EntryAction is either entry or exit.
type EntryAction string

const (
    EntryActionEntry EntryAction = "entry"
    EntryActionExit  EntryAction = "exit"
)

// EntryLog records a member entering or leaving the dog run.
type EntryLog struct {
    ID         string
    UserID     string
    Action     EntryAction
    OccurredAt time.Time
}

// BusinessHour holds the opening hours for one day of the week
// (0 = Sunday … 6 = Saturday). Times are "HH:MM" strings; they are
// empty when the day is closed.
type BusinessHour struct {
    DayOfWeek   int       `json:"day_of_week"`
    IsOpen      bool      `json:"is_open"`
    OpenTime    string    `json:"open_time,omitempty"`
    CloseTime   string    `json:"close_time,omitempty"`
    SpecialNote string    `json:"special_note,omitempty"`
    UpdatedAt   time.Time `json:"updated_at"`
}

// DashboardStats aggregates facility counts for the admin dashboard.
type DashboardStats struct {
    TotalUsers          int `json:"total_users"`
    TotalDogs           int `json:"total_dogs"`
    PendingApplications int `json:"pending_applications"`
    TotalPosts          int `json:"total_posts"`
}
