package model

import "time"

const (
	CommentStatusNormal  = "normal"
	CommentStatusHidden  = "hidden"
	CommentStatusFlagged = "flagged"
)

// Comment rows are immutable except for Status.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ArticleID uint      `gorm:"not null;index:idx_comment_window,priority:1" json:"article_id"`
	Author    string    `gorm:"size:50;not null" json:"author"`
	Email     string    `gorm:"size:100" json:"email,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IPAddress string    `gorm:"size:45;index:idx_comment_window,priority:2" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	Status    string    `gorm:"size:20;not null;default:normal;index" json:"status"`
	CreatedAt time.Time `gorm:"index:idx_comment_window,priority:3" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ValidCommentStatus(status string) bool {
	switch status {
	case CommentStatusNormal, CommentStatusHidden, CommentStatusFlagged:
		return true
	default:
		return false
	}
}

type CommentFilter struct {
	ArticleID uint
	Status    string
	Search    string
	Page      int
	Limit     int
}

// RateDecision is the outcome of a comment admission check.
type RateDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

type CommentLimitInfo struct {
	Enabled     bool     `json:"enabled"`
	WindowHours int      `json:"time_window_hours"`
	MaxComments int      `json:"max_comments"`
	ExemptAdmin bool     `json:"exempt_admin"`
	Whitelist   []string `json:"whitelist"`
}
