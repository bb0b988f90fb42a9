package models

import (
	"path"
	"strings"
	"time"
)

// Post is a news item published by staff.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Media     string    `json:"media,omitempty"`
	CreatedBy string    `json:"created_by"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Creator   *Owner    `json:"users,omitempty"`
}

// MediaKind returns "video", "image" or "" depending on the media URL extension.
func (p Post) MediaKind() string {
	if p.Media == "" {
		return ""
	}
	ext := strings.ToLower(path.Ext(strings.SplitN(p.Media, "?", 2)[0]))
	switch ext {
	case ".mp4", ".webm", ".mov":
		return "video"
	default:
		return "image"
	}
}

// Comment is a verified user's reply to a post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    *Owner    `json:"users,omitempty"`
}

// Stats are the aggregate counters shown on the admin dashboard.
type Stats struct {
	TotalUsers    int `json:"total_users"`
	VerifiedUsers int `json:"verified_users"`
	TotalClaims   int `json:"total_claims"`
	PendingClaims int `json:"pending_claims"`
	TotalPosts    int `json:"total_posts"`
}
