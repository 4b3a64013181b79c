package models

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Platform is a social network a post can be published to
type Platform string

const (
	PlatformX         Platform = "x"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformFacebook  Platform = "facebook"
)

var platformLimits = map[Platform]int{
	PlatformX:         280,
	PlatformInstagram: 2200,
	PlatformTikTok:    2200,
	PlatformLinkedIn:  3000,
	PlatformFacebook:  63206,
}

// CharLimit returns the maximum content length in runes, or 0 for unknown platforms
func (p Platform) CharLimit() int {
	return platformLimits[p]
}

// Valid reports whether p is a supported platform
func (p Platform) Valid() bool {
	_, ok := platformLimits[p]
	return ok
}

// Fits reports whether content is within the platform limit
func (p Platform) Fits(content string) bool {
	return utf8.RuneCountInString(content) <= p.CharLimit()
}

// Truncate cuts content to the platform limit on a rune boundary
func (p Platform) Truncate(content string) string {
	limit := p.CharLimit()
	if limit == 0 || utf8.RuneCountInString(content) <= limit {
		return content
	}
	runes := []rune(content)
	return string(runes[:limit])
}

// PostStatus represents the publishing state of a post
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostScheduled PostStatus = "scheduled"
	PostPublished PostStatus = "published"
	PostFailed    PostStatus = "failed"
	PostCancelled PostStatus = "cancelled"
)

// SocialPost is a piece of content scheduled for a client's account
type SocialPost struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	OrgID        uuid.UUID  `json:"org_id" db:"org_id"`
	ClientID     uuid.UUID  `json:"client_id" db:"client_id"`
	Platform     Platform   `json:"platform" db:"platform"`
	Content      string     `json:"content" db:"content"`
	MediaURLs    []string   `json:"media_urls" db:"media_urls"`
	ScheduledAt  time.Time  `json:"scheduled_at" db:"scheduled_at"`
	Status       PostStatus `json:"status" db:"status"`
	PublishedAt  *time.Time `json:"published_at,omitempty" db:"published_at"`
	ExternalID   string     `json:"external_id,omitempty" db:"external_id"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
	CreatedBy    *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the SocialPost model
func (SocialPost) TableName() string {
	return "social_posts"
}
