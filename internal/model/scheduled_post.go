package model

import "time"

type PostStatus string

const (
	PostStatusScheduled PostStatus = "SCHEDULED"
	// PostStatusPublishing claimed by a publisher, gateway outcome not yet recorded
	PostStatusPublishing PostStatus = "PUBLISHING"
	PostStatusPosted     PostStatus = "POSTED"
	PostStatusFailed     PostStatus = "FAILED"
	PostStatusCanceled   PostStatus = "CANCELED"
	PostStatusSkipped    PostStatus = "SKIPPED"
)

// QuotaStatuses statuses that consume a slot of the daily quota
var QuotaStatuses = []PostStatus{PostStatusScheduled, PostStatusPublishing, PostStatusPosted}

type ScheduledPost struct {
	ID              uint64     `gorm:"primaryKey" json:"id"`
	UserID          uint64     `gorm:"not null;index:idx_post_user_day,priority:1" json:"user_id"`
	SocialAccountID uint64     `gorm:"not null" json:"social_account_id"`
	DraftID         uint64     `gorm:"not null;index:idx_post_draft" json:"draft_id"`
	Status          PostStatus `gorm:"type:varchar(16);not null;default:'SCHEDULED';index:idx_post_status_due,priority:1" json:"status"`
	ScheduledFor    time.Time  `gorm:"not null;index:idx_post_user_day,priority:2;index:idx_post_status_due,priority:2" json:"scheduled_for"`
	PostedAt        *time.Time `json:"posted_at,omitempty"`
	ExternalPostID  *string    `gorm:"type:varchar(64)" json:"external_post_id,omitempty"`
	Error           *string    `gorm:"type:text" json:"error,omitempty"`
	AttemptCount    int        `gorm:"not null;default:0" json:"attempt_count"`
	LockedAt        *time.Time `json:"locked_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Draft         Draft         `gorm:"foreignKey:DraftID;references:ID" json:"draft"`
	SocialAccount SocialAccount `gorm:"foreignKey:SocialAccountID;references:ID" json:"social_account"`
}

func (ScheduledPost) TableName() string {
	return "scheduled_posts"
}
