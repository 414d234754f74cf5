package model

import "time"

type PostEventType string

const (
	PostEventAttempt PostEventType = "ATTEMPT"
	PostEventSuccess PostEventType = "SUCCESS"
	PostEventFailure PostEventType = "FAILURE"
	PostEventCancel  PostEventType = "CANCEL"
	PostEventRetry   PostEventType = "RETRY"
)

// PostEvent append-only audit row, never updated or deleted
type PostEvent struct {
	ID              uint64        `gorm:"primaryKey" json:"id"`
	ScheduledPostID uint64        `gorm:"not null;index:idx_event_post" json:"scheduled_post_id"`
	Type            PostEventType `gorm:"type:varchar(16);not null" json:"type"`
	Message         string        `gorm:"type:text" json:"message"`
	Data            JSONMap       `gorm:"type:json" json:"data,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

func (PostEvent) TableName() string {
	return "post_events"
}
