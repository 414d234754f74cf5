package dto

import (
	"Postpilot/internal/model"
	"time"
)

// ScheduledPostDTO a post with the text of its draft
type ScheduledPostDTO struct {
	ID              uint64           `json:"id"`
	UserID          uint64           `json:"user_id"`
	SocialAccountID uint64           `json:"social_account_id"`
	DraftID         uint64           `json:"draft_id"`
	Text            string           `json:"text"`
	Status          model.PostStatus `json:"status"`
	ScheduledFor    time.Time        `json:"scheduled_for"`
	PostedAt        *time.Time       `json:"posted_at,omitempty"`
	ExternalPostID  *string          `json:"external_post_id,omitempty"`
	Error           *string          `json:"error,omitempty"`
	AttemptCount    int              `json:"attempt_count"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// PostListDTO filters of the post list
type PostListDTO struct {
	PageDTO
	Status string     `form:"status" validate:"omitempty,oneof=SCHEDULED PUBLISHING POSTED FAILED CANCELED SKIPPED"`
	From   *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To     *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

type CancelPostDTO struct {
	Reason string `json:"reason" validate:"max=500"`
}

type PostEventDTO struct {
	ID        uint64              `json:"id"`
	Type      model.PostEventType `json:"type"`
	Message   string              `json:"message"`
	Data      map[string]any      `json:"data,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}
