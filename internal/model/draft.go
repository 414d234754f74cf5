package model

import "time"

type DraftStatus string

const (
	DraftStatusDraft     DraftStatus = "DRAFT"
	DraftStatusApproved  DraftStatus = "APPROVED"
	DraftStatusRejected  DraftStatus = "REJECTED"
	DraftStatusScheduled DraftStatus = "SCHEDULED"
	DraftStatusPosted    DraftStatus = "POSTED"
)

type Draft struct {
	ID           uint64      `gorm:"primaryKey" json:"id"`
	UserID       uint64      `gorm:"not null;index:idx_draft_user" json:"user_id"`
	SourceItemID *uint64     `json:"source_item_id,omitempty"`
	Text         string      `gorm:"type:text;not null" json:"text"`
	Status       DraftStatus `gorm:"type:varchar(16);not null;default:'DRAFT'" json:"status"`
	Meta         JSONMap     `gorm:"type:json" json:"meta"` // generatedAt, sourceSubreddit, sourceTitle, generatedBy
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`

	SourceItem *SourceItem `gorm:"foreignKey:SourceItemID;references:ID" json:"source_item,omitempty"`
}

func (Draft) TableName() string {
	return "drafts"
}
