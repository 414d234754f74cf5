package model

import "time"

// SourceItem deduplicated external content, keyed by (provider, external_id)
type SourceItem struct {
	ID            uint64    `gorm:"primaryKey" json:"id"`
	Provider      string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_provider_external,priority:1" json:"provider"`
	ExternalID    string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_provider_external,priority:2" json:"external_id"`
	SubredditID   *uint64   `gorm:"index:idx_source_subreddit" json:"subreddit_id,omitempty"`
	URL           string    `gorm:"type:varchar(512)" json:"url"`
	Title         string    `gorm:"type:varchar(512)" json:"title"`
	Author        string    `gorm:"type:varchar(100)" json:"author"`
	Summary       string    `gorm:"type:text" json:"summary"`
	Content       JSONMap   `gorm:"type:json" json:"content"`
	Score         int       `gorm:"not null;default:0" json:"score"`
	CommentsCount int       `gorm:"not null;default:0" json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Subreddit *Subreddit `gorm:"foreignKey:SubredditID;references:ID" json:"subreddit,omitempty"`
}

func (SourceItem) TableName() string {
	return "source_items"
}
