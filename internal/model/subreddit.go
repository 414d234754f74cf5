package model

import "time"

type Subreddit struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_subreddit_name" json:"name"`
	Title     *string   `gorm:"type:varchar(255)" json:"title,omitempty"`
	IsNSFW    bool      `gorm:"not null;default:false" json:"is_nsfw"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subreddit) TableName() string {
	return "subreddits"
}

// UserSource per-user enablement of a community
type UserSource struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	UserID      uint64    `gorm:"not null;uniqueIndex:idx_user_subreddit,priority:1" json:"user_id"`
	SubredditID uint64    `gorm:"not null;uniqueIndex:idx_user_subreddit,priority:2" json:"subreddit_id"`
	IsEnabled   bool      `gorm:"not null" json:"is_enabled"`
	Priority    int       `gorm:"not null;default:0" json:"priority"`
	CreatedAt   time.Time `json:"created_at"`

	Subreddit Subreddit `gorm:"foreignKey:SubredditID;references:ID" json:"subreddit"`
}

func (UserSource) TableName() string {
	return "user_sources"
}
