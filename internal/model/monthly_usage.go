package model

import "time"

type MonthlyUsage struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	UserID         uint64    `gorm:"not null;uniqueIndex:idx_usage_user_month,priority:1" json:"user_id"`
	Year           int       `gorm:"not null;uniqueIndex:idx_usage_user_month,priority:2" json:"year"`
	Month          int       `gorm:"not null;uniqueIndex:idx_usage_user_month,priority:3" json:"month"`
	PostsAllotted  int       `gorm:"not null;default:100" json:"posts_allotted"`
	PostsScheduled int       `gorm:"not null;default:0" json:"posts_scheduled"`
	PostsPosted    int       `gorm:"not null;default:0" json:"posts_posted"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (MonthlyUsage) TableName() string {
	return "monthly_usages"
}
