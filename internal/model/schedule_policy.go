package model

import "time"

type SchedulePolicy struct {
	ID             uint64     `gorm:"primaryKey" json:"id"`
	UserID         uint64     `gorm:"not null;uniqueIndex:idx_schedule_user" json:"user_id"`
	TimeZone       string     `gorm:"type:varchar(64);not null;default:'UTC'" json:"time_zone"`
	PostsPerDay    int        `gorm:"not null;default:1" json:"posts_per_day"`
	PreferredTimes StringList `gorm:"type:json" json:"preferred_times"` // "HH:MM" in TimeZone, cycled by batch index
	IsActive       bool       `gorm:"not null;default:false" json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (SchedulePolicy) TableName() string {
	return "schedule_policies"
}
