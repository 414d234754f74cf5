package model

import (
	"time"
)

type User struct {
	ID        uint64  `gorm:"primaryKey"`
	Email     *string `gorm:"type:varchar(255);uniqueIndex:idx_email"`
	Name      string  `gorm:"type:varchar(100)"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Schedule     *SchedulePolicy `gorm:"foreignKey:UserID;references:ID"`
	VoiceProfile *VoiceProfile   `gorm:"foreignKey:UserID;references:ID"`
	Sources      []UserSource    `gorm:"foreignKey:UserID;references:ID"`
	Accounts     []SocialAccount `gorm:"foreignKey:UserID;references:ID"`
}

func (User) TableName() string {
	return "users"
}
