package model

import "time"

type SocialAccount struct {
	ID                uint64     `gorm:"primaryKey" json:"id"`
	UserID            uint64     `gorm:"not null;index:idx_account_user" json:"user_id"`
	Provider          string     `gorm:"type:varchar(16);not null" json:"provider"`
	ProviderAccountID string     `gorm:"type:varchar(64)" json:"provider_account_id"`
	Username          *string    `gorm:"type:varchar(100)" json:"username,omitempty"`
	AccessToken       string     `gorm:"type:text" json:"-"`
	RefreshToken      *string    `gorm:"type:text" json:"-"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (SocialAccount) TableName() string {
	return "social_accounts"
}

// TokenExpired reports whether the access token is expired or about to be at now
func (s *SocialAccount) TokenExpired(now time.Time) bool {
	if s.ExpiresAt == nil {
		return false
	}
	return !now.Add(30 * time.Second).Before(*s.ExpiresAt)
}
