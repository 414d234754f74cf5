package repository

import (
	"Postpilot/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type AccountRepo interface {
	UpdateTokens(ctx context.Context, accountID uint64, accessToken string, refreshToken *string, expiresAt *time.Time) error
}

type AccountRepoImpl struct {
	db *gorm.DB
}

func NewAccountRepo(db *gorm.DB) AccountRepo {
	return &AccountRepoImpl{db: db}
}

func (s *AccountRepoImpl) UpdateTokens(ctx context.Context, accountID uint64, accessToken string, refreshToken *string, expiresAt *time.Time) error {
	updates := map[string]any{
		"access_token": accessToken,
		"expires_at":   expiresAt,
	}
	if refreshToken != nil {
		updates["refresh_token"] = *refreshToken
	}
	return s.db.WithContext(ctx).
		Model(&model.SocialAccount{}).
		Where("id = ?", accountID).
		Updates(updates).Error
}
