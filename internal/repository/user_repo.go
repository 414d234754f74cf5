package repository

import (
	"Postpilot/internal/model"
	"Postpilot/internal/pkg/consts"
	"context"
	"errors"

	"gorm.io/gorm"
)

type UserRepo interface {
	// FindEligibleUsers users with an active policy, an enabled source, a voice profile and a posting account
	FindEligibleUsers(ctx context.Context) ([]*model.User, error)
	// GetUserWithPipeline loads one user with everything the pipeline reads, whatever its eligibility
	GetUserWithPipeline(ctx context.Context, id uint64) (*model.User, error)
}

type UserRepoImpl struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepo {
	return &UserRepoImpl{db: db}
}

func preloadPipeline(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Schedule").
		Preload("VoiceProfile").
		Preload("Sources", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_enabled = ?", true).Order("priority DESC, id ASC")
		}).
		Preload("Sources.Subreddit").
		Preload("Accounts", func(db *gorm.DB) *gorm.DB {
			return db.Where("provider = ?", consts.ProviderX).Order("id ASC")
		})
}

func (s *UserRepoImpl) FindEligibleUsers(ctx context.Context) ([]*model.User, error) {
	users := make([]*model.User, 0)
	result := preloadPipeline(s.db.WithContext(ctx)).
		Where("EXISTS (SELECT 1 FROM schedule_policies sp WHERE sp.user_id = users.id AND sp.is_active = ?)", true).
		Where("EXISTS (SELECT 1 FROM user_sources us WHERE us.user_id = users.id AND us.is_enabled = ?)", true).
		Where("EXISTS (SELECT 1 FROM voice_profiles vp WHERE vp.user_id = users.id)").
		Where("EXISTS (SELECT 1 FROM social_accounts sa WHERE sa.user_id = users.id AND sa.provider = ?)", consts.ProviderX).
		Order("users.id ASC").
		Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	return users, nil
}

func (s *UserRepoImpl) GetUserWithPipeline(ctx context.Context, id uint64) (*model.User, error) {
	user := &model.User{}
	result := preloadPipeline(s.db.WithContext(ctx)).First(user, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return user, nil
}
