package repository

import (
	"Postpilot/internal/model"
	"Postpilot/internal/pkg/consts"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsageRepo interface {
	GetOrCreate(ctx context.Context, userID uint64, year, month int) (*model.MonthlyUsage, error)
}

type UsageRepoImpl struct {
	db *gorm.DB
}

func NewUsageRepo(db *gorm.DB) UsageRepo {
	return &UsageRepoImpl{db: db}
}

func (s *UsageRepoImpl) GetOrCreate(ctx context.Context, userID uint64, year, month int) (*model.MonthlyUsage, error) {
	usage := &model.MonthlyUsage{
		UserID:        userID,
		Year:          year,
		Month:         month,
		PostsAllotted: consts.DefaultPostsAllotted,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(usage).Error
	if err != nil {
		return nil, err
	}

	result := &model.MonthlyUsage{}
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND year = ? AND month = ?", userID, year, month).
		First(result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

// incrementUsage bumps column of the usage row of the UTC month of at, creating the row when missing
func incrementUsage(tx *gorm.DB, userID uint64, at time.Time, column string) error {
	at = at.UTC()
	row := &model.MonthlyUsage{
		UserID:        userID,
		Year:          at.Year(),
		Month:         int(at.Month()),
		PostsAllotted: consts.DefaultPostsAllotted,
	}
	switch column {
	case "posts_scheduled":
		row.PostsScheduled = 1
	case "posts_posted":
		row.PostsPosted = 1
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "year"}, {Name: "month"}},
		DoUpdates: clause.Assignments(map[string]any{column: gorm.Expr(column + " + 1")}),
	}).Create(row).Error
}
