package repository

import (
	"Postpilot/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrStateChanged the row left the expected status before a conditional update
var ErrStateChanged = errors.New("scheduled post state changed concurrently")

type PostFilter struct {
	Status *model.PostStatus
	From   *time.Time
	To     *time.Time
	Offset int
	Limit  int
}

type ScheduledPostRepo interface {
	// CountForQuota counts posts of userID with one of statuses that are scheduled in [from, to)
	// or were created in [from, to), so a slot rolled into the next day still counts for the day that made it
	CountForQuota(ctx context.Context, userID uint64, from, to time.Time, statuses []model.PostStatus) (int64, error)
	GetByID(ctx context.Context, id uint64) (*model.ScheduledPost, error)
	List(ctx context.Context, userID uint64, filter PostFilter) ([]*model.ScheduledPost, int64, error)
	ListEvents(ctx context.Context, postID uint64, offset, limit int) ([]*model.PostEvent, error)
	// FindDue lists SCHEDULED posts due at now whose draft is APPROVED
	FindDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error)
	FindStalePublishing(ctx context.Context, lockedBefore time.Time, limit int) ([]*model.ScheduledPost, error)

	// Claim moves a SCHEDULED post with an APPROVED draft to PUBLISHING and records the attempt.
	// A nil event means another caller owns it or the draft is no longer approved.
	Claim(ctx context.Context, id uint64, now time.Time) (*model.PostEvent, error)
	MarkPosted(ctx context.Context, post *model.ScheduledPost, externalID string, now time.Time) (*model.PostEvent, error)
	MarkFailed(ctx context.Context, id uint64, message string, data model.JSONMap, now time.Time) (*model.PostEvent, error)
	// Cancel moves a SCHEDULED post to CANCELED. A nil event means the post was not SCHEDULED.
	Cancel(ctx context.Context, id uint64, reason string, now time.Time) (*model.PostEvent, error)
	// Retry moves a FAILED post back to SCHEDULED at now. A nil event means the post was not FAILED.
	Retry(ctx context.Context, id uint64, now time.Time) (*model.PostEvent, error)
}

type ScheduledPostRepoImpl struct {
	db *gorm.DB
}

func NewScheduledPostRepo(db *gorm.DB) ScheduledPostRepo {
	return &ScheduledPostRepoImpl{db: db}
}

func (s *ScheduledPostRepoImpl) CountForQuota(ctx context.Context, userID uint64, from, to time.Time, statuses []model.PostStatus) (int64, error) {
	from, to = from.UTC(), to.UTC()
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.ScheduledPost{}).
		Where("user_id = ? AND status IN ?", userID, statuses).
		Where("(scheduled_for >= ? AND scheduled_for < ?) OR (created_at >= ? AND created_at < ?)", from, to, from, to).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *ScheduledPostRepoImpl) GetByID(ctx context.Context, id uint64) (*model.ScheduledPost, error) {
	post := &model.ScheduledPost{}
	result := s.db.WithContext(ctx).
		Preload("Draft").
		Preload("SocialAccount").
		First(post, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return post, nil
}

func (s *ScheduledPostRepoImpl) List(ctx context.Context, userID uint64, filter PostFilter) ([]*model.ScheduledPost, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.ScheduledPost{}).Where("user_id = ?", userID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("scheduled_for >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("scheduled_for < ?", filter.To.UTC())
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	posts := make([]*model.ScheduledPost, 0)
	err := query.Session(&gorm.Session{}).
		Preload("Draft").
		Order("scheduled_for ASC, id ASC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (s *ScheduledPostRepoImpl) ListEvents(ctx context.Context, postID uint64, offset, limit int) ([]*model.PostEvent, error) {
	events := make([]*model.PostEvent, 0)
	err := s.db.WithContext(ctx).
		Where("scheduled_post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *ScheduledPostRepoImpl) FindDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	posts := make([]*model.ScheduledPost, 0)
	err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", model.PostStatusScheduled, now.UTC()).
		Where("draft_id IN (?)", approvedDrafts(s.db.WithContext(ctx))).
		Order("scheduled_for ASC, id ASC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *ScheduledPostRepoImpl) FindStalePublishing(ctx context.Context, lockedBefore time.Time, limit int) ([]*model.ScheduledPost, error) {
	posts := make([]*model.ScheduledPost, 0)
	err := s.db.WithContext(ctx).
		Where("status = ? AND locked_at <= ?", model.PostStatusPublishing, lockedBefore.UTC()).
		Order("locked_at ASC, id ASC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func approvedDrafts(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&model.Draft{}).
		Select("id").
		Where("status = ?", model.DraftStatusApproved)
}

func (s *ScheduledPostRepoImpl) Claim(ctx context.Context, id uint64, now time.Time) (*model.PostEvent, error) {
	now = now.UTC()
	var event *model.PostEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ScheduledPost{}).
			Where("id = ? AND status = ?", id, model.PostStatusScheduled).
			Where("draft_id IN (?)", approvedDrafts(tx)).
			Updates(map[string]any{
				"status":        model.PostStatusPublishing,
				"locked_at":     now,
				"attempt_count": gorm.Expr("attempt_count + ?", 1),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		var attempt int
		if err := tx.Model(&model.ScheduledPost{}).Where("id = ?", id).Pluck("attempt_count", &attempt).Error; err != nil {
			return err
		}
		e, err := appendEvent(tx, id, model.PostEventAttempt, "Publish attempt started", model.JSONMap{"attempt": attempt}, now)
		if err != nil {
			return err
		}
		event = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *ScheduledPostRepoImpl) MarkPosted(ctx context.Context, post *model.ScheduledPost, externalID string, now time.Time) (*model.PostEvent, error) {
	now = now.UTC()
	var event *model.PostEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ScheduledPost{}).
			Where("id = ? AND status = ?", post.ID, model.PostStatusPublishing).
			Updates(map[string]any{
				"status":           model.PostStatusPosted,
				"posted_at":        now,
				"external_post_id": externalID,
				"locked_at":        nil,
				"error":            nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStateChanged
		}

		err := tx.Model(&model.Draft{}).
			Where("id = ?", post.DraftID).
			Update("status", model.DraftStatusPosted).Error
		if err != nil {
			return err
		}

		if err = incrementUsage(tx, post.UserID, now, "posts_posted"); err != nil {
			return err
		}

		event, err = appendEvent(tx, post.ID, model.PostEventSuccess, "Posted", model.JSONMap{"externalPostId": externalID}, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *ScheduledPostRepoImpl) MarkFailed(ctx context.Context, id uint64, message string, data model.JSONMap, now time.Time) (*model.PostEvent, error) {
	now = now.UTC()
	var event *model.PostEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ScheduledPost{}).
			Where("id = ? AND status = ?", id, model.PostStatusPublishing).
			Updates(map[string]any{
				"status":    model.PostStatusFailed,
				"error":     message,
				"locked_at": nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStateChanged
		}

		var err error
		event, err = appendEvent(tx, id, model.PostEventFailure, message, data, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *ScheduledPostRepoImpl) Cancel(ctx context.Context, id uint64, reason string, now time.Time) (*model.PostEvent, error) {
	now = now.UTC()
	var event *model.PostEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ScheduledPost{}).
			Where("id = ? AND status = ?", id, model.PostStatusScheduled).
			Updates(map[string]any{
				"status": model.PostStatusCanceled,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		var err error
		event, err = appendEvent(tx, id, model.PostEventCancel, reason, nil, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *ScheduledPostRepoImpl) Retry(ctx context.Context, id uint64, now time.Time) (*model.PostEvent, error) {
	now = now.UTC()
	var event *model.PostEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ScheduledPost{}).
			Where("id = ? AND status = ?", id, model.PostStatusFailed).
			Updates(map[string]any{
				"status":        model.PostStatusScheduled,
				"scheduled_for": now,
				"error":         nil,
				"locked_at":     nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		var err error
		event, err = appendEvent(tx, id, model.PostEventRetry, "Rescheduled after failure", nil, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}
