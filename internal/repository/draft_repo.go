package repository

import (
	"Postpilot/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type DraftRepo interface {
	GetByID(ctx context.Context, id uint64) (*model.Draft, error)
	List(ctx context.Context, userID uint64, status *model.DraftStatus, offset, limit int) ([]*model.Draft, int64, error)
	// UpdateStatus moves the draft to status unless it currently has one of locked. Returns false when nothing changed.
	UpdateStatus(ctx context.Context, id uint64, status model.DraftStatus, locked []model.DraftStatus) (bool, error)
	// Reject marks the draft REJECTED and cancels its SCHEDULED posts with a CANCEL event, in one transaction.
	// Returns false when the draft has one of locked or a post of it is being published.
	Reject(ctx context.Context, id uint64, locked []model.DraftStatus, reason string, now time.Time) (bool, []*model.PostEvent, error)
}

const rejectedDraftMessage = "Draft rejected"

type DraftRepoImpl struct {
	db *gorm.DB
}

func NewDraftRepo(db *gorm.DB) DraftRepo {
	return &DraftRepoImpl{db: db}
}

func (s *DraftRepoImpl) GetByID(ctx context.Context, id uint64) (*model.Draft, error) {
	draft := &model.Draft{}
	result := s.db.WithContext(ctx).
		Preload("SourceItem").
		First(draft, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return draft, nil
}

func (s *DraftRepoImpl) List(ctx context.Context, userID uint64, status *model.DraftStatus, offset, limit int) ([]*model.Draft, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Draft{}).Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	drafts := make([]*model.Draft, 0)
	err := query.Session(&gorm.Session{}).
		Preload("SourceItem").
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&drafts).Error
	if err != nil {
		return nil, 0, err
	}
	return drafts, total, nil
}

func (s *DraftRepoImpl) UpdateStatus(ctx context.Context, id uint64, status model.DraftStatus, locked []model.DraftStatus) (bool, error) {
	query := s.db.WithContext(ctx).Model(&model.Draft{}).Where("id = ?", id)
	if len(locked) > 0 {
		query = query.Where("status NOT IN ?", locked)
	}
	result := query.Update("status", status)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *DraftRepoImpl) Reject(ctx context.Context, id uint64, locked []model.DraftStatus, reason string, now time.Time) (bool, []*model.PostEvent, error) {
	if reason == "" {
		reason = rejectedDraftMessage
	}
	now = now.UTC()
	var events []*model.PostEvent
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inFlight int64
		err := tx.Model(&model.ScheduledPost{}).
			Where("draft_id = ? AND status = ?", id, model.PostStatusPublishing).
			Count(&inFlight).Error
		if err != nil {
			return err
		}
		if inFlight > 0 {
			return nil
		}

		query := tx.Model(&model.Draft{}).Where("id = ?", id)
		if len(locked) > 0 {
			query = query.Where("status NOT IN ?", locked)
		}
		result := query.Update("status", model.DraftStatusRejected)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		changed = true

		var postIDs []uint64
		err = tx.Model(&model.ScheduledPost{}).
			Where("draft_id = ? AND status = ?", id, model.PostStatusScheduled).
			Pluck("id", &postIDs).Error
		if err != nil {
			return err
		}
		if len(postIDs) == 0 {
			return nil
		}

		err = tx.Model(&model.ScheduledPost{}).
			Where("id IN ? AND status = ?", postIDs, model.PostStatusScheduled).
			Update("status", model.PostStatusCanceled).Error
		if err != nil {
			return err
		}
		for _, postID := range postIDs {
			event, err := appendEvent(tx, postID, model.PostEventCancel, reason, model.JSONMap{"draftId": id}, now)
			if err != nil {
				return err
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return changed, events, nil
}
