package service

import (
	"Postpilot/internal/model"
	"Postpilot/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
)

type MaterializeInput struct {
	UserID      uint64
	Policy      *model.SchedulePolicy
	Account     *model.SocialAccount
	Tweets      []model.GeneratedTweet
	Items       []model.ContentItem
	GeneratedBy string
	DraftStatus model.DraftStatus
}

type MaterializerService interface {
	// Materialize persists one draft and one scheduled post per tweet, each in its own transaction.
	// Failed items are skipped; the joined error lists them.
	Materialize(ctx context.Context, in *MaterializeInput) ([]*model.ScheduledPost, error)
}

type materializerServiceImpl struct {
	repo      repository.MaterializerRepo
	allocator *SlotAllocator
}

func NewMaterializerService(repo repository.MaterializerRepo, allocator *SlotAllocator) MaterializerService {
	return &materializerServiceImpl{
		repo:      repo,
		allocator: allocator,
	}
}

func (s *materializerServiceImpl) Materialize(ctx context.Context, in *MaterializeInput) ([]*model.ScheduledPost, error) {
	if in.Policy == nil || in.Account == nil {
		return nil, ErrParamInvalid
	}

	posts := make([]*model.ScheduledPost, 0, len(in.Tweets))
	var errs []error
	for i, tweet := range in.Tweets {
		slot, err := s.allocator.Slot(in.Policy.PreferredTimes, in.Policy.TimeZone, i)
		if err != nil {
			return posts, err
		}

		source := matchSource(tweet.SourcePost, in.Items)
		meta := model.JSONMap{
			"generatedAt": s.allocator.Now().UTC(),
			"generatedBy": in.GeneratedBy,
		}
		if tweet.SourcePost != nil {
			meta["sourceSubreddit"] = tweet.SourcePost.Subreddit
			meta["sourceTitle"] = tweet.SourcePost.Title
		}

		post, err := s.repo.MaterializeItem(ctx, &repository.MaterializeItem{
			UserID:       in.UserID,
			AccountID:    in.Account.ID,
			Text:         tweet.Text,
			DraftStatus:  in.DraftStatus,
			Meta:         meta,
			Source:       source,
			ScheduledFor: slot,
			Now:          s.allocator.Now(),
		})
		if err != nil {
			log.ErrorContext(ctx, "materialize item failed", "user_id", in.UserID, "index", i, "err", err)
			errs = append(errs, fmt.Errorf("item %d: %w", i, err))
			continue
		}
		posts = append(posts, post)
	}

	if len(errs) > 0 {
		return posts, fmt.Errorf("%w: %w", ErrMaterializeFailed, errors.Join(errs...))
	}
	return posts, nil
}

// matchSource finds the item the generator credited, by title and community
func matchSource(ref *model.SourceRef, items []model.ContentItem) *model.ContentItem {
	if ref == nil {
		return nil
	}
	for i := range items {
		if strings.EqualFold(strings.TrimSpace(items[i].Title), strings.TrimSpace(ref.Title)) &&
			strings.EqualFold(items[i].Community, strings.TrimPrefix(ref.Subreddit, "r/")) {
			return &items[i]
		}
	}
	return nil
}
