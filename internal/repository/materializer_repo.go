package repository

import (
	"Postpilot/internal/model"
	"Postpilot/internal/pkg/consts"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaterializeItem everything persisted for one generated text
type MaterializeItem struct {
	UserID       uint64
	AccountID    uint64
	Text         string
	DraftStatus  model.DraftStatus
	Meta         model.JSONMap
	Source       *model.ContentItem
	ScheduledFor time.Time
	Now          time.Time
}

type MaterializerRepo interface {
	// MaterializeItem upserts the source item, then creates the draft and its scheduled post in one transaction
	MaterializeItem(ctx context.Context, item *MaterializeItem) (*model.ScheduledPost, error)
}

type MaterializerRepoImpl struct {
	db *gorm.DB
}

func NewMaterializerRepo(db *gorm.DB) MaterializerRepo {
	return &MaterializerRepoImpl{db: db}
}

func (s *MaterializerRepoImpl) MaterializeItem(ctx context.Context, item *MaterializeItem) (*model.ScheduledPost, error) {
	var post *model.ScheduledPost
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sourceItemID *uint64
		if item.Source != nil && item.Source.ID != "" {
			source, err := upsertSourceItem(tx, item.Source)
			if err != nil {
				return err
			}
			sourceItemID = &source.ID
		}

		draft := &model.Draft{
			UserID:       item.UserID,
			SourceItemID: sourceItemID,
			Text:         item.Text,
			Status:       item.DraftStatus,
			Meta:         item.Meta,
			CreatedAt:    item.Now.UTC(),
		}
		if err := tx.Create(draft).Error; err != nil {
			return err
		}

		post = &model.ScheduledPost{
			UserID:          item.UserID,
			SocialAccountID: item.AccountID,
			DraftID:         draft.ID,
			Status:          model.PostStatusScheduled,
			ScheduledFor:    item.ScheduledFor.UTC(),
			CreatedAt:       item.Now.UTC(),
		}
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		post.Draft = *draft

		return incrementUsage(tx, item.UserID, item.Now, "posts_scheduled")
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func upsertSubreddit(tx *gorm.DB, name string, nsfw bool) (*model.Subreddit, error) {
	title := "r/" + name
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Subreddit{Name: name, Title: &title, IsNSFW: nsfw}).Error
	if err != nil {
		return nil, err
	}
	sub := &model.Subreddit{}
	if err = tx.Where("name = ?", name).First(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

// upsertSourceItem keyed by (provider, external_id), refreshing engagement counters on conflict
func upsertSourceItem(tx *gorm.DB, content *model.ContentItem) (*model.SourceItem, error) {
	var subredditID *uint64
	if content.Community != "" {
		sub, err := upsertSubreddit(tx, content.Community, content.IsAdult)
		if err != nil {
			return nil, err
		}
		subredditID = &sub.ID
	}

	item := &model.SourceItem{
		Provider:    consts.ProviderReddit,
		ExternalID:  content.ID,
		SubredditID: subredditID,
		URL:         content.URL,
		Title:       content.Title,
		Author:      content.Author,
		Summary:     truncate(content.Body, 500),
		Content: model.JSONMap{
			"selftext":  content.Body,
			"title":     content.Title,
			"subreddit": content.Community,
			"createdAt": content.CreatedAt.UTC(),
		},
		Score:         content.Score,
		CommentsCount: content.CommentCount,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "comments_count", "updated_at"}),
	}).Create(item).Error
	if err != nil {
		return nil, err
	}

	saved := &model.SourceItem{}
	err = tx.Where("provider = ? AND external_id = ?", consts.ProviderReddit, content.ID).First(saved).Error
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
