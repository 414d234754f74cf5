package service

import (
	"Postpilot/internal/api/dto"
	"Postpilot/internal/model"
	"Postpilot/internal/pkg/util"
	"Postpilot/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/jinzhu/copier"
)

const defaultPageSize = 20

type PostService interface {
	ListPosts(ctx context.Context, userID uint64, query *dto.PostListDTO) (*dto.PageResult[*dto.ScheduledPostDTO], error)
	GetPost(ctx context.Context, userID, postID uint64) (*dto.ScheduledPostDTO, error)
	ListEvents(ctx context.Context, userID, postID uint64, page *dto.PageDTO) ([]*dto.PostEventDTO, error)
}

type postServiceImpl struct {
	postRepo repository.ScheduledPostRepo
}

func NewPostService(postRepo repository.ScheduledPostRepo) PostService {
	return &postServiceImpl{
		postRepo: postRepo,
	}
}

func (s *postServiceImpl) ListPosts(ctx context.Context, userID uint64, query *dto.PostListDTO) (*dto.PageResult[*dto.ScheduledPostDTO], error) {
	if err := util.ValidateDTO(query); err != nil {
		return nil, err
	}
	if query.From != nil && query.To != nil && !query.From.Before(*query.To) {
		return nil, ErrParamInvalid
	}

	filter := repository.PostFilter{
		From:   query.From,
		To:     query.To,
		Offset: query.Offset,
		Limit:  pageLimit(query.Limit),
	}
	if query.Status != "" {
		status := model.PostStatus(query.Status)
		filter.Status = &status
	}

	posts, total, err := s.postRepo.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ScheduledPostDTO, 0, len(posts))
	for _, post := range posts {
		items = append(items, ToScheduledPostDTO(post))
	}
	return &dto.PageResult[*dto.ScheduledPostDTO]{Items: items, Total: total}, nil
}

func (s *postServiceImpl) GetPost(ctx context.Context, userID, postID uint64) (*dto.ScheduledPostDTO, error) {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	return ToScheduledPostDTO(post), nil
}

func (s *postServiceImpl) ListEvents(ctx context.Context, userID, postID uint64, page *dto.PageDTO) ([]*dto.PostEventDTO, error) {
	if err := util.ValidateDTO(page); err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, userID, postID); err != nil {
		return nil, err
	}

	events, err := s.postRepo.ListEvents(ctx, postID, page.Offset, pageLimit(page.Limit))
	if err != nil {
		return nil, err
	}
	out := make([]*dto.PostEventDTO, 0, len(events))
	for _, event := range events {
		item := &dto.PostEventDTO{}
		_ = copier.Copy(item, event)
		out = append(out, item)
	}
	return out, nil
}

func (s *postServiceImpl) owned(ctx context.Context, userID, postID uint64) (*model.ScheduledPost, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// ToScheduledPostDTO flattens a post and its draft text
func ToScheduledPostDTO(post *model.ScheduledPost) *dto.ScheduledPostDTO {
	item := &dto.ScheduledPostDTO{}
	_ = copier.Copy(item, post)
	item.Text = post.Draft.Text
	item.ScheduledFor = post.ScheduledFor.UTC()
	return item
}

func pageLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	return limit
}

type DraftService interface {
	ListDrafts(ctx context.Context, userID uint64, query *dto.DraftListDTO) (*dto.PageResult[*dto.DraftDTO], error)
	// Approve marks the draft APPROVED. Drafts already scheduled or posted are locked.
	Approve(ctx context.Context, userID, draftID uint64) error
	// Reject marks the draft REJECTED and cancels the posts still waiting to publish it
	Reject(ctx context.Context, userID, draftID uint64) error
}

var lockedDraftStatuses = []model.DraftStatus{model.DraftStatusScheduled, model.DraftStatusPosted}

type draftServiceImpl struct {
	draftRepo repository.DraftRepo
}

func NewDraftService(draftRepo repository.DraftRepo) DraftService {
	return &draftServiceImpl{
		draftRepo: draftRepo,
	}
}

func (s *draftServiceImpl) ListDrafts(ctx context.Context, userID uint64, query *dto.DraftListDTO) (*dto.PageResult[*dto.DraftDTO], error) {
	if err := util.ValidateDTO(query); err != nil {
		return nil, err
	}
	var status *model.DraftStatus
	if query.Status != "" {
		st := model.DraftStatus(query.Status)
		status = &st
	}

	drafts, total, err := s.draftRepo.List(ctx, userID, status, query.Offset, pageLimit(query.Limit))
	if err != nil {
		return nil, err
	}

	items := make([]*dto.DraftDTO, 0, len(drafts))
	for _, draft := range drafts {
		item := &dto.DraftDTO{}
		_ = copier.Copy(item, draft)
		if draft.SourceItem != nil {
			item.SourceTitle = draft.SourceItem.Title
			item.SourceURL = draft.SourceItem.URL
		}
		items = append(items, item)
	}
	return &dto.PageResult[*dto.DraftDTO]{Items: items, Total: total}, nil
}

func (s *draftServiceImpl) Approve(ctx context.Context, userID, draftID uint64) error {
	return s.transition(ctx, userID, draftID, model.DraftStatusApproved)
}

func (s *draftServiceImpl) Reject(ctx context.Context, userID, draftID uint64) error {
	if err := s.ownedDraft(ctx, userID, draftID); err != nil {
		return err
	}

	ok, events, err := s.draftRepo.Reject(ctx, draftID, lockedDraftStatuses, "", time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrDraftLocked
	}
	if len(events) > 0 {
		log.InfoContext(ctx, "draft rejected, pending posts canceled", "draft_id", draftID, "canceled", len(events))
	}
	return nil
}

func (s *draftServiceImpl) ownedDraft(ctx context.Context, userID, draftID uint64) error {
	draft, err := s.draftRepo.GetByID(ctx, draftID)
	if err != nil {
		return err
	}
	if draft == nil || draft.UserID != userID {
		return ErrDraftNotFound
	}
	return nil
}

func (s *draftServiceImpl) transition(ctx context.Context, userID, draftID uint64, status model.DraftStatus) error {
	if err := s.ownedDraft(ctx, userID, draftID); err != nil {
		return err
	}

	ok, err := s.draftRepo.UpdateStatus(ctx, draftID, status, lockedDraftStatuses)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDraftLocked
	}
	return nil
}

type UsageService interface {
	// Current usage of the UTC calendar month containing now, created on first access
	Current(ctx context.Context, userID uint64, now time.Time) (*dto.UsageDTO, error)
}

type usageServiceImpl struct {
	usageRepo repository.UsageRepo
}

func NewUsageService(usageRepo repository.UsageRepo) UsageService {
	return &usageServiceImpl{
		usageRepo: usageRepo,
	}
}

func (s *usageServiceImpl) Current(ctx context.Context, userID uint64, now time.Time) (*dto.UsageDTO, error) {
	now = now.UTC()
	usage, err := s.usageRepo.GetOrCreate(ctx, userID, now.Year(), int(now.Month()))
	if err != nil {
		return nil, err
	}
	item := &dto.UsageDTO{}
	_ = copier.Copy(item, usage)
	item.Remaining = max(0, usage.PostsAllotted-usage.PostsScheduled)
	return item, nil
}
