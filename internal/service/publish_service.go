package service

import (
	"Postpilot/internal/model"
	"Postpilot/internal/pkg/metrics"
	"Postpilot/internal/pkg/x"
	"Postpilot/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultCancelReason  = "Post canceled by user"
	staleFailureMessage  = "publish outcome unknown"
	defaultInFlightLease = 10 * time.Minute
)

// XPublisher the posting API as the executor sees it
type XPublisher interface {
	Publish(ctx context.Context, accessToken, text string) (string, error)
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// EventNotifier receives every committed post event. Delivery is best effort.
type EventNotifier interface {
	Notify(ctx context.Context, post *model.ScheduledPost, event *model.PostEvent)
}

// DueSummary result of one sweep over due posts
type DueSummary struct {
	Published int `json:"published"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Expired   int `json:"expired"`
}

type PublishService interface {
	// Publish posts a SCHEDULED post now. userID 0 acts as the system and skips the owner check.
	Publish(ctx context.Context, userID, postID uint64) (*model.ScheduledPost, error)
	Cancel(ctx context.Context, userID, postID uint64, reason string) error
	Retry(ctx context.Context, userID, postID uint64) error
	// PublishDue publishes up to limit due posts and fails claims older than the in-flight lease
	PublishDue(ctx context.Context, now time.Time, limit int) (*DueSummary, error)
}

type PublishOptions struct {
	Timeout       time.Duration
	InFlightLease time.Duration
}

type publishServiceImpl struct {
	postRepo    repository.ScheduledPostRepo
	accountRepo repository.AccountRepo
	publisher   XPublisher
	notifier    EventNotifier
	metrics     *metrics.Metrics
	now         func() time.Time
	opts        PublishOptions
}

func NewPublishService(
	postRepo repository.ScheduledPostRepo,
	accountRepo repository.AccountRepo,
	publisher XPublisher,
	notifier EventNotifier,
	m *metrics.Metrics,
	now func() time.Time,
	opts PublishOptions,
) PublishService {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultGatewayTimeout
	}
	if opts.InFlightLease <= 0 {
		opts.InFlightLease = defaultInFlightLease
	}
	if now == nil {
		now = time.Now
	}
	return &publishServiceImpl{
		postRepo:    postRepo,
		accountRepo: accountRepo,
		publisher:   publisher,
		notifier:    notifier,
		metrics:     m,
		now:         now,
		opts:        opts,
	}
}

func (s *publishServiceImpl) Publish(ctx context.Context, userID, postID uint64) (*model.ScheduledPost, error) {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if err = statusConflict(post.Status, model.PostStatusScheduled); err != nil {
		return nil, err
	}
	if post.Draft.Status != model.DraftStatusApproved {
		return nil, ErrDraftNotApproved
	}

	event, err := s.postRepo.Claim(ctx, post.ID, s.now())
	if err != nil {
		return nil, err
	}
	if event == nil {
		s.metrics.IncPublish("conflict")
		return nil, ErrPostInFlight
	}
	post.Status = model.PostStatusPublishing
	post.AttemptCount++
	s.notify(ctx, post, event)

	externalID, err := s.send(ctx, post)
	if err != nil {
		return nil, s.fail(ctx, post, err)
	}

	event, err = s.postRepo.MarkPosted(ctx, post, externalID, s.now())
	if err != nil {
		// the post is live on X, only our bookkeeping is behind
		log.ErrorContext(ctx, "record posted state failed", "post_id", post.ID, "external_id", externalID, "err", err)
		return nil, err
	}
	post.Status = model.PostStatusPosted
	s.notify(ctx, post, event)
	s.metrics.IncPublish("posted")
	log.InfoContext(ctx, "post published", "post_id", post.ID, "user_id", post.UserID, "external_id", externalID)

	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *publishServiceImpl) send(ctx context.Context, post *model.ScheduledPost) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	token, err := s.accessToken(ctx, &post.SocialAccount)
	if err != nil {
		return "", err
	}
	return s.publisher.Publish(ctx, token, post.Draft.Text)
}

// accessToken returns a usable token, refreshing and persisting it when it expired
func (s *publishServiceImpl) accessToken(ctx context.Context, account *model.SocialAccount) (string, error) {
	if !account.TokenExpired(s.now()) {
		return account.AccessToken, nil
	}
	if account.RefreshToken == nil || *account.RefreshToken == "" {
		return "", fmt.Errorf("access token expired: %w", x.ErrUnauthorized)
	}

	token, err := s.publisher.RefreshToken(ctx, *account.RefreshToken)
	if err != nil {
		return "", err
	}

	var refresh *string
	if token.RefreshToken != "" {
		refresh = &token.RefreshToken
	}
	var expiresAt *time.Time
	if !token.Expiry.IsZero() {
		e := token.Expiry.UTC()
		expiresAt = &e
	}
	if err = s.accountRepo.UpdateTokens(ctx, account.ID, token.AccessToken, refresh, expiresAt); err != nil {
		return "", err
	}
	account.AccessToken = token.AccessToken
	account.ExpiresAt = expiresAt
	log.InfoContext(ctx, "posting token refreshed", "account_id", account.ID)
	return token.AccessToken, nil
}

// fail records the gateway failure and returns the error handed to the caller
func (s *publishServiceImpl) fail(ctx context.Context, post *model.ScheduledPost, cause error) error {
	data := model.JSONMap{
		"kind":   failureKind(cause),
		"status": x.StatusCode(cause),
	}
	event, err := s.postRepo.MarkFailed(ctx, post.ID, cause.Error(), data, s.now())
	if err != nil {
		log.ErrorContext(ctx, "record failed state failed", "post_id", post.ID, "err", err)
	} else {
		post.Status = model.PostStatusFailed
		s.notify(ctx, post, event)
	}
	s.metrics.IncPublish("failed")
	log.WarnContext(ctx, "publish failed", "post_id", post.ID, "user_id", post.UserID, "err", cause)
	return fmt.Errorf("%w: %w", ErrPublishFailed, cause)
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, x.ErrRateLimited):
		return "RATE_LIMITED"
	case errors.Is(err, x.ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	default:
		return "UPSTREAM"
	}
}

func (s *publishServiceImpl) Cancel(ctx context.Context, userID, postID uint64, reason string) error {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return err
	}
	if err = statusConflict(post.Status, model.PostStatusScheduled); err != nil {
		return err
	}
	if reason == "" {
		reason = defaultCancelReason
	}

	event, err := s.postRepo.Cancel(ctx, post.ID, reason, s.now())
	if err != nil {
		return err
	}
	if event == nil {
		return ErrPostNotScheduled
	}
	post.Status = model.PostStatusCanceled
	s.notify(ctx, post, event)
	return nil
}

func (s *publishServiceImpl) Retry(ctx context.Context, userID, postID uint64) error {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return err
	}
	if post.Status != model.PostStatusFailed {
		return ErrPostNotFailed
	}

	event, err := s.postRepo.Retry(ctx, post.ID, s.now())
	if err != nil {
		return err
	}
	if event == nil {
		return ErrPostNotFailed
	}
	post.Status = model.PostStatusScheduled
	s.notify(ctx, post, event)
	return nil
}

func (s *publishServiceImpl) PublishDue(ctx context.Context, now time.Time, limit int) (*DueSummary, error) {
	summary := &DueSummary{}

	stale, err := s.postRepo.FindStalePublishing(ctx, now.Add(-s.opts.InFlightLease), limit)
	if err != nil {
		return summary, err
	}
	for _, post := range stale {
		event, err := s.postRepo.MarkFailed(ctx, post.ID, staleFailureMessage, model.JSONMap{"kind": "STALE"}, now)
		if err != nil {
			if !errors.Is(err, repository.ErrStateChanged) {
				log.ErrorContext(ctx, "expire stale claim failed", "post_id", post.ID, "err", err)
			}
			continue
		}
		post.Status = model.PostStatusFailed
		s.notify(ctx, post, event)
		s.metrics.IncPublish("expired")
		summary.Expired++
	}

	due, err := s.postRepo.FindDue(ctx, now, limit)
	if err != nil {
		return summary, err
	}
	for _, post := range due {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		_, err := s.Publish(ctx, 0, post.ID)
		switch {
		case err == nil:
			summary.Published++
		case KindOf(err) == KindConflict || KindOf(err) == KindNotFound:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}
	return summary, nil
}

func (s *publishServiceImpl) owned(ctx context.Context, userID, postID uint64) (*model.ScheduledPost, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || (userID != 0 && post.UserID != userID) {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *publishServiceImpl) notify(ctx context.Context, post *model.ScheduledPost, event *model.PostEvent) {
	if s.notifier == nil || event == nil {
		return
	}
	s.notifier.Notify(ctx, post, event)
}

// statusConflict maps a status other than want to its CONFLICT error
func statusConflict(status, want model.PostStatus) error {
	if status == want {
		return nil
	}
	switch status {
	case model.PostStatusCanceled:
		return ErrPostAlreadyCanceled
	case model.PostStatusPosted:
		return ErrPostAlreadyPosted
	case model.PostStatusPublishing:
		return ErrPostInFlight
	default:
		return ErrPostNotScheduled
	}
}
