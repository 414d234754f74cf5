package service

import (
	"Postpilot/internal/model"
	"Postpilot/internal/pkg/consts"
	"context"
	log "log/slog"
	"time"
)

const (
	defaultPostsPerSource = 3
	defaultGatewayTimeout = 12 * time.Second
	maxManualCount        = 10
)

// ContentSource supplies community posts to draw inspiration from
type ContentSource interface {
	GetRandomPosts(ctx context.Context, communities []string, perCommunity int) []model.ContentItem
}

// TweetGenerator writes texts in a user's voice. It never fails, an empty slice means nothing usable came back.
type TweetGenerator interface {
	Generate(ctx context.Context, items []model.ContentItem, voice model.VoiceSummary, count int) []model.GeneratedTweet
}

type GenerationService interface {
	// GenerateForCandidate runs fetch, generate and materialize for one eligible user.
	// Returns how many posts were scheduled.
	GenerateForCandidate(ctx context.Context, candidate *Candidate) (int, error)
	// GenerateForUser is the manual path: quota is ignored, drafts wait for review
	GenerateForUser(ctx context.Context, userID uint64, count int) ([]*model.ScheduledPost, error)
}

type GenerationOptions struct {
	PostsPerSource int
	GatewayTimeout time.Duration
}

type generationServiceImpl struct {
	eligibility  EligibilityService
	source       ContentSource
	generator    TweetGenerator
	materializer MaterializerService
	now          func() time.Time
	opts         GenerationOptions
}

func NewGenerationService(
	eligibility EligibilityService,
	source ContentSource,
	generator TweetGenerator,
	materializer MaterializerService,
	now func() time.Time,
	opts GenerationOptions,
) GenerationService {
	if opts.PostsPerSource <= 0 {
		opts.PostsPerSource = defaultPostsPerSource
	}
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = defaultGatewayTimeout
	}
	if now == nil {
		now = time.Now
	}
	return &generationServiceImpl{
		eligibility:  eligibility,
		source:       source,
		generator:    generator,
		materializer: materializer,
		now:          now,
		opts:         opts,
	}
}

func (s *generationServiceImpl) GenerateForCandidate(ctx context.Context, candidate *Candidate) (int, error) {
	if candidate == nil || candidate.Needed <= 0 {
		return 0, nil
	}
	userID := candidate.User.ID

	items := s.fetch(ctx, candidate.Communities)
	if len(items) == 0 {
		log.WarnContext(ctx, "no source content, user skipped", "user_id", userID)
		return 0, nil
	}

	tweets := s.generate(ctx, items, candidate.Voice, candidate.Needed)
	if len(tweets) == 0 {
		log.WarnContext(ctx, "generator returned nothing, user skipped", "user_id", userID)
		return 0, nil
	}

	posts, err := s.materializer.Materialize(ctx, &MaterializeInput{
		UserID:      userID,
		Policy:      candidate.Policy,
		Account:     candidate.Account,
		Tweets:      tweets,
		Items:       items,
		GeneratedBy: consts.GeneratedByCron,
		DraftStatus: model.DraftStatusApproved,
	})
	log.InfoContext(ctx, "posts scheduled", "user_id", userID, "needed", candidate.Needed, "scheduled", len(posts))
	return len(posts), err
}

func (s *generationServiceImpl) GenerateForUser(ctx context.Context, userID uint64, count int) ([]*model.ScheduledPost, error) {
	if count <= 0 {
		count = 1
	}
	if count > maxManualCount {
		return nil, ErrParamInvalid
	}

	candidate, err := s.eligibility.EvaluateUser(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}

	items := s.fetch(ctx, candidate.Communities)
	if len(items) == 0 {
		return nil, ErrNoContent
	}

	tweets := s.generate(ctx, items, candidate.Voice, count)
	if len(tweets) == 0 {
		return nil, ErrGenerationFailed
	}

	return s.materializer.Materialize(ctx, &MaterializeInput{
		UserID:      userID,
		Policy:      candidate.Policy,
		Account:     candidate.Account,
		Tweets:      tweets,
		Items:       items,
		GeneratedBy: consts.GeneratedByManual,
		DraftStatus: model.DraftStatusDraft,
	})
}

func (s *generationServiceImpl) fetch(ctx context.Context, communities []string) []model.ContentItem {
	ctx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()
	return s.source.GetRandomPosts(ctx, communities, s.opts.PostsPerSource)
}

func (s *generationServiceImpl) generate(ctx context.Context, items []model.ContentItem, voice model.VoiceSummary, count int) []model.GeneratedTweet {
	ctx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()
	return s.generator.Generate(ctx, items, voice, count)
}
