package service

import (
	"Postpilot/internal/model"
	"Postpilot/internal/pkg/util"
	"Postpilot/internal/repository"
	"context"
	log "log/slog"
	"time"
)

// Candidate an eligible user and how many posts it still needs today
type Candidate struct {
	User         *model.User
	Policy       *model.SchedulePolicy
	Voice        model.VoiceSummary
	Communities  []string
	Account      *model.SocialAccount
	CurrentCount int
	Needed       int
}

type EligibilityService interface {
	// Evaluate lists the users that still need posts today. Users at quota are left out.
	Evaluate(ctx context.Context, now time.Time) ([]*Candidate, error)
	// EvaluateUser checks one user's preconditions and reports the first one missing
	EvaluateUser(ctx context.Context, userID uint64, now time.Time) (*Candidate, error)
}

type eligibilityServiceImpl struct {
	userRepo repository.UserRepo
	postRepo repository.ScheduledPostRepo
}

func NewEligibilityService(userRepo repository.UserRepo, postRepo repository.ScheduledPostRepo) EligibilityService {
	return &eligibilityServiceImpl{
		userRepo: userRepo,
		postRepo: postRepo,
	}
}

// NeededFor remaining posts of the day, never negative
func NeededFor(policy *model.SchedulePolicy, currentCount int) int {
	if policy == nil {
		return 0
	}
	return max(0, policy.PostsPerDay-currentCount)
}

func (s *eligibilityServiceImpl) Evaluate(ctx context.Context, now time.Time) ([]*Candidate, error) {
	users, err := s.userRepo.FindEligibleUsers(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]*Candidate, 0, len(users))
	for _, user := range users {
		candidate, err := s.candidate(ctx, user, now)
		if err != nil {
			return nil, err
		}
		if candidate.Needed == 0 {
			log.DebugContext(ctx, "daily quota reached, user skipped", "user_id", user.ID, "count", candidate.CurrentCount)
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

func (s *eligibilityServiceImpl) EvaluateUser(ctx context.Context, userID uint64, now time.Time) (*Candidate, error) {
	user, err := s.userRepo.GetUserWithPipeline(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	switch {
	case user.Schedule == nil || !user.Schedule.IsActive:
		return nil, ErrScheduleInactive
	case user.VoiceProfile == nil:
		return nil, ErrVoiceProfileMissing
	case len(user.Sources) == 0:
		return nil, ErrNoSources
	case len(user.Accounts) == 0:
		return nil, ErrNoPostingAccount
	}
	return s.candidate(ctx, user, now)
}

func (s *eligibilityServiceImpl) candidate(ctx context.Context, user *model.User, now time.Time) (*Candidate, error) {
	start, end := DayWindow(now, user.Schedule.TimeZone)
	count, err := s.postRepo.CountForQuota(ctx, user.ID, start, end, model.QuotaStatuses)
	if err != nil {
		return nil, err
	}

	if err := util.ValidateDTO(&user.VoiceProfile.Rules); err != nil {
		log.WarnContext(ctx, "voice profile out of range, generating anyway", "user_id", user.ID, "err", err)
	}

	communities := make([]string, 0, len(user.Sources))
	for _, src := range user.Sources {
		if src.Subreddit.Name != "" {
			communities = append(communities, src.Subreddit.Name)
		}
	}

	return &Candidate{
		User:         user,
		Policy:       user.Schedule,
		Voice:        user.VoiceProfile.Rules,
		Communities:  communities,
		Account:      &user.Accounts[0],
		CurrentCount: int(count),
		Needed:       NeededFor(user.Schedule, int(count)),
	}, nil
}
