package dbtest

import (
	"Postpilot/internal/model"
	"Postpilot/internal/pkg/consts"
	"testing"
	"time"

	"gorm.io/gorm"
)

// UserFixture shape of a seeded pipeline user. Zero values give a fully eligible user.
type UserFixture struct {
	Name             string
	PostsPerDay      int
	PreferredTimes   []string
	TimeZone         string
	Inactive         bool
	NoSchedule       bool
	NoVoice          bool
	NoAccount        bool
	Communities      []string
	DisabledSources  bool
	AccountExpiresAt *time.Time
	RefreshToken     *string
}

// SeedUser inserts a user with its policy, voice profile, sources and posting account
func SeedUser(t testing.TB, db *gorm.DB, f UserFixture) *model.User {
	t.Helper()

	if f.Name == "" {
		f.Name = "user"
	}
	if f.PostsPerDay == 0 {
		f.PostsPerDay = 2
	}
	if f.TimeZone == "" {
		f.TimeZone = "UTC"
	}
	if f.Communities == nil {
		f.Communities = []string{"golang"}
	}

	user := &model.User{Name: f.Name}
	must(t, db.Create(user).Error)

	if !f.NoSchedule {
		must(t, db.Create(&model.SchedulePolicy{
			UserID:         user.ID,
			TimeZone:       f.TimeZone,
			PostsPerDay:    f.PostsPerDay,
			PreferredTimes: f.PreferredTimes,
			IsActive:       !f.Inactive,
		}).Error)
	}

	if !f.NoVoice {
		must(t, db.Create(&model.VoiceProfile{
			UserID: user.ID,
			Rules:  model.VoiceSummary{Version: 1, Tone: "direct"},
		}).Error)
	}

	for i, name := range f.Communities {
		sub := &model.Subreddit{}
		must(t, db.Where(model.Subreddit{Name: name}).FirstOrCreate(sub).Error)
		must(t, db.Create(&model.UserSource{
			UserID:      user.ID,
			SubredditID: sub.ID,
			IsEnabled:   !f.DisabledSources,
			Priority:    len(f.Communities) - i,
		}).Error)
	}

	if !f.NoAccount {
		must(t, db.Create(&model.SocialAccount{
			UserID:            user.ID,
			Provider:          consts.ProviderX,
			ProviderAccountID: "x-" + f.Name,
			AccessToken:       "token-" + f.Name,
			RefreshToken:      f.RefreshToken,
			ExpiresAt:         f.AccountExpiresAt,
		}).Error)
	}

	return user
}

// SeedPost inserts a draft and a scheduled post of user on its first account
func SeedPost(t testing.TB, db *gorm.DB, userID uint64, status model.PostStatus, scheduledFor time.Time) *model.ScheduledPost {
	t.Helper()

	account := &model.SocialAccount{}
	must(t, db.Where("user_id = ?", userID).Order("id ASC").First(account).Error)

	draft := &model.Draft{UserID: userID, Text: "seeded draft", Status: model.DraftStatusApproved}
	must(t, db.Create(draft).Error)

	post := &model.ScheduledPost{
		UserID:          userID,
		SocialAccountID: account.ID,
		DraftID:         draft.ID,
		Status:          status,
		ScheduledFor:    scheduledFor.UTC(),
	}
	must(t, db.Create(post).Error)
	return post
}

func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}
