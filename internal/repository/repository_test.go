package repository

import (
	"Postpilot/internal/model"
	"Postpilot/internal/pkg/consts"
	"Postpilot/internal/pkg/database/dbtest"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func TestFindEligibleUsers(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	ok := dbtest.SeedUser(t, db, dbtest.UserFixture{Name: "ok", Communities: []string{"golang", "rust"}})
	dbtest.SeedUser(t, db, dbtest.UserFixture{Name: "inactive", Inactive: true})
	dbtest.SeedUser(t, db, dbtest.UserFixture{Name: "nopolicy", NoSchedule: true})
	dbtest.SeedUser(t, db, dbtest.UserFixture{Name: "novoice", NoVoice: true})
	dbtest.SeedUser(t, db, dbtest.UserFixture{Name: "noaccount", NoAccount: true})
	dbtest.SeedUser(t, db, dbtest.UserFixture{Name: "disabled", DisabledSources: true})

	users, err := NewUserRepo(db).FindEligibleUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)

	u := users[0]
	assert.Equal(t, ok.ID, u.ID)
	require.NotNil(t, u.Schedule)
	require.NotNil(t, u.VoiceProfile)
	require.Len(t, u.Sources, 2)
	assert.Equal(t, "golang", u.Sources[0].Subreddit.Name)
	require.Len(t, u.Accounts, 1)
	assert.Equal(t, consts.ProviderX, u.Accounts[0].Provider)
}

func TestGetUserWithPipelineMissing(t *testing.T) {
	db := dbtest.New(t)
	user, err := NewUserRepo(db).GetUserWithPipeline(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestCountForQuota(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})

	dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, day.Add(9*time.Hour))
	dbtest.SeedPost(t, db, user.ID, model.PostStatusPosted, day.Add(15*time.Hour))
	dbtest.SeedPost(t, db, user.ID, model.PostStatusCanceled, day.Add(16*time.Hour))
	dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, day.Add(33*time.Hour))

	repo := NewScheduledPostRepo(db)
	count, err := repo.CountForQuota(ctx, user.ID, day, day.Add(24*time.Hour), model.QuotaStatuses)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// made today for tomorrow morning
	rolled := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, day.Add(33*time.Hour))
	require.NoError(t, db.Model(rolled).Update("created_at", day.Add(16*time.Hour)).Error)

	count, err = repo.CountForQuota(ctx, user.ID, day, day.Add(24*time.Hour), model.QuotaStatuses)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestClaimIsSingleWinner(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	repo := NewScheduledPostRepo(db)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	post := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, day)

	var wg sync.WaitGroup
	results := make([]*model.PostEvent, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := repo.Claim(ctx, post.ID, day)
			assert.NoError(t, err)
			results[i] = e
		}(i)
	}
	wg.Wait()

	won := 0
	for _, e := range results {
		if e != nil {
			won++
			assert.Equal(t, model.PostEventAttempt, e.Type)
		}
	}
	assert.Equal(t, 1, won)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusPublishing, got.Status)
	assert.Equal(t, 1, got.AttemptCount)
	require.NotNil(t, got.LockedAt)
}

func TestMarkPostedUpdatesDraftAndUsage(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	repo := NewScheduledPostRepo(db)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	post := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, day)

	_, err := repo.Claim(ctx, post.ID, day)
	require.NoError(t, err)
	event, err := repo.MarkPosted(ctx, post, "tw-1", day.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, model.PostEventSuccess, event.Type)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusPosted, got.Status)
	require.NotNil(t, got.ExternalPostID)
	assert.Equal(t, "tw-1", *got.ExternalPostID)
	assert.Nil(t, got.LockedAt)
	assert.Equal(t, model.DraftStatusPosted, got.Draft.Status)

	usage, err := NewUsageRepo(db).GetOrCreate(ctx, user.ID, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.PostsPosted)
	assert.Equal(t, consts.DefaultPostsAllotted, usage.PostsAllotted)

	_, err = repo.MarkPosted(ctx, post, "tw-2", day)
	assert.ErrorIs(t, err, ErrStateChanged)
}

func TestMarkFailedRequiresClaim(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	repo := NewScheduledPostRepo(db)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	post := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, day)

	_, err := repo.MarkFailed(ctx, post.ID, "boom", nil, day)
	assert.ErrorIs(t, err, ErrStateChanged)

	_, err = repo.Claim(ctx, post.ID, day)
	require.NoError(t, err)
	event, err := repo.MarkFailed(ctx, post.ID, "boom", model.JSONMap{"status": 503}, day)
	require.NoError(t, err)
	assert.Equal(t, model.PostEventFailure, event.Type)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "boom", *got.Error)
}

func TestCancelAndRetryAreConditional(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	repo := NewScheduledPostRepo(db)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	scheduled := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, day)
	failed := dbtest.SeedPost(t, db, user.ID, model.PostStatusFailed, day)

	event, err := repo.Cancel(ctx, scheduled.ID, "not needed", day)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "not needed", event.Message)

	event, err = repo.Cancel(ctx, scheduled.ID, "again", day)
	require.NoError(t, err)
	assert.Nil(t, event)

	event, err = repo.Retry(ctx, failed.ID, day.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, event)

	got, err := repo.GetByID(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusScheduled, got.Status)
	assert.True(t, got.ScheduledFor.Equal(day.Add(time.Hour)))

	event, err = repo.Retry(ctx, scheduled.ID, day)
	require.NoError(t, err)
	assert.Nil(t, event)

	events, err := repo.ListEvents(ctx, scheduled.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.PostEventCancel, events[0].Type)
}

func TestFindDueAndStale(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	repo := NewScheduledPostRepo(db)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})

	due := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, day.Add(time.Hour))
	dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, day.Add(5*time.Hour))
	claimed := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, day)
	_, err := repo.Claim(ctx, claimed.ID, day)
	require.NoError(t, err)

	now := day.Add(2 * time.Hour)
	posts, err := repo.FindDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, due.ID, posts[0].ID)

	stale, err := repo.FindStalePublishing(ctx, now.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, claimed.ID, stale[0].ID)

	stale, err = repo.FindStalePublishing(ctx, day.Add(-time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestListPostsFilters(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	repo := NewScheduledPostRepo(db)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	other := dbtest.SeedUser(t, db, dbtest.UserFixture{Name: "other"})

	dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, day.Add(9*time.Hour))
	dbtest.SeedPost(t, db, user.ID, model.PostStatusPosted, day.Add(10*time.Hour))
	dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, day.Add(34*time.Hour))
	dbtest.SeedPost(t, db, other.ID, model.PostStatusScheduled, day.Add(9*time.Hour))

	status := model.PostStatusScheduled
	to := day.Add(24 * time.Hour)
	posts, total, err := repo.List(ctx, user.ID, PostFilter{Status: &status, To: &to, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, posts, 1)
	assert.Equal(t, "seeded draft", posts[0].Draft.Text)

	posts, total, err = repo.List(ctx, user.ID, PostFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, posts, 2)
}

func TestMaterializeItem(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	repo := NewMaterializerRepo(db)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})

	source := &model.ContentItem{ID: "a1", Title: "Build times", Community: "golang", Score: 10, CommentCount: 2, Body: "body"}
	item := &MaterializeItem{
		UserID:       user.ID,
		AccountID:    1,
		Text:         "hello",
		DraftStatus:  model.DraftStatusApproved,
		Meta:         model.JSONMap{"generatedBy": consts.GeneratedByCron},
		Source:       source,
		ScheduledFor: day.Add(9 * time.Hour),
		Now:          day,
	}
	post, err := repo.MaterializeItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusScheduled, post.Status)
	assert.Equal(t, model.DraftStatusApproved, post.Draft.Status)
	require.NotNil(t, post.Draft.SourceItemID)

	source.Score = 99
	_, err = repo.MaterializeItem(ctx, item)
	require.NoError(t, err)

	var items []model.SourceItem
	require.NoError(t, db.Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, 99, items[0].Score)
	require.NotNil(t, items[0].SubredditID)

	usage, err := NewUsageRepo(db).GetOrCreate(ctx, user.ID, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, usage.PostsScheduled)
}

func TestDraftUpdateStatusLocked(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	repo := NewDraftRepo(db)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	post := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, day)

	changed, err := repo.UpdateStatus(ctx, post.DraftID, model.DraftStatusRejected, []model.DraftStatus{model.DraftStatusPosted})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.UpdateStatus(ctx, post.DraftID, model.DraftStatusApproved, []model.DraftStatus{model.DraftStatusRejected})
	require.NoError(t, err)
	assert.False(t, changed)

	drafts, total, err := repo.List(ctx, user.ID, nil, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, model.DraftStatusRejected, drafts[0].Status)
}

func TestAccountUpdateTokens(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})

	var account model.SocialAccount
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&account).Error)

	refresh := "rt-2"
	expires := day.Add(2 * time.Hour)
	require.NoError(t, NewAccountRepo(db).UpdateTokens(ctx, account.ID, "at-2", &refresh, &expires))

	require.NoError(t, db.First(&account, account.ID).Error)
	assert.Equal(t, "at-2", account.AccessToken)
	require.NotNil(t, account.RefreshToken)
	assert.Equal(t, "rt-2", *account.RefreshToken)
	assert.True(t, account.ExpiresAt.Equal(expires))
}

func TestDraftRejectCancelsScheduledPosts(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	repo := NewDraftRepo(db)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	post := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, day)

	changed, events, err := repo.Reject(ctx, post.DraftID, []model.DraftStatus{model.DraftStatusPosted}, "", day)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, events, 1)
	assert.Equal(t, model.PostEventCancel, events[0].Type)
	assert.Equal(t, post.ID, events[0].ScheduledPostID)

	draft, err := repo.GetByID(ctx, post.DraftID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusRejected, draft.Status)

	got, err := NewScheduledPostRepo(db).GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusCanceled, got.Status)

	var cancels int64
	require.NoError(t, db.Model(&model.PostEvent{}).
		Where("scheduled_post_id = ? AND type = ?", post.ID, model.PostEventCancel).
		Count(&cancels).Error)
	assert.EqualValues(t, 1, cancels)
}

func TestDraftRejectRefusesInFlightPost(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	repo := NewDraftRepo(db)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	post := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, day)
	_, err := NewScheduledPostRepo(db).Claim(ctx, post.ID, day)
	require.NoError(t, err)

	changed, events, err := repo.Reject(ctx, post.DraftID, nil, "", day)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, events)

	draft, err := repo.GetByID(ctx, post.DraftID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusApproved, draft.Status)
}

func TestFindDueAndClaimRequireApprovedDraft(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	repo := NewScheduledPostRepo(db)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	pending := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, day)
	require.NoError(t, db.Model(&model.Draft{}).Where("id = ?", pending.DraftID).
		Update("status", model.DraftStatusDraft).Error)

	posts, err := repo.FindDue(ctx, day.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, posts)

	event, err := repo.Claim(ctx, pending.ID, day.Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, event)

	require.NoError(t, db.Model(&model.Draft{}).Where("id = ?", pending.DraftID).
		Update("status", model.DraftStatusApproved).Error)
	posts, err = repo.FindDue(ctx, day.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, pending.ID, posts[0].ID)
}
