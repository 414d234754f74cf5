package service

import (
	"Postpilot/internal/model"
	"Postpilot/internal/pkg/database/dbtest"
	"Postpilot/internal/pkg/x"
	"Postpilot/internal/repository"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

type fakePublisher struct {
	calls     atomic.Int32
	refreshes atomic.Int32
	err       error
	delay     time.Duration
	lastToken atomic.Value
}

func (f *fakePublisher) Publish(_ context.Context, accessToken, _ string) (string, error) {
	n := f.calls.Add(1)
	f.lastToken.Store(accessToken)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("tweet-%d", n), nil
}

func (f *fakePublisher) RefreshToken(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	f.refreshes.Add(1)
	return &oauth2.Token{
		AccessToken:  "fresh-" + refreshToken,
		RefreshToken: "rotated",
		Expiry:       morning.Add(2 * time.Hour),
	}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.PostEventType
}

func (r *recordingNotifier) Notify(_ context.Context, _ *model.ScheduledPost, event *model.PostEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event.Type)
}

func (r *recordingNotifier) types() []model.PostEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.PostEventType(nil), r.events...)
}

func newPublish(db *gorm.DB, pub XPublisher, notifier EventNotifier) PublishService {
	return NewPublishService(
		repository.NewScheduledPostRepo(db),
		repository.NewAccountRepo(db),
		pub,
		notifier,
		nil,
		fixedClock(morning),
		PublishOptions{Timeout: time.Second, InFlightLease: 10 * time.Minute},
	)
}

func reload(t *testing.T, db *gorm.DB, id uint64) *model.ScheduledPost {
	t.Helper()
	post := &model.ScheduledPost{}
	require.NoError(t, db.Preload("Draft").First(post, id).Error)
	return post
}

func TestPublishSuccess(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	seeded := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, morning)
	pub := &fakePublisher{}
	notifier := &recordingNotifier{}

	post, err := newPublish(db, pub, notifier).Publish(context.Background(), user.ID, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusPosted, post.Status)
	require.NotNil(t, post.ExternalPostID)
	assert.Equal(t, "tweet-1", *post.ExternalPostID)
	assert.Nil(t, post.LockedAt)
	assert.Equal(t, 1, post.AttemptCount)
	assert.Equal(t, model.DraftStatusPosted, post.Draft.Status)
	assert.Equal(t, "token-user", pub.lastToken.Load())
	assert.Equal(t, []model.PostEventType{model.PostEventAttempt, model.PostEventSuccess}, notifier.types())
}

func TestPublishIsSingleClaim(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	seeded := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, morning)
	pub := &fakePublisher{delay: 20 * time.Millisecond}
	svc := newPublish(db, pub, nil)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Publish(context.Background(), 0, seeded.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, KindConflict, KindOf(err))
	}
	assert.Equal(t, 1, succeeded)
	assert.EqualValues(t, 1, pub.calls.Load())

	var attempts int64
	require.NoError(t, db.Model(&model.PostEvent{}).
		Where("scheduled_post_id = ? AND type = ?", seeded.ID, model.PostEventAttempt).
		Count(&attempts).Error)
	assert.EqualValues(t, 1, attempts)
}

func TestPublishFailureRecordsKind(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	seeded := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, morning)
	pub := &fakePublisher{err: fmt.Errorf("slow down: %w", x.ErrRateLimited)}

	_, err := newPublish(db, pub, nil).Publish(context.Background(), user.ID, seeded.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPublishFailed)
	assert.ErrorIs(t, err, x.ErrRateLimited)
	assert.Equal(t, KindUpstreamUnavailable, KindOf(err))

	post := reload(t, db, seeded.ID)
	assert.Equal(t, model.PostStatusFailed, post.Status)
	require.NotNil(t, post.Error)
	assert.Contains(t, *post.Error, "slow down")

	event := &model.PostEvent{}
	require.NoError(t, db.Where("scheduled_post_id = ? AND type = ?", seeded.ID, model.PostEventFailure).First(event).Error)
	assert.Equal(t, "RATE_LIMITED", event.Data["kind"])
}

func TestPublishGuards(t *testing.T) {
	db := dbtest.New(t)
	owner := dbtest.SeedUser(t, db, dbtest.UserFixture{Name: "owner"})
	other := dbtest.SeedUser(t, db, dbtest.UserFixture{Name: "other"})
	posted := dbtest.SeedPost(t, db, owner.ID, model.PostStatusPosted, morning)
	canceled := dbtest.SeedPost(t, db, owner.ID, model.PostStatusCanceled, morning)
	scheduled := dbtest.SeedPost(t, db, owner.ID, model.PostStatusScheduled, morning)
	pub := &fakePublisher{}
	svc := newPublish(db, pub, nil)
	ctx := context.Background()

	_, err := svc.Publish(ctx, owner.ID, posted.ID)
	assert.ErrorIs(t, err, ErrPostAlreadyPosted)
	_, err = svc.Publish(ctx, owner.ID, canceled.ID)
	assert.ErrorIs(t, err, ErrPostAlreadyCanceled)
	_, err = svc.Publish(ctx, other.ID, scheduled.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
	_, err = svc.Publish(ctx, owner.ID, 9999)
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.Zero(t, pub.calls.Load())
}

func TestPublishRefreshesExpiredToken(t *testing.T) {
	db := dbtest.New(t)
	expired := morning.Add(-time.Minute)
	refresh := "refresh-1"
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{AccountExpiresAt: &expired, RefreshToken: &refresh})
	seeded := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, morning)
	pub := &fakePublisher{}

	_, err := newPublish(db, pub, nil).Publish(context.Background(), user.ID, seeded.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pub.refreshes.Load())
	assert.Equal(t, "fresh-refresh-1", pub.lastToken.Load())

	account := &model.SocialAccount{}
	require.NoError(t, db.First(account, seeded.SocialAccountID).Error)
	assert.Equal(t, "fresh-refresh-1", account.AccessToken)
	require.NotNil(t, account.RefreshToken)
	assert.Equal(t, "rotated", *account.RefreshToken)
}

func TestPublishExpiredTokenWithoutRefresh(t *testing.T) {
	db := dbtest.New(t)
	expired := morning.Add(-time.Minute)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{AccountExpiresAt: &expired})
	seeded := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, morning)
	pub := &fakePublisher{}

	_, err := newPublish(db, pub, nil).Publish(context.Background(), user.ID, seeded.ID)
	assert.ErrorIs(t, err, x.ErrUnauthorized)
	assert.Zero(t, pub.calls.Load())
	assert.Equal(t, model.PostStatusFailed, reload(t, db, seeded.ID).Status)
}

func TestCancel(t *testing.T) {
	db := dbtest.New(t)
	owner := dbtest.SeedUser(t, db, dbtest.UserFixture{Name: "owner"})
	other := dbtest.SeedUser(t, db, dbtest.UserFixture{Name: "other"})
	scheduled := dbtest.SeedPost(t, db, owner.ID, model.PostStatusScheduled, morning.Add(time.Hour))
	posted := dbtest.SeedPost(t, db, owner.ID, model.PostStatusPosted, morning)
	inFlight := dbtest.SeedPost(t, db, owner.ID, model.PostStatusPublishing, morning)
	notifier := &recordingNotifier{}
	svc := newPublish(db, &fakePublisher{}, notifier)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Cancel(ctx, other.ID, scheduled.ID, ""), ErrPostNotFound)

	require.NoError(t, svc.Cancel(ctx, owner.ID, scheduled.ID, ""))
	assert.Equal(t, model.PostStatusCanceled, reload(t, db, scheduled.ID).Status)
	event := &model.PostEvent{}
	require.NoError(t, db.Where("scheduled_post_id = ?", scheduled.ID).First(event).Error)
	assert.Equal(t, model.PostEventCancel, event.Type)
	assert.Equal(t, "Post canceled by user", event.Message)

	err := svc.Cancel(ctx, owner.ID, scheduled.ID, "again")
	assert.ErrorIs(t, err, ErrPostAlreadyCanceled)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.ErrorIs(t, svc.Cancel(ctx, owner.ID, posted.ID, ""), ErrPostAlreadyPosted)
	assert.ErrorIs(t, svc.Cancel(ctx, owner.ID, inFlight.ID, ""), ErrPostInFlight)

	var events int64
	require.NoError(t, db.Model(&model.PostEvent{}).Count(&events).Error)
	assert.EqualValues(t, 1, events)
	assert.Equal(t, []model.PostEventType{model.PostEventCancel}, notifier.types())
}

func TestRetry(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	failed := dbtest.SeedPost(t, db, user.ID, model.PostStatusFailed, morning.Add(-time.Hour))
	scheduled := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, morning)
	svc := newPublish(db, &fakePublisher{}, nil)
	ctx := context.Background()

	require.NoError(t, svc.Retry(ctx, user.ID, failed.ID))
	post := reload(t, db, failed.ID)
	assert.Equal(t, model.PostStatusScheduled, post.Status)
	assert.Equal(t, morning, post.ScheduledFor.UTC())

	assert.ErrorIs(t, svc.Retry(ctx, user.ID, scheduled.ID), ErrPostNotFailed)
}

func TestPublishDue(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	due := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, morning.Add(-time.Minute))
	future := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, morning.Add(time.Hour))
	stale := dbtest.SeedPost(t, db, user.ID, model.PostStatusPublishing, morning.Add(-time.Hour))
	lockedAt := morning.Add(-30 * time.Minute)
	require.NoError(t, db.Model(&model.ScheduledPost{}).Where("id = ?", stale.ID).Update("locked_at", lockedAt).Error)
	pub := &fakePublisher{}

	summary, err := newPublish(db, pub, nil).PublishDue(context.Background(), morning, 10)
	require.NoError(t, err)
	assert.Equal(t, &DueSummary{Published: 1, Expired: 1}, summary)
	assert.EqualValues(t, 1, pub.calls.Load())

	assert.Equal(t, model.PostStatusPosted, reload(t, db, due.ID).Status)
	assert.Equal(t, model.PostStatusScheduled, reload(t, db, future.ID).Status)
	expired := reload(t, db, stale.ID)
	assert.Equal(t, model.PostStatusFailed, expired.Status)
	require.NotNil(t, expired.Error)
	assert.Equal(t, "publish outcome unknown", *expired.Error)
}

func TestPublishDueIsolatesFailures(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, morning.Add(-2*time.Minute))
	dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, morning.Add(-time.Minute))
	pub := &fakePublisher{err: fmt.Errorf("boom: %w", x.ErrUpstream)}

	summary, err := newPublish(db, pub, nil).PublishDue(context.Background(), morning, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)
	assert.EqualValues(t, 2, pub.calls.Load())
}

func TestPublishRequiresApprovedDraft(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	seeded := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, morning)
	require.NoError(t, db.Model(&model.Draft{}).Where("id = ?", seeded.DraftID).
		Update("status", model.DraftStatusDraft).Error)
	pub := &fakePublisher{}

	_, err := newPublish(db, pub, nil).Publish(context.Background(), user.ID, seeded.ID)
	assert.ErrorIs(t, err, ErrDraftNotApproved)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Zero(t, pub.calls.Load())
	assert.Equal(t, model.PostStatusScheduled, reload(t, db, seeded.ID).Status)
}

func TestRejectedDraftIsNeverPublished(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, db, dbtest.UserFixture{})
	seeded := dbtest.SeedPost(t, db, user.ID, model.PostStatusScheduled, morning.Add(-time.Minute))
	pub := &fakePublisher{}

	require.NoError(t, NewDraftService(repository.NewDraftRepo(db)).Reject(ctx, user.ID, seeded.DraftID))

	summary, err := newPublish(db, pub, nil).PublishDue(ctx, morning, 10)
	require.NoError(t, err)
	assert.Equal(t, &DueSummary{}, summary)
	assert.Zero(t, pub.calls.Load())

	post := reload(t, db, seeded.ID)
	assert.Equal(t, model.PostStatusCanceled, post.Status)
	assert.Equal(t, model.DraftStatusRejected, post.Draft.Status)
}
