package handler

import (
	"Postpilot/internal/api/dto"
	"Postpilot/internal/model"
	"Postpilot/internal/pkg/response"
	"Postpilot/internal/service"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePostService struct {
	posts map[uint64]*dto.ScheduledPostDTO
}

func (f *fakePostService) ListPosts(_ context.Context, _ uint64, query *dto.PostListDTO) (*dto.PageResult[*dto.ScheduledPostDTO], error) {
	items := make([]*dto.ScheduledPostDTO, 0, len(f.posts))
	for _, p := range f.posts {
		if query.Status == "" || string(p.Status) == query.Status {
			items = append(items, p)
		}
	}
	return &dto.PageResult[*dto.ScheduledPostDTO]{Items: items, Total: int64(len(items))}, nil
}

func (f *fakePostService) GetPost(_ context.Context, _ uint64, postID uint64) (*dto.ScheduledPostDTO, error) {
	p, ok := f.posts[postID]
	if !ok {
		return nil, service.ErrPostNotFound
	}
	return p, nil
}

func (f *fakePostService) ListEvents(context.Context, uint64, uint64, *dto.PageDTO) ([]*dto.PostEventDTO, error) {
	return []*dto.PostEventDTO{}, nil
}

type fakePublishService struct {
	cancelErr error
	reason    string
}

func (f *fakePublishService) Publish(_ context.Context, _ uint64, postID uint64) (*model.ScheduledPost, error) {
	return &model.ScheduledPost{ID: postID, Status: model.PostStatusPosted}, nil
}

func (f *fakePublishService) Cancel(_ context.Context, _ uint64, _ uint64, reason string) error {
	f.reason = reason
	return f.cancelErr
}

func (f *fakePublishService) Retry(context.Context, uint64, uint64) error {
	return service.ErrPostNotFailed
}

func (f *fakePublishService) PublishDue(context.Context, time.Time, int) (*service.DueSummary, error) {
	return &service.DueSummary{}, nil
}

type fakeGenerationService struct {
	posts []*model.ScheduledPost
	err   error
	count int
}

func (f *fakeGenerationService) GenerateForCandidate(context.Context, *service.Candidate) (int, error) {
	return 0, nil
}

func (f *fakeGenerationService) GenerateForUser(_ context.Context, _ uint64, count int) ([]*model.ScheduledPost, error) {
	f.count = count
	return f.posts, f.err
}

type fakeGeneratorJob struct {
	running bool
	started int
}

func (f *fakeGeneratorJob) Start(context.Context) error {
	f.started++
	return nil
}

func (f *fakeGeneratorJob) Stop(context.Context) error { return nil }

func (f *fakeGeneratorJob) RunNow(context.Context) (*dto.JobStatusDTO, error) {
	if f.running {
		return nil, service.ErrCycleRunning
	}
	return &dto.JobStatusDTO{TotalJobs: 1}, nil
}

func (f *fakeGeneratorJob) Status(context.Context) (*dto.JobStatusDTO, error) {
	return &dto.JobStatusDTO{Running: f.running, TotalJobs: f.started}, nil
}

func withUser(c *gin.Context) {
	c.Set("user_id", uint64(1))
	c.Next()
}

func do(t *testing.T, r http.Handler, method, path, body string) dto.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func postRouter(posts *fakePostService, publish *fakePublishService) *gin.Engine {
	h := NewPostHandler(posts, publish)
	r := gin.New()
	r.Use(withUser)
	r.GET("/posts", h.ListPosts)
	r.GET("/posts/:post_id", h.GetPost)
	r.POST("/posts/:post_id/cancel", h.CancelPost)
	r.POST("/posts/:post_id/publish", h.PublishPost)
	r.POST("/posts/:post_id/retry", h.RetryPost)
	return r
}

func TestPostHandlerErrorEnvelope(t *testing.T) {
	posts := &fakePostService{posts: map[uint64]*dto.ScheduledPostDTO{
		1: {ID: 1, Status: model.PostStatusScheduled},
	}}
	publish := &fakePublishService{cancelErr: service.ErrPostAlreadyPosted}
	r := postRouter(posts, publish)

	resp := do(t, r, http.MethodGet, "/posts/1", "")
	assert.Equal(t, response.Ok, resp.Code)

	resp = do(t, r, http.MethodGet, "/posts/9", "")
	assert.Equal(t, response.NotFound, resp.Code)
	assert.Equal(t, string(service.KindNotFound), resp.Kind)

	resp = do(t, r, http.MethodGet, "/posts/abc", "")
	assert.Equal(t, response.BadRequest, resp.Code)
	assert.Equal(t, string(service.KindValidation), resp.Kind)

	resp = do(t, r, http.MethodGet, "/posts?status=SCHEDULED&limit=5", "")
	require.Equal(t, response.Ok, resp.Code)
	assert.EqualValues(t, 1, resp.Data.(map[string]any)["total"])

	resp = do(t, r, http.MethodGet, "/posts?from=yesterday", "")
	assert.Equal(t, response.BadRequest, resp.Code)

	resp = do(t, r, http.MethodPost, "/posts/1/cancel", `{"reason":"changed my mind"}`)
	assert.Equal(t, service.Conflict, resp.Code)
	assert.Equal(t, string(service.KindConflict), resp.Kind)
	assert.Equal(t, "changed my mind", publish.reason)

	resp = do(t, r, http.MethodPost, "/posts/1/cancel", `{"reason":`)
	assert.Equal(t, response.BadRequest, resp.Code)

	resp = do(t, r, http.MethodPost, "/posts/1/retry", "")
	assert.Equal(t, service.Conflict, resp.Code)
}

func TestPostHandlerCancelWithoutBody(t *testing.T) {
	publish := &fakePublishService{}
	r := postRouter(&fakePostService{}, publish)

	resp := do(t, r, http.MethodPost, "/posts/1/cancel", "")
	assert.Equal(t, response.Ok, resp.Code)
	assert.Empty(t, publish.reason)
}

func TestPostHandlerPublish(t *testing.T) {
	r := postRouter(&fakePostService{}, &fakePublishService{})

	resp := do(t, r, http.MethodPost, "/posts/5/publish", "")
	require.Equal(t, response.Ok, resp.Code)
	data := resp.Data.(map[string]any)
	assert.EqualValues(t, 5, data["id"])
	assert.Equal(t, string(model.PostStatusPosted), data["status"])
}

func TestGenerationHandler(t *testing.T) {
	gen := &fakeGenerationService{posts: []*model.ScheduledPost{{ID: 1}, {ID: 2}}}
	r := gin.New()
	r.Use(withUser)
	r.POST("/tweets/generate", NewGenerationHandler(gen).Generate)

	resp := do(t, r, http.MethodPost, "/tweets/generate", `{"count":2}`)
	require.Equal(t, response.Ok, resp.Code)
	assert.Equal(t, 2, gen.count)
	assert.EqualValues(t, 2, resp.Data.(map[string]any)["tweets_generated"])

	resp = do(t, r, http.MethodPost, "/tweets/generate", `{"count":11}`)
	assert.Equal(t, response.BadRequest, resp.Code)

	// partial failure still returns what was saved
	gen.posts = []*model.ScheduledPost{{ID: 3}}
	gen.err = fmt.Errorf("%w: 1 of 2", service.ErrMaterializeFailed)
	resp = do(t, r, http.MethodPost, "/tweets/generate", "")
	require.Equal(t, response.Ok, resp.Code)
	assert.EqualValues(t, 1, resp.Data.(map[string]any)["tweets_generated"])

	gen.posts = nil
	gen.err = service.ErrNoContent
	resp = do(t, r, http.MethodPost, "/tweets/generate", "")
	assert.Equal(t, service.BadGateway, resp.Code)
	assert.Equal(t, string(service.KindUpstreamUnavailable), resp.Kind)
}

func TestJobHandlerControl(t *testing.T) {
	gen := &fakeGeneratorJob{}
	h := NewJobHandler(gen)
	r := gin.New()
	r.GET("/cron/generator", h.Status)
	r.POST("/cron/generator", h.Control)

	resp := do(t, r, http.MethodPost, "/cron/generator", `{"action":"start"}`)
	require.Equal(t, response.Ok, resp.Code)
	assert.Equal(t, 1, gen.started)

	resp = do(t, r, http.MethodPost, "/cron/generator", `{"action":"pause"}`)
	assert.Equal(t, response.BadRequest, resp.Code)

	resp = do(t, r, http.MethodPost, "/cron/generator", `{}`)
	assert.Equal(t, response.BadRequest, resp.Code)

	gen.running = true
	resp = do(t, r, http.MethodPost, "/cron/generator", `{"action":"run"}`)
	assert.Equal(t, service.Conflict, resp.Code)

	resp = do(t, r, http.MethodGet, "/cron/generator", "")
	require.Equal(t, response.Ok, resp.Code)
	assert.Equal(t, true, resp.Data.(map[string]any)["running"])
}
