package reddit

import (
	"Postpilot/internal/api/config"
	"Postpilot/internal/model"
	"Postpilot/internal/pkg/metrics"
	"context"
	"fmt"
	log "log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const (
	SortHot    = "hot"
	SortNew    = "new"
	SortTop    = "top"
	SortRising = "rising"
)

var sorts = []string{SortHot, SortNew, SortTop, SortRising}

// StatusError non-2xx listing response
type StatusError struct {
	Community  string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("reddit r/%s returned status %d", e.Community, e.StatusCode)
}

// Client reads public community listings
type Client struct {
	http           *resty.Client
	executor       failsafe.Executor[*resty.Response]
	breaker        circuitbreaker.CircuitBreaker[*resty.Response]
	maxCommunities int
	metrics        *metrics.Metrics
}

func NewClient(cfg config.RedditConfig, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxCommunities <= 0 {
		cfg.MaxCommunities = 3
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json")

	retry := retrypolicy.NewBuilder[*resty.Response]().
		HandleIf(shouldRetry).
		WithBackoff(200*time.Millisecond, 2*time.Second).
		WithMaxRetries(cfg.MaxRetries).
		ReturnLastFailure().
		Build()

	breaker := circuitbreaker.NewBuilder[*resty.Response]().
		HandleIf(shouldRetry).
		WithFailureThresholdRatio(5, 10).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			log.Warn("reddit circuit breaker state change", "from", e.OldState, "to", e.NewState)
		}).
		Build()

	return &Client{
		http:           httpClient,
		executor:       failsafe.With[*resty.Response](retry, breaker),
		breaker:        breaker,
		maxCommunities: cfg.MaxCommunities,
		metrics:        m,
	}
}

func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data listingPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type listingPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Subreddit   string  `json:"subreddit"`
	Selftext    string  `json:"selftext"`
	Over18      bool    `json:"over_18"`
}

// FetchPosts lists one page of community sorted by sort. Items without a body are dropped.
// after is the continuation cursor of the page, empty on the last one.
func (c *Client) FetchPosts(ctx context.Context, community, sort string, limit int) ([]model.ContentItem, string, error) {
	if limit <= 0 {
		limit = 25
	}
	query := map[string]string{
		"limit":    strconv.Itoa(limit),
		"raw_json": "1",
	}
	if sort == SortTop {
		query["t"] = "week"
	}

	resp, err := c.executor.WithContext(ctx).Get(func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetPathParams(map[string]string{"community": community, "sort": sort}).
			SetQueryParams(query).
			Get("/r/{community}/{sort}.json")
	})
	if err != nil {
		c.metrics.IncUpstream("reddit", false)
		return nil, "", errors.Wrapf(err, "fetch r/%s/%s", community, sort)
	}
	if !resp.IsSuccess() {
		c.metrics.IncUpstream("reddit", false)
		return nil, "", &StatusError{Community: community, StatusCode: resp.StatusCode()}
	}
	c.metrics.IncUpstream("reddit", true)

	var page listing
	if err = json.Unmarshal(resp.Body(), &page); err != nil {
		return nil, "", errors.Wrapf(err, "decode r/%s/%s", community, sort)
	}

	items := make([]model.ContentItem, 0, len(page.Data.Children))
	for _, child := range page.Data.Children {
		p := child.Data
		if strings.TrimSpace(p.Selftext) == "" {
			continue
		}
		items = append(items, toContentItem(p, community))
	}
	return items, page.Data.After, nil
}

func toContentItem(p listingPost, community string) model.ContentItem {
	sub := p.Subreddit
	if sub == "" {
		sub = community
	}
	url := p.URL
	if url == "" && p.Permalink != "" {
		url = "https://www.reddit.com" + p.Permalink
	}
	sec, frac := int64(p.CreatedUTC), p.CreatedUTC-float64(int64(p.CreatedUTC))
	return model.ContentItem{
		ID:           p.ID,
		Title:        p.Title,
		Author:       p.Author,
		URL:          url,
		Score:        p.Score,
		CommentCount: p.NumComments,
		CreatedAt:    time.Unix(sec, int64(frac*1e9)).UTC(),
		Community:    sub,
		Body:         p.Selftext,
		IsAdult:      p.Over18,
	}
}

// GetRandomPosts samples up to maxCommunities distinct communities, each with a random sort.
// Failing communities are logged and skipped, so the result may be empty.
func (c *Client) GetRandomPosts(ctx context.Context, communities []string, perCommunity int) []model.ContentItem {
	picked := pickCommunities(communities, c.maxCommunities)

	out := make([]model.ContentItem, 0, len(picked)*perCommunity)
	for _, community := range picked {
		if ctx.Err() != nil {
			break
		}
		sort := sorts[rand.IntN(len(sorts))]
		items, _, err := c.FetchPosts(ctx, community, sort, perCommunity)
		if err != nil {
			log.WarnContext(ctx, "reddit fetch failed, community skipped", "community", community, "sort", sort, "err", err)
			continue
		}
		if len(items) > perCommunity {
			items = items[:perCommunity]
		}
		out = append(out, items...)
	}
	return out
}

func pickCommunities(communities []string, limit int) []string {
	seen := make(map[string]struct{}, len(communities))
	unique := make([]string, 0, len(communities))
	for _, name := range communities {
		name = strings.TrimSpace(strings.TrimPrefix(name, "r/"))
		key := strings.ToLower(name)
		if name == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, name)
	}
	rand.Shuffle(len(unique), func(i, j int) {
		unique[i], unique[j] = unique[j], unique[i]
	})
	if len(unique) > limit {
		unique = unique[:limit]
	}
	return unique
}

// BreakerOpen reports whether fetches are currently short-circuited
func (c *Client) BreakerOpen() bool {
	return c.breaker.IsOpen()
}
