package x

import (
	"Postpilot/internal/api/config"
	"Postpilot/internal/pkg/metrics"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

var (
	ErrRateLimited  = errors.New("rate limited by X API")
	ErrUnauthorized = errors.New("unauthorized to post")
	ErrUpstream     = errors.New("X API request failed")
	ErrNoTweetID    = errors.New("X API returned no tweet id")
)

// APIError non-2xx answer of the posting API. It unwraps to one of the kind sentinels.
type APIError struct {
	StatusCode int
	Detail     string
	kind       error
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: HTTP %d", e.kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.kind, e.StatusCode, e.Detail)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// Client posts on behalf of a connected account
type Client struct {
	http  *resty.Client
	oauth *oauth2.Config
	m     *metrics.Metrics
}

func NewClient(cfg config.XConfig, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("Content-Type", "application/json"),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		m: m,
	}
}

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data *struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type errorResponse struct {
	Detail string `json:"detail"`
	Title  string `json:"title"`
	Errors []struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"errors"`
}

// Publish creates a post and returns its id
func (c *Client) Publish(ctx context.Context, accessToken, text string) (string, error) {
	body, err := json.Marshal(tweetRequest{Text: text})
	if err != nil {
		return "", err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(body).
		Post("/2/tweets")
	if err != nil {
		c.m.IncUpstream("x", false)
		return "", errors.Wrap(ErrUpstream, err.Error())
	}
	if !resp.IsSuccess() {
		c.m.IncUpstream("x", false)
		return "", newAPIError(resp.StatusCode(), resp.Body())
	}
	c.m.IncUpstream("x", true)

	var out tweetResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return "", errors.Wrap(err, "decode tweet response")
	}
	if out.Data == nil || out.Data.ID == "" {
		return "", ErrNoTweetID
	}
	return out.Data.ID, nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Detail: errorDetail(body)}
	switch {
	case status == http.StatusTooManyRequests:
		apiErr.kind = ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		apiErr.kind = ErrUnauthorized
	default:
		apiErr.kind = ErrUpstream
	}
	return apiErr
}

func errorDetail(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return strings.TrimSpace(string(body))
	}
	switch {
	case e.Detail != "":
		return e.Detail
	case len(e.Errors) > 0 && e.Errors[0].Detail != "":
		return e.Errors[0].Detail
	case len(e.Errors) > 0:
		return e.Errors[0].Message
	default:
		return e.Title
	}
}

// RefreshToken exchanges refreshToken for a new access token
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, ErrUnauthorized
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http.GetClient())
	token, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode < http.StatusInternalServerError {
			return nil, errors.Wrap(ErrUnauthorized, retrieveErr.Error())
		}
		return nil, errors.Wrap(ErrUpstream, err.Error())
	}
	return token, nil
}

// StatusCode of err when it came from the posting API, 0 otherwise
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
