package model

import "time"

// ContentItem a candidate item fetched from an external community
type ContentItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	URL          string    `json:"url"`
	Score        int       `json:"score"`
	CommentCount int       `json:"commentCount"`
	CreatedAt    time.Time `json:"createdAt"`
	Community    string    `json:"subreddit"`
	Body         string    `json:"selftext"`
	IsAdult      bool      `json:"isNsfw"`
}

// SourceRef provenance hint returned by the generator
type SourceRef struct {
	Title     string `json:"title"`
	Subreddit string `json:"subreddit"`
}

// GeneratedTweet a platform-ready text produced by the generator
type GeneratedTweet struct {
	Text       string     `json:"text"`
	SourcePost *SourceRef `json:"sourcePost,omitempty"`
}
