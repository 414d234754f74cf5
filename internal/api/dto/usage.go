package dto

type UsageDTO struct {
	Year           int `json:"year"`
	Month          int `json:"month"`
	PostsAllotted  int `json:"posts_allotted"`
	PostsScheduled int `json:"posts_scheduled"`
	PostsPosted    int `json:"posts_posted"`
	Remaining      int `json:"remaining"`
}
