package dto

type GenerateDTO struct {
	Count int `json:"count" validate:"omitempty,gte=1,lte=10"`
}

type GenerateResultDTO struct {
	TweetsGenerated int                 `json:"tweets_generated"`
	Tweets          []*ScheduledPostDTO `json:"tweets"`
}
