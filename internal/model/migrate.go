package model

// Tables every persisted model, in dependency order
func Tables() []any {
	return []any{
		&User{},
		&SchedulePolicy{},
		&VoiceProfile{},
		&Subreddit{},
		&UserSource{},
		&SocialAccount{},
		&SourceItem{},
		&Draft{},
		&ScheduledPost{},
		&PostEvent{},
		&MonthlyUsage{},
	}
}
