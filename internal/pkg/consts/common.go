package consts

const (
	ProviderX      = "X"
	ProviderReddit = "REDDIT"
)

const (
	// MaxTweetLength hard character limit of the posting platform
	MaxTweetLength = 280
	// DefaultPostsAllotted monthly allotment given to a fresh usage row
	DefaultPostsAllotted = 100
)

const (
	GeneratedByCron   = "cron"
	GeneratedByManual = "manual"
)

const (
	GenerateContentJob = "generate content"
)
