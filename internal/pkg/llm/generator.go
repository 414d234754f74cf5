package llm

import (
	"Postpilot/internal/api/config"
	"Postpilot/internal/model"
	"Postpilot/internal/pkg/consts"
	"Postpilot/internal/pkg/metrics"
	"context"
	"fmt"
	log "log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tmc/langchaingo/llms"
)

const (
	maxSourceBodyLength = 1200
	defaultGenerateTemp = 0.8
)

const defaultGenerateTweetsPrompt = `You write short social posts in the voice of a specific person.
Rules:
- Write original posts inspired by the source posts. Never copy sentences verbatim.
- Never include URLs, links or @handles taken from the source posts.
- Every post must fit in 280 characters.
- Return ONLY a JSON array, no prose and no markdown:
  [{"text": "...", "sourcePost": {"title": "<source title>", "subreddit": "<source subreddit>"}}]`

var fencedBlock = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// Generator turns community posts into on-voice post texts
type Generator struct {
	client      llms.Model
	modelName   string
	temperature float64
	timeout     time.Duration
	metrics     *metrics.Metrics
}

// NewGenerator client may be nil, in which case Generate always returns nothing
func NewGenerator(client llms.Model, cfg config.LLMConfig, m *metrics.Metrics) *Generator {
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultGenerateTemp
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	return &Generator{
		client:      client,
		modelName:   cfg.TextModel,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		metrics:     m,
	}
}

// Generate returns at most count texts of at most 280 characters.
// Backend failures and malformed output produce an empty list.
func (g *Generator) Generate(ctx context.Context, items []model.ContentItem, voice model.VoiceSummary, count int) []model.GeneratedTweet {
	if g.client == nil || count <= 0 || len(items) == 0 {
		return []model.GeneratedTweet{}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	systemPrompt := generateTweetsPrompt
	if systemPrompt == "" {
		systemPrompt = defaultGenerateTweetsPrompt
	}

	resp, err := fetchModel(ctx, g.client, g.modelName, systemPrompt, BuildPrompt(voice, items, count), g.temperature)
	if err != nil {
		g.metrics.IncUpstream("llm", false)
		log.WarnContext(ctx, "tweet generation failed", "err", err)
		return []model.GeneratedTweet{}
	}
	g.metrics.IncUpstream("llm", true)
	if len(resp.Choices) == 0 {
		return []model.GeneratedTweet{}
	}

	tweets := ParseTweets(resp.Choices[0].Content)
	if len(tweets) == 0 {
		log.WarnContext(ctx, "model output carried no usable tweets")
	}
	return clampTweets(tweets, count)
}

type promptSource struct {
	Title     string `json:"title"`
	Subreddit string `json:"subreddit"`
	Score     int    `json:"score"`
	Comments  int    `json:"comments"`
	Body      string `json:"body"`
}

// BuildPrompt renders the voice rules and the serialized source batch. Equal inputs give equal output.
func BuildPrompt(voice model.VoiceSummary, items []model.ContentItem, count int) string {
	voice = voice.Normalize()
	var b strings.Builder

	fmt.Fprintf(&b, "Write exactly %d posts.\n\n", count)
	b.WriteString("Voice:\n")
	if voice.Tone != "" {
		fmt.Fprintf(&b, "- Tone: %s.\n", voice.Tone)
	}

	c := voice.Cadence
	if c.AvgChars > 0 {
		fmt.Fprintf(&b, "- Aim for about %d characters per post.\n", c.AvgChars)
	}
	if c.Sentences == "one" {
		b.WriteString("- Use one sentence per post.\n")
	} else if c.Sentences == "two" {
		b.WriteString("- Use up to two sentences per post.\n")
	}
	fmt.Fprintf(&b, "- End roughly %.0f%% of posts with a question and %.0f%% with an exclamation.\n",
		c.QuestionRate*100, c.ExclaimRate*100)

	if voice.Emoji.Allowed && voice.Emoji.MaxPerTweet > 0 {
		position := voice.Emoji.Position
		if position == "" {
			position = "any"
		}
		fmt.Fprintf(&b, "- Emoji allowed: at most %d per post, position %s.\n", voice.Emoji.MaxPerTweet, position)
	} else {
		b.WriteString("- Do not use emoji.\n")
	}

	h := voice.Hashtags
	switch h.Frequency {
	case "":
		b.WriteString("- Do not use hashtags.\n")
	default:
		fmt.Fprintf(&b, "- Hashtags: %s", h.Frequency)
		if h.Position != "" {
			fmt.Fprintf(&b, ", placed %s", h.Position)
		}
		if len(h.Whitelist) > 0 {
			fmt.Fprintf(&b, ", only from: %s", strings.Join(h.Whitelist, ", "))
		}
		b.WriteString(".\n")
	}

	writeList(&b, "Prefer these words", voice.Lexicon.Prefer)
	writeList(&b, "Never use these words", voice.Lexicon.Avoid)
	writeList(&b, "Hedges you may use", voice.Lexicon.Hedges)
	writeList(&b, "Structure", voice.Structure)
	writeList(&b, "Topics", voice.Topics)
	writeList(&b, "Engagement", voice.EngagementHints)
	writeList(&b, "Safety", voice.Safety)

	if len(voice.Examples) > 0 {
		b.WriteString("\nExamples of the voice:\n")
		for _, e := range voice.Examples {
			if e.Text == "" {
				continue
			}
			fmt.Fprintf(&b, "- %s\n", e.Text)
		}
	}

	b.WriteString("\nDo not copy URLs or @handles from the sources.\n")

	sources := make([]promptSource, 0, len(items))
	for _, it := range items {
		sources = append(sources, promptSource{
			Title:     it.Title,
			Subreddit: it.Community,
			Score:     it.Score,
			Comments:  it.CommentCount,
			Body:      truncateRunes(strings.TrimSpace(it.Body), maxSourceBodyLength),
		})
	}
	data, _ := json.Marshal(sources)
	b.WriteString("\nSource posts (JSON):\n")
	b.Write(data)
	b.WriteString("\n")

	return b.String()
}

func writeList(b *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(b, "- %s: %s.\n", label, strings.Join(values, ", "))
}

// ParseTweets extracts the JSON array of the model output: strict JSON first, then a fenced block,
// then the outermost brackets. Anything else yields nil.
func ParseTweets(raw string) []model.GeneratedTweet {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	candidates := []string{raw}
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if start, end := strings.Index(raw, "["), strings.LastIndex(raw, "]"); start >= 0 && end > start {
		candidates = append(candidates, raw[start:end+1])
	}

	for _, c := range candidates {
		var tweets []model.GeneratedTweet
		if err := json.Unmarshal([]byte(c), &tweets); err == nil {
			return tweets
		}
	}
	return nil
}

func clampTweets(tweets []model.GeneratedTweet, count int) []model.GeneratedTweet {
	out := make([]model.GeneratedTweet, 0, min(len(tweets), count))
	for _, t := range tweets {
		if len(out) == count {
			break
		}
		text := truncateRunes(strings.TrimSpace(t.Text), consts.MaxTweetLength)
		if text == "" {
			continue
		}
		t.Text = text
		out = append(out, t)
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
