package llm

import (
	"Postpilot/internal/api/config"
	log "log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var generateTweetsPrompt string

// InitLLM builds the OpenAI-compatible model. Without an api key it returns a nil model
// and generation yields nothing.
func InitLLM(cfg config.LLMConfig) (llms.Model, error) {
	generateTweetsPrompt = readPrompt("./prompts/generate-tweets.txt")

	if cfg.ApiKey == "" {
		log.Warn("LLM api key not configured, tweet generation disabled")
		return nil, nil
	}

	opts := []openai.Option{
		openai.WithModel(cfg.TextModel),
		openai.WithToken(cfg.ApiKey),
	}
	if cfg.URL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.URL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		log.Error("LLM init failed", "err", err)
		return nil, err
	}
	return llm, nil
}
