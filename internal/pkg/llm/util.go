package llm

import (
	"context"
	log "log/slog"
	"os"

	"github.com/tmc/langchaingo/llms"
)

func readPrompt(file string) string {
	data, err := os.ReadFile(file)
	if err != nil {
		log.Warn("prompt file not readable, using built-in prompt", "file", file, "err", err)
		return ""
	}
	return string(data)
}

func fetchModel(ctx context.Context, client llms.Model, modelName, systemPrompt, userPrompt string, temp float64) (*llms.ContentResponse, error) {
	if err := TextSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer TextSem.Release(1)
	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(userPrompt),
			},
		},
	}
	log.InfoContext(ctx, "requesting LLM", "model", modelName)
	return client.GenerateContent(ctx, messages,
		llms.WithModel(modelName),
		llms.WithTemperature(temp),
	)
}
