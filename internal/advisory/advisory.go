// Package advisory turns an assessment into a short narrative health
// advisory using the OpenAI API. It is optional: without an API key the
// caller falls back to the fixed advice text.
package advisory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/aramyan/yerevanair/internal/health"
)

const systemPrompt = "You are an air quality health advisor for Yerevan, Armenia. " +
	"Given PM2.5 measurements, write practical advice for residents in 3-4 short sentences. " +
	"Be specific and calm. Do not repeat the numbers back."

// Generator produces narrative advisories.
type Generator struct {
	client openai.Client
	model  string
}

// NewGenerator reads OPENAI_API_KEY for authentication.
func NewGenerator() (*Generator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Generator{
		client: client,
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

// Generate writes an advisory for a district at the given exposure.
func (g *Generator) Generate(ctx context.Context, district string, pm25 float64, profile health.Profile) (string, error) {
	level, description := health.RiskLevel(pm25)
	prompt := fmt.Sprintf(
		"District: %s\nCurrent PM2.5: %.1f µg/m³\nAir quality level: %s (%s)\nResident profile: %s\nBaseline advice: %s",
		district, pm25, level, description, profile, health.Advice(profile, pm25),
	)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("advisory generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no advisory returned")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty advisory returned")
	}
	return text, nil
}
