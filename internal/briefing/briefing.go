// Package briefing produces the daily conditions bulletin. With an OpenAI
// key configured it writes a short narrative from the day's numbers;
// without one it falls back to an assembled plain-language summary, so the
// endpoint works either way.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jlucien/lagoonwatch/internal/risk"
)

// Conditions carries the inputs the bulletin is written from.
type Conditions struct {
	SiteName    string
	Temp        float64
	HasTemp     bool
	WindKPH     float64
	HasWind     bool
	Precip24h   float64
	SST         float64
	HasSST      bool
	Flood       risk.Level
	Cyclone     risk.Level
	CycloneName string // active advisory storm name, if any
	Bleaching   risk.Level
	Surge       risk.Level
	OceanGrade  string
}

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

// Generate writes a short narrative bulletin for the given conditions.
func (g *Generator) Generate(ctx context.Context, c Conditions) (string, error) {
	log.Printf("briefing: generating bulletin for %s", c.SiteName)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You write a brief daily coastal conditions bulletin for Mauritius. " +
				"Two to four sentences, factual, no emojis. Mention any elevated hazard first."),
			openai.UserMessage(FallbackText(c)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("bulletin generation failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("no bulletin content returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// FallbackText assembles the bulletin without a language model. It doubles
// as the prompt payload when one is available.
func FallbackText(c Conditions) string {
	var parts []string

	if c.Cyclone.Severity() >= risk.LevelModerate.Severity() {
		if c.CycloneName != "" {
			parts = append(parts, fmt.Sprintf("Cyclone risk is %s with %s active in the region.", c.Cyclone, c.CycloneName))
		} else {
			parts = append(parts, fmt.Sprintf("Cyclone risk is %s.", c.Cyclone))
		}
	}
	if c.Flood.Severity() >= risk.LevelModerate.Severity() {
		parts = append(parts, fmt.Sprintf("Flood risk is %s after %.0f mm of rain in 24 hours.", c.Flood, c.Precip24h))
	}
	if c.Surge.Severity() >= risk.LevelModerate.Severity() {
		parts = append(parts, fmt.Sprintf("Coastal surge risk is %s.", c.Surge))
	}
	if c.Bleaching.Severity() >= risk.LevelModerate.Severity() {
		parts = append(parts, fmt.Sprintf("Coral bleaching risk is %s.", c.Bleaching))
	}

	var current []string
	if c.HasTemp {
		current = append(current, fmt.Sprintf("%.0f°C", c.Temp))
	}
	if c.HasWind {
		current = append(current, fmt.Sprintf("wind %.0f km/h", c.WindKPH))
	}
	if c.HasSST {
		current = append(current, fmt.Sprintf("sea temperature %.1f°C", c.SST))
	}
	if len(current) > 0 {
		parts = append(parts, fmt.Sprintf("Current conditions at %s: %s.", c.SiteName, strings.Join(current, ", ")))
	}

	if c.OceanGrade != "" {
		parts = append(parts, fmt.Sprintf("Lagoon health is rated %s.", c.OceanGrade))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("No elevated hazards for %s. Conditions data is currently limited.", c.SiteName)
	}
	return strings.Join(parts, " ")
}
