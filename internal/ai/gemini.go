// Package ai はデザイン説明文の生成をGeminiに任せる。
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

var ErrEmptyResponse = errors.New("ai: empty response")

// DescriptionGenerator はusecaseが依存する約束
type DescriptionGenerator interface {
	GenerateDescription(ctx context.Context, name string, keywords []string) (string, error)
}

type GeminiGenerator struct {
	client    *genai.Client
	modelName string
	log       *zap.Logger
}

func NewGeminiGenerator(ctx context.Context, apiKey, modelName string, log *zap.Logger) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiGenerator{client: client, modelName: modelName, log: log}, nil
}

func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func (g *GeminiGenerator) GenerateDescription(ctx context.Context, name string, keywords []string) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(0.7)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(
			"You write short product descriptions for custom hand-painted sneakers. " +
				"Answer with 2-4 sentences of plain text, no markdown, no prices.",
		)},
	}

	res, err := model.GenerateContent(ctx, genai.Text(buildPrompt(name, keywords)))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if res.UsageMetadata != nil {
		g.log.Debug("gemini usage",
			zap.String("model", g.modelName),
			zap.Int32("total_tokens", res.UsageMetadata.TotalTokenCount),
		)
	}

	text := firstText(res)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func buildPrompt(name string, keywords []string) string {
	var b strings.Builder
	b.WriteString("Design name: ")
	b.WriteString(strings.TrimSpace(name))
	kws := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			kws = append(kws, k)
		}
	}
	if len(kws) > 0 {
		b.WriteString("\nKeywords: ")
		b.WriteString(strings.Join(kws, ", "))
	}
	return b.String()
}

func firstText(res *genai.GenerateContentResponse) string {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range res.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}
