package intent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiModel = "gemini-1.5-flash"

// GeminiParser parses commands with the Google Gemini API.
type GeminiParser struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiParser creates a Gemini-backed parser.
func NewGeminiParser(ctx context.Context, apiKey string) (*GeminiParser, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(geminiModel)
	model.ResponseMIMEType = "application/json"

	return &GeminiParser{client: client, model: model}, nil
}

// Parse sends the command to Gemini and decodes the returned intent.
func (p *GeminiParser) Parse(ctx context.Context, text string) (Result, error) {
	start := time.Now()

	prompt, err := buildPrompt(text)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build prompt: %w", err)
	}

	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("no content generated")
	}

	part, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return Result{}, fmt.Errorf("generated content is not text")
	}

	meta := Meta{
		Backend: "gemini",
		Usage:   TokenUsage{Model: geminiModel},
		Latency: time.Since(start),
	}
	if resp.UsageMetadata != nil {
		meta.Usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		meta.Usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		meta.Usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	in, err := decodeIntent(string(part))
	if err != nil {
		return Result{Meta: meta}, err
	}

	return Result{Intent: in, Meta: meta}, nil
}

// Close closes the underlying Gemini client.
func (p *GeminiParser) Close() error {
	return p.client.Close()
}
