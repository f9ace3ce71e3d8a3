package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"promptiq/m/v2/app/lib"

	"google.golang.org/genai"
)

// Gemini is the Model backed by the Gemini API.
type Gemini struct {
	apiKey string
	model  string

	mu     sync.Mutex
	client *genai.Client
}

func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{
		apiKey: apiKey,
		model:  model,
	}
}

func (g *Gemini) Name() string {
	return g.model
}

func (g *Gemini) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	if g.apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is not configured", lib.ErrGenerationFailed)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", lib.ErrGenerationFailed, err)
	}
	g.client = client
	return client, nil
}

func (g *Gemini) GenerateContent(ctx context.Context, systemInstruction, userTurn string) (string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: userTurn}},
		},
	}
	config := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", classifyError(err)
	}

	var text strings.Builder
	if len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		for _, part := range result.Candidates[0].Content.Parts {
			if part != nil && part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}
	return text.String(), nil
}
