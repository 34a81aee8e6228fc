// Package ai talks to Gemini: it grades answers and runs the tool-calling
// agent that edits the content graph.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.0-flash"

// Client owns the Gemini connection and a fixed number of request slots.
type Client struct {
	client    *genai.Client
	modelName string
	rateChan  chan struct{}
	log       *slog.Logger
}

func NewClient(ctx context.Context, apiKey, modelName string, concurrentReqs int, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is not set")
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}
	return &Client{
		client:    client,
		modelName: modelName,
		rateChan:  rateChan,
		log:       logger.With("component", "gemini", "model", modelName),
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) model() *genai.GenerativeModel {
	return c.client.GenerativeModel(c.modelName)
}

// acquire blocks until a request slot is free.
func (c *Client) acquire(ctx context.Context) error {
	select {
	case <-c.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (c *Client) release() {
	c.rateChan <- struct{}{}
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

// stripFences removes a surrounding ```json ... ``` block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
