// Package ai wraps the Gemini API behind a narrow text-completion interface.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/groupscope/internal/config"
)

// CompletionRequest describes one text completion call.
type CompletionRequest struct {
	Prompt            string
	SystemInstruction string
	MaxOutputTokens   int32
}

// Completer generates text completions. Implementations must respect the
// context's deadline; callers bound every request with a timeout.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type sdkClient struct {
	genaiClient *genai.Client
	log         *slog.Logger
	model       string
	temperature float32
	maxRetries  int
	retryDelay  time.Duration
}

// NewClient creates a Gemini-backed Completer with the provided configuration.
func NewClient(ctx context.Context, cfg config.AIConfig, log *slog.Logger) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("AI API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	logger := log.With("component", "ai_client")
	logger.Info("AI client initialized", "model", cfg.Model)

	return &sdkClient{
		genaiClient: gi,
		log:         logger,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
	}, nil
}

// Complete sends one prompt to the model and returns the generated text.
// Transient server errors (HTTP 500/503) are retried up to the configured
// limit; all other failures surface immediately.
func (c *sdkClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}

	temperature := c.temperature
	genCfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.SystemInstruction != "" {
		genCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}
	if req.MaxOutputTokens > 0 {
		genCfg.MaxOutputTokens = req.MaxOutputTokens
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	resp, err := c.generateContentWithRetries(ctx, contents, genCfg)
	if err != nil {
		c.log.ErrorContext(ctx, "Completion failed", "error", err)
		return "", err
	}

	return extractTextFromResponse(resp)
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.genaiClient.Models.GenerateContent(ctx, c.model, contents, cfg)
		if err == nil {
			return resp, nil
		}

		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) {
			if i < c.maxRetries {
				c.log.WarnContext(ctx, "Retrying AI call after server error",
					"attempt", i+1, "code", apiErr.Code, "delay", c.retryDelay)
				select {
				case <-time.After(c.retryDelay):
					continue
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			return nil, fmt.Errorf("AI call failed after %d retries (code %d): %w", c.maxRetries, apiErr.Code, err)
		}

		return nil, fmt.Errorf("AI call failed: %w", err)
	}

	return nil, err
}

func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		return "", fmt.Errorf("completion blocked by safety filter: %s", reason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		return "", fmt.Errorf("completion returned no content, finish reason: %s", finishReason)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("completion returned empty text")
	}

	return text, nil
}
