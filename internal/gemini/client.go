// Package gemini implements the intent classifier and the content-safety
// analyzer on top of Google's Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/whatsdex/internal/config"
	"github.com/edgard/whatsdex/internal/intent"
	"github.com/edgard/whatsdex/internal/message"
	"github.com/edgard/whatsdex/internal/middleware"
	"github.com/edgard/whatsdex/internal/resilience"
)

// The breaker opens after this many consecutive failed calls, each already
// retried, and stays open for breakerOpenFor.
const (
	breakerFailures = 3
	breakerOpenFor  = time.Minute
)

// generator is the slice of *genai.Models the client uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client classifies intents and judges message safety.
type Client struct {
	models        generator
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	modelName     string
	maxRetries    int
	retryDelay    time.Duration
	breaker       *resilience.Breaker
}

var (
	_ intent.Classifier         = (*Client)(nil)
	_ middleware.SafetyAnalyzer = (*Client)(nil)
)

// NewClient creates a Gemini client with the provided configuration.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c := newClient(gi.Models, cfg, log)
	c.log.Info("Gemini client initialized successfully", "model", cfg.ModelName)
	return c, nil
}

func newClient(models generator, cfg config.GeminiConfig, log *slog.Logger) *Client {
	temperature := cfg.Temperature
	return &Client{
		models: models,
		log:    log.With("component", "gemini_client"),
		contentConfig: &genai.GenerateContentConfig{
			Temperature:      &temperature,
			ResponseMIMEType: "application/json",
			SafetySettings: []*genai.SafetySetting{
				{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
				{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
				{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
				{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
			},
		},
		modelName:  cfg.ModelName,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Duration(cfg.RetryDelaySeconds) * time.Second,
		breaker:    resilience.NewBreaker(resilience.Config{Name: "gemini", MaxFailures: breakerFailures, OpenFor: breakerOpenFor}, log),
	}
}

// retriableCode reports the HTTP code of a genai API error worth retrying.
func retriableCode(err error) (int, bool) {
	var ptr *genai.APIError
	if errors.As(err, &ptr) {
		return ptr.Code, ptr.Code == 500 || ptr.Code == 503
	}
	var val genai.APIError
	if errors.As(err, &val) {
		return val.Code, val.Code == 500 || val.Code == 503
	}
	return 0, false
}

func (c *Client) generateContentWithRetries(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var err error
	for i := 0; i <= c.maxRetries; i++ {
		var resp *genai.GenerateContentResponse
		resp, err = c.models.GenerateContent(ctx, c.modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", c.maxRetries, "error", err)

		code, retriable := retriableCode(err)
		if !retriable {
			c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
			return nil, fmt.Errorf("gemini API call failed: %w", err)
		}
		if i == c.maxRetries {
			c.log.ErrorContext(ctx, "Gemini API call failed after max retries with APIError", "error", err, "code", code)
			return nil, fmt.Errorf("gemini API call failed after %d retries (APIError code %d): %w", c.maxRetries, code, err)
		}

		c.log.InfoContext(ctx, "Retrying Gemini API call due to retriable APIError", "delay", c.retryDelay, "code", code)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
	return nil, err
}

// generateJSON sends one user turn under the given system instruction and
// decodes the JSON reply into dst.
func (c *Client) generateJSON(ctx context.Context, op, system, user string, schema *genai.Schema, dst any) error {
	cfg := *c.contentConfig
	cfg.ResponseSchema = schema
	cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}

	contents := []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}
	var resp *genai.GenerateContentResponse
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		resp, err = c.generateContentWithRetries(ctx, contents, &cfg)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	text, err := c.extractTextFromResponse(ctx, op, resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		c.log.ErrorContext(ctx, "Failed to parse JSON from Gemini response", "operation", op, "error", err, "response_text", text)
		return fmt.Errorf("%s: invalid JSON received: %w", op, err)
	}
	return nil
}

var intentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"intent": {
			Type:        genai.TypeString,
			Enum:        []string{string(intent.Greeting), string(intent.Farewell), string(intent.Question), string(intent.Command), string(intent.Other)},
			Description: "The single best intent label.",
		},
		"confidence": {Type: genai.TypeNumber, Description: "Confidence between 0 and 1."},
	},
	Required: []string{"intent", "confidence"},
}

// Classify labels text with one of the intent labels.
func (c *Client) Classify(ctx context.Context, text string) (intent.Result, error) {
	c.log.DebugContext(ctx, "Classifying intent", "text_length", len(text))

	var out struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := c.generateJSON(ctx, "classify", IntentSystemInstruction, text, intentSchema, &out); err != nil {
		return intent.Result{}, err
	}
	label := intent.Label(strings.ToLower(strings.TrimSpace(out.Intent)))
	if label == "" {
		label = intent.Other
	}
	return intent.Result{Intent: label, Confidence: out.Confidence}, nil
}

var safetySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"malicious": {Type: genai.TypeBoolean, Description: "True when the message is harmful to recipients or the bot."},
		"reason":    {Type: genai.TypeString, Description: "Short reason, empty when not malicious."},
	},
	Required: []string{"malicious", "reason"},
}

// Analyze asks Gemini whether msg is malicious.
func (c *Client) Analyze(ctx context.Context, msg message.Message) (middleware.Verdict, error) {
	if strings.TrimSpace(msg.Text) == "" {
		return middleware.Verdict{}, nil
	}
	c.log.DebugContext(ctx, "Analyzing message safety", "message_id", msg.ID, "text_length", len(msg.Text))

	var out struct {
		Malicious bool   `json:"malicious"`
		Reason    string `json:"reason"`
	}
	if err := c.generateJSON(ctx, "analyze", SafetySystemInstruction, msg.Text, safetySchema, &out); err != nil {
		return middleware.Verdict{}, err
	}
	return middleware.Verdict{Malicious: out.Malicious, Reason: out.Reason}, nil
}

func (c *Client) extractTextFromResponse(ctx context.Context, op string, resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "operation", op, "reason", reasonMsg)
		return "", fmt.Errorf("%s blocked by safety filter: %s", op, reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "operation", op, "finish_reason", finishReason)
		return "", fmt.Errorf("%s returned no content, finish reason: %s", op, finishReason)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%s returned empty text", op)
	}
	return text, nil
}
