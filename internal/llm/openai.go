package llm

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/daringdolphin/chemcheck/internal/llm/prompts"
	"github.com/daringdolphin/chemcheck/internal/model"
)

// OpenAI analyzes answers with an OpenAI-style vision model.
type OpenAI struct {
	api *openai.Client
	cfg Config
}

// NewOpenAI creates the OpenAI-style adapter. An empty baseURL uses the
// public API endpoint.
func NewOpenAI(baseURL, apiKey string, cfg Config) *OpenAI {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAI{
		api: openai.NewClientWithConfig(config),
		cfg: cfg,
	}
}

// Name implements Provider.
func (p *OpenAI) Name() model.Provider { return model.ProviderOpenAI }

// MaxReferenceImages implements Provider.
func (p *OpenAI) MaxReferenceImages() int { return p.cfg.MaxReferenceImages }

// Analyze implements Provider.
func (p *OpenAI) Analyze(ctx context.Context, req Request) (*model.AnalysisResult, error) {
	return analyzeWithDegradation(ctx, p.cfg, p.Name(), req.ReferenceImages,
		func(ctx context.Context, refs []string) (*model.AnalysisResult, error) {
			return p.analyzeOnce(ctx, req, refs)
		})
}

func (p *OpenAI) analyzeOnce(ctx context.Context, req Request, refs []string) (*model.AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.AnalysisTimeout)
	defer cancel()

	// The student's answer goes in at high detail; references at low
	// detail to save tokens.
	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: prompts.UserInstruction},
		{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    req.StudentImage,
				Detail: openai.ImageURLDetailHigh,
			},
		},
	}
	for _, ref := range refs {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    ref,
				Detail: openai.ImageURLDetailLow,
			},
		})
	}
	parts = append(parts,
		openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: "Model Answer JSON:\n" + mustJSON(req.ModelAnswer)},
		openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: "Syllabus Reference:\n" + mustJSON(req.Syllabus)},
	)

	resp, err := p.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompts.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, classifyOpenAIError(err, p.cfg)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, &Error{Kind: KindNoContent, Message: "no response content received"}
	}

	return ParseResult(resp.Choices[0].Message.Content)
}

func classifyOpenAIError(err error, cfg Config) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "analysis timed out after " + cfg.AnalysisTimeout.String(), Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return &Error{Kind: KindAuth, Message: "authentication failed", Err: err}
		case http.StatusBadRequest:
			return &Error{Kind: KindBadRequest, Message: "request rejected by provider", Err: err}
		case http.StatusUnprocessableEntity:
			return &Error{Kind: KindUnreadableHandwriting, Message: "provider could not read the handwriting", Err: err}
		case http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimited, Message: "rate limit exceeded", Err: err}
		case http.StatusRequestEntityTooLarge:
			return &Error{Kind: KindPayloadTooLarge, Message: "request payload too large", Err: err}
		}
	}

	return &Error{Kind: KindAPI, Message: "provider call failed", Err: err}
}
