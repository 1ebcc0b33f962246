package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/daringdolphin/chemcheck/internal/llm/prompts"
	"github.com/daringdolphin/chemcheck/internal/model"
)

// resultPrefill seeds the assistant turn so Claude continues straight into
// the result object. It is re-prepended to the completion before parsing.
const resultPrefill = "{\n  \"examSkills\": {\n    \"content\": \""

// Anthropic analyzes answers with an Anthropic-style vision model.
type Anthropic struct {
	api anthropic.Client
	cfg Config
}

// NewAnthropic creates the Anthropic-style adapter. SDK-internal retries
// are disabled; the degradation ladder owns all retrying.
func NewAnthropic(apiKey string, cfg Config) *Anthropic {
	return &Anthropic{
		api: anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
		),
		cfg: cfg,
	}
}

// Name implements Provider.
func (p *Anthropic) Name() model.Provider { return model.ProviderAnthropic }

// MaxReferenceImages implements Provider.
func (p *Anthropic) MaxReferenceImages() int { return p.cfg.MaxReferenceImages }

// Analyze implements Provider.
func (p *Anthropic) Analyze(ctx context.Context, req Request) (*model.AnalysisResult, error) {
	return analyzeWithDegradation(ctx, p.cfg, p.Name(), req.ReferenceImages,
		func(ctx context.Context, refs []string) (*model.AnalysisResult, error) {
			return p.analyzeOnce(ctx, req, refs)
		})
}

func (p *Anthropic) analyzeOnce(ctx context.Context, req Request, refs []string) (*model.AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.AnalysisTimeout)
	defer cancel()

	studentMedia, studentData, err := splitDataURL(req.StudentImage)
	if err != nil {
		return nil, &Error{Kind: KindBadRequest, Message: "invalid student image data URL", Err: err}
	}

	content := []anthropic.ContentBlockParamUnion{
		anthropic.NewTextBlock(prompts.UserInstruction),
		anthropic.NewImageBlockBase64(studentMedia, studentData),
	}
	for _, ref := range refs {
		media, data, err := splitDataURL(ref)
		if err != nil {
			// Optimized references are produced in-process; a bad one
			// is dropped rather than failing the attempt.
			continue
		}
		content = append(content, anthropic.NewImageBlockBase64(media, data))
	}
	content = append(content,
		anthropic.NewTextBlock("Model Answer JSON:\n"+mustJSON(req.ModelAnswer)),
		anthropic.NewTextBlock("Syllabus Reference:\n"+mustJSON(req.Syllabus)),
	)

	message, err := p.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.cfg.Model),
		MaxTokens:   int64(p.cfg.MaxTokens),
		Temperature: anthropic.Float(float64(p.cfg.Temperature)),
		System: []anthropic.TextBlockParam{
			{Text: prompts.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(content...),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock(resultPrefill)),
		},
	})
	if err != nil {
		return nil, classifyAnthropicError(err, p.cfg)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, &Error{Kind: KindNoContent, Message: "no text content in response"}
	}

	// The completion continues the prefill, so the two concatenate into
	// the full JSON object.
	return ParseResult(resultPrefill + text)
}

func classifyAnthropicError(err error, cfg Config) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "analysis timed out after " + cfg.AnalysisTimeout.String(), Err: err}
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
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

// splitDataURL separates an inline data URL into its media type and
// base64 payload.
func splitDataURL(dataURL string) (mediaType, data string, err error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", "", fmt.Errorf("missing data: prefix")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", fmt.Errorf("missing payload separator")
	}
	mediaType, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", "", fmt.Errorf("unsupported encoding in %q", meta)
	}
	return mediaType, payload, nil
}
