// Package llm analyzes handwritten chemistry answers with vision-capable
// language models. Two adapters (OpenAI-style and Anthropic-style) share
// one contract and one retry/degradation algorithm.
package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/daringdolphin/chemcheck/internal/model"
)

// Reference image optimization settings, shared by both adapters.
const (
	ReferenceMaxWidth = 1024
	ReferenceQuality  = 60
)

// Provider analyzes a student answer image against a model answer.
type Provider interface {
	// Name identifies the backend for provider selection and logging.
	Name() model.Provider
	// MaxReferenceImages is the backend's reference image cap; larger
	// vision context budgets allow more references.
	MaxReferenceImages() int
	// Analyze runs the full degradation ladder and returns either a
	// validated result or an *Error.
	Analyze(ctx context.Context, req Request) (*model.AnalysisResult, error)
}

// Request carries everything one analysis call needs. StudentImage and
// ReferenceImages are inline data URLs produced by imageproc/refimage.
type Request struct {
	StudentImage    string
	ModelAnswer     []model.ModelAnswerPart
	ReferenceImages []string
	Syllabus        model.SyllabusReference
}

// Config holds per-provider tunables. Zero values are filled by the
// Default*Config constructors.
type Config struct {
	Model              string
	MaxTokens          int
	Temperature        float32
	MaxAttempts        int
	AnalysisTimeout    time.Duration
	MaxReferenceImages int
	InitialRetryDelay  time.Duration
	MaxRetryDelay      time.Duration
}

// DefaultOpenAIConfig returns the canonical OpenAI settings profile.
func DefaultOpenAIConfig() Config {
	return Config{
		Model:              "gpt-4o",
		MaxTokens:          1500,
		Temperature:        0.1,
		MaxAttempts:        3,
		AnalysisTimeout:    120 * time.Second,
		MaxReferenceImages: 4,
		InitialRetryDelay:  time.Second,
		MaxRetryDelay:      8 * time.Second,
	}
}

// DefaultAnthropicConfig returns the canonical Anthropic settings profile.
// Claude's larger vision budget allows more reference images.
func DefaultAnthropicConfig() Config {
	cfg := DefaultOpenAIConfig()
	cfg.Model = "claude-3-5-sonnet-20241022"
	cfg.MaxReferenceImages = 8
	return cfg
}

// referencesForAttempt applies the degradation ladder: attempt 1 uses all
// optimized references, attempt 2 half rounded up, attempt 3 and beyond
// none. Trading context for speed raises the odds of finishing inside the
// timeout and token budget.
func referencesForAttempt(refs []string, attempt int) []string {
	switch {
	case attempt <= 1:
		return refs
	case attempt == 2:
		return refs[:(len(refs)+1)/2]
	default:
		return nil
	}
}

// backoffDelay computes min(2^attempt * initial, max).
func backoffDelay(attempt int, initial, max time.Duration) time.Duration {
	d := initial << attempt
	if d > max || d < 0 {
		d = max
	}
	return d
}

// analyzeWithDegradation runs attempt up to cfg.MaxAttempts times, feeding
// it the ladder's reference subset for each round. Non-retryable failures
// propagate immediately without consuming further attempts; exhaustion
// surfaces the last error.
func analyzeWithDegradation(
	ctx context.Context,
	cfg Config,
	name model.Provider,
	refs []string,
	attempt func(ctx context.Context, refs []string) (*model.AnalysisResult, error),
) (*model.AnalysisResult, error) {
	var lastErr error
	for n := 1; n <= cfg.MaxAttempts; n++ {
		attemptRefs := referencesForAttempt(refs, n)
		if n > 1 {
			slog.Info("retrying analysis", "provider", name, "attempt", n, "reference_images", len(attemptRefs))
		}

		result, err := attempt(ctx, attemptRefs)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !Retryable(err) {
			return nil, err
		}
		slog.Warn("analysis attempt failed", "provider", name, "attempt", n, "error", err)

		if n < cfg.MaxAttempts {
			if err := sleepBackoff(ctx, n, cfg); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

// sleepBackoff waits out the exponential backoff for the given attempt,
// aborting early if the caller goes away.
func sleepBackoff(ctx context.Context, attempt int, cfg Config) error {
	delay := backoffDelay(attempt, cfg.InitialRetryDelay, cfg.MaxRetryDelay)
	slog.Debug("waiting before retry", "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return &Error{Kind: KindTimeout, Message: "analysis canceled during retry backoff", Err: ctx.Err()}
	case <-timer.C:
		return nil
	}
}

// mustJSON renders request context as indented JSON for the prompt. The
// input types marshal cleanly, so a failure here is a programming error.
func mustJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
