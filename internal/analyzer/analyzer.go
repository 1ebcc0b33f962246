// Package analyzer sequences one answer analysis end to end: input
// validation, question lookup, image normalization, reference image
// preparation, the provider call and result parsing, mapping every
// failure to a closed outcome taxonomy.
package analyzer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/daringdolphin/chemcheck/internal/imageproc"
	"github.com/daringdolphin/chemcheck/internal/llm"
	"github.com/daringdolphin/chemcheck/internal/model"
)

// QuestionStore reads seeded questions and their reference image rows.
type QuestionStore interface {
	// GetQuestion returns nil without error for an unknown id.
	GetQuestion(id string) (*model.Question, error)
	// GetReferenceImages returns rows ordered by ascending position.
	GetReferenceImages(questionID string) ([]model.ReferenceImageRef, error)
}

// URLResolver turns a storage key into a fetchable HTTPS URL.
type URLResolver interface {
	ResolvePublicURL(key string) (string, error)
}

// ReferenceFetcher downloads and optimizes reference images, dropping
// individual failures.
type ReferenceFetcher interface {
	FetchAndOptimize(ctx context.Context, urls []string, limit, maxWidth, quality int) []string
}

// Service runs analysis calls. Each call is self-contained: no state is
// shared between concurrent analyses.
type Service struct {
	store           QuestionStore
	resolver        URLResolver
	fetcher         ReferenceFetcher
	providers       map[model.Provider]llm.Provider
	defaultProvider model.Provider
}

// New creates a Service. The default provider is used when a call does
// not name one.
func New(store QuestionStore, resolver URLResolver, fetcher ReferenceFetcher, providers []llm.Provider, defaultProvider model.Provider) *Service {
	byName := make(map[model.Provider]llm.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Service{
		store:           store,
		resolver:        resolver,
		fetcher:         fetcher,
		providers:       byName,
		defaultProvider: defaultProvider,
	}
}

// AnalyzeAnswer analyzes one uploaded answer photo against the stored
// model answer for questionID. On failure the returned error is always a
// *Failure carrying exactly one outcome code; no partial results are
// returned. The caller's context is propagated throughout, so an
// abandoned request cancels any in-flight provider call.
func (s *Service) AnalyzeAnswer(ctx context.Context, questionID string, upload model.UploadedImage, provider model.Provider) (result *model.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during analysis", "question_id", questionID, "panic", r)
			result = nil
			err = &Failure{Code: CodeInternal, Message: "an unexpected error occurred"}
		}
	}()

	// Input validation. Cheap checks first; no I/O has happened yet.
	if questionID == "" {
		return nil, failf(CodeValidation, "question ID is required")
	}
	if len(upload.Data) == 0 {
		return nil, failf(CodeValidation, "uploaded file is empty")
	}
	if !imageproc.AllowedMimeType(upload.MimeType) {
		return nil, failf(CodeValidation, "invalid file type %q: only JPEG and PNG are supported", upload.MimeType)
	}
	if upload.Size > imageproc.MaxFileSize {
		return nil, failf(CodeValidation, "file size exceeds the 10MB limit")
	}

	p, ok := s.providers[s.pickProvider(provider)]
	if !ok {
		return nil, failf(CodeValidation, "unsupported model provider %q", provider)
	}

	question, err := s.store.GetQuestion(questionID)
	if err != nil {
		return nil, &Failure{Code: CodeInternal, Message: "failed to load question", Err: err}
	}
	if question == nil {
		return nil, failf(CodeNotFound, "question %q not found", questionID)
	}

	// Normalize before any network work so a corrupt upload never
	// triggers reference downloads.
	normalized, err := imageproc.Process(upload.Data, upload.MimeType)
	if err != nil {
		return nil, &Failure{Code: CodeValidation, Message: err.Error(), Err: err}
	}

	refs, err := s.store.GetReferenceImages(questionID)
	if err != nil {
		return nil, &Failure{Code: CodeInternal, Message: "failed to load reference images", Err: err}
	}
	urls := s.resolveURLs(refs)
	optimized := s.fetcher.FetchAndOptimize(ctx, urls, p.MaxReferenceImages(), llm.ReferenceMaxWidth, llm.ReferenceQuality)

	slog.Info("analyzing answer",
		"question_id", questionID,
		"provider", p.Name(),
		"image_size", len(normalized.Data),
		"reference_images", len(optimized),
	)

	result, err = p.Analyze(ctx, llm.Request{
		StudentImage:    normalized.DataURL,
		ModelAnswer:     question.ModelAnswer,
		ReferenceImages: optimized,
		Syllabus:        question.Syllabus,
	})
	if err != nil {
		f := mapProviderError(err)
		slog.Error("analysis failed", "question_id", questionID, "provider", p.Name(), "code", f.Code, "error", err)
		return nil, f
	}

	return result, nil
}

func (s *Service) pickProvider(provider model.Provider) model.Provider {
	if provider == "" {
		return s.defaultProvider
	}
	return provider
}

// resolveURLs maps reference rows to fetchable URLs, preserving position
// order. A key that fails to resolve is skipped: partial reference sets
// are acceptable.
func (s *Service) resolveURLs(refs []model.ReferenceImageRef) []string {
	urls := make([]string, 0, len(refs))
	for _, ref := range refs {
		u, err := s.resolver.ResolvePublicURL(ref.ImgKey)
		if err != nil {
			slog.Warn("skipping unresolvable reference image", "key", ref.ImgKey, "error", err)
			continue
		}
		urls = append(urls, u)
	}
	return urls
}

// mapProviderError folds adapter failures into the outcome taxonomy.
func mapProviderError(err error) *Failure {
	var lerr *llm.Error
	if !errors.As(err, &lerr) {
		return &Failure{Code: CodeInternal, Message: "an unexpected error occurred", Err: err}
	}

	switch lerr.Kind {
	case llm.KindUnreadableHandwriting:
		return &Failure{Code: CodeUnreadableHandwriting, Message: "unable to read the handwriting in your answer", Err: err}
	case llm.KindTimeout:
		return &Failure{Code: CodeTimeout, Message: "analysis took too long to complete", Err: err}
	case llm.KindRateLimited:
		return &Failure{Code: CodeRateLimited, Message: "service is currently busy", Err: err}
	case llm.KindPayloadTooLarge:
		return &Failure{Code: CodeTooLarge, Message: "image is too large for analysis", Err: err}
	default:
		return &Failure{Code: CodeAnalysisFailed, Message: "failed to analyze the answer", Err: err}
	}
}
