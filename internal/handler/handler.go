// Package handler exposes the JSON API: answer analysis, model answer
// display, and a health check.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/daringdolphin/chemcheck/internal/analyzer"
	"github.com/daringdolphin/chemcheck/internal/i18n"
	"github.com/daringdolphin/chemcheck/internal/imageproc"
	"github.com/daringdolphin/chemcheck/internal/model"
)

// maxUploadBytes caps multipart parsing slightly above the image limit so
// the pipeline, not the HTTP layer, reports oversized files.
const maxUploadBytes = imageproc.MaxFileSize + 1<<20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	analyzer *analyzer.Service
	store    QuestionReader
	resolver URLResolver
}

// QuestionReader is the subset of the store the API reads.
type QuestionReader interface {
	GetQuestion(id string) (*model.Question, error)
	GetReferenceImages(questionID string) ([]model.ReferenceImageRef, error)
}

// URLResolver turns a storage key into a public URL.
type URLResolver interface {
	ResolvePublicURL(key string) (string, error)
}

// New creates a new Handler.
func New(a *analyzer.Service, store QuestionReader, resolver URLResolver) *Handler {
	return &Handler{analyzer: a, store: store, resolver: resolver}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/analyze", h.handleAnalyze)
	r.Get("/api/questions/{questionID}/answers", h.handleModelAnswers)
	r.Get("/healthz", h.handleHealth)
}

type errorResponse struct {
	Error   analyzer.Code `json:"error"`
	Message string        `json:"message"`
}

// statusForCode maps outcome codes to HTTP statuses.
func statusForCode(code analyzer.Code) int {
	switch code {
	case analyzer.CodeValidation:
		return http.StatusBadRequest
	case analyzer.CodeNotFound:
		return http.StatusNotFound
	case analyzer.CodeUnreadableHandwriting:
		return http.StatusUnprocessableEntity
	case analyzer.CodeTimeout:
		return http.StatusGatewayTimeout
	case analyzer.CodeRateLimited:
		return http.StatusTooManyRequests
	case analyzer.CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// messageForFailure localizes the user-facing message for a failure.
// Validation failures carry their own specific reason.
func messageForFailure(ctx context.Context, f *analyzer.Failure) string {
	switch f.Code {
	case analyzer.CodeValidation:
		return i18n.Td(ctx, "ErrorValidation", map[string]any{"Reason": f.Message})
	case analyzer.CodeNotFound:
		return i18n.T(ctx, "ErrorNotFound")
	case analyzer.CodeUnreadableHandwriting:
		return i18n.T(ctx, "ErrorUnreadableHandwriting")
	case analyzer.CodeTimeout:
		return i18n.T(ctx, "ErrorTimeout")
	case analyzer.CodeRateLimited:
		return i18n.T(ctx, "ErrorRateLimited")
	case analyzer.CodeTooLarge:
		return i18n.T(ctx, "ErrorTooLarge")
	case analyzer.CodeAnalysisFailed:
		return i18n.T(ctx, "ErrorAnalysisFailed")
	default:
		return i18n.T(ctx, "ErrorInternal")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeFailure(ctx context.Context, w http.ResponseWriter, err error) {
	f := analyzer.AsFailure(err)
	writeJSON(w, statusForCode(f.Code), errorResponse{
		Error:   f.Code,
		Message: messageForFailure(ctx, f),
	})
}

// handleAnalyze accepts a multipart form with a questionId field and an
// image file, runs the analysis pipeline, and returns the feedback JSON.
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeFailure(ctx, w, &analyzer.Failure{
			Code:    analyzer.CodeValidation,
			Message: "request must be multipart/form-data with an image file",
			Err:     err,
		})
		return
	}
	defer r.MultipartForm.RemoveAll()

	questionID := r.FormValue("questionId")

	file, header, err := r.FormFile("image")
	if err != nil {
		writeFailure(ctx, w, &analyzer.Failure{
			Code:    analyzer.CodeValidation,
			Message: "image file is required",
			Err:     err,
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeFailure(ctx, w, &analyzer.Failure{
			Code:    analyzer.CodeValidation,
			Message: "failed to read uploaded file",
			Err:     err,
		})
		return
	}

	provider := r.URL.Query().Get("provider")
	if provider == "" {
		provider = r.Header.Get("X-Model-Provider")
	}

	upload := model.UploadedImage{
		Data:     data,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
	}

	result, err := h.analyzer.AnalyzeAnswer(ctx, questionID, upload, model.Provider(provider))
	if err != nil {
		writeFailure(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleModelAnswers returns the model answer images and marking scheme
// for a question, for display after analysis.
func (h *Handler) handleModelAnswers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	questionID := chi.URLParam(r, "questionID")

	question, err := h.store.GetQuestion(questionID)
	if err != nil {
		slog.Error("load question", "question_id", questionID, "error", err)
		writeFailure(ctx, w, &analyzer.Failure{Code: analyzer.CodeInternal, Err: err})
		return
	}
	if question == nil {
		writeFailure(ctx, w, &analyzer.Failure{Code: analyzer.CodeNotFound})
		return
	}

	refs, err := h.store.GetReferenceImages(questionID)
	if err != nil {
		slog.Error("load reference images", "question_id", questionID, "error", err)
		writeFailure(ctx, w, &analyzer.Failure{Code: analyzer.CodeInternal, Err: err})
		return
	}

	urls := make([]string, 0, len(refs))
	for _, ref := range refs {
		u, err := h.resolver.ResolvePublicURL(ref.ImgKey)
		if err != nil {
			slog.Warn("skipping unresolvable reference image", "key", ref.ImgKey, "error", err)
			continue
		}
		urls = append(urls, u)
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, model.ModelAnswerResponse{
		ModelAnswerImgURLs: urls,
		ModelAnswerJSON:    question.ModelAnswer,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
