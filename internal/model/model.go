package model

import "time"

// Provider identifies a vision model backend.
type Provider string

const (
	// ProviderOpenAI selects the OpenAI-style adapter.
	ProviderOpenAI Provider = "openai"
	// ProviderAnthropic selects the Anthropic-style adapter.
	ProviderAnthropic Provider = "anthropic"
)

// ValidProvider checks if a provider name is a supported backend.
func ValidProvider(p string) bool {
	switch Provider(p) {
	case ProviderOpenAI, ProviderAnthropic:
		return true
	}
	return false
}

// Question is a seeded exam question with its marking scheme.
// Questions are read-only once imported.
type Question struct {
	ID          string            `json:"id"`
	PromptImg   string            `json:"promptImg"`
	ModelAnswer []ModelAnswerPart `json:"modelAnswer"`
	Marks       int               `json:"marks"`
	Syllabus    SyllabusReference `json:"syllabusReference,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// ModelAnswerPart is one part of a question's model answer.
type ModelAnswerPart struct {
	Part         string        `json:"part"`
	Subpart      string        `json:"subpart,omitempty"`
	QuestionText string        `json:"questionText"`
	Marks        int           `json:"marks"`
	Answers      []AnswerPoint `json:"answers"`
}

// AnswerPoint is the granular marking unit inside a model answer part.
// It is sent to the LLM as context; the service never computes marks itself.
type AnswerPoint struct {
	Text     string   `json:"text"`
	Keywords []string `json:"keywords"`
	Notes    string   `json:"notes"`
	Marks    int      `json:"marks"`
}

// SyllabusReference maps a part label (e.g. "a", "b") to the syllabus
// context tested by that part.
type SyllabusReference map[string]SyllabusPart

// SyllabusPart describes what one question part tests.
type SyllabusPart struct {
	TopicsTested     []string                   `json:"topics_tested"`
	SyllabusContent  []string                   `json:"syllabus_content"`
	LearningOutcomes []string                   `json:"learning_outcomes"`
	Subparts         map[string]SyllabusSubpart `json:"subparts,omitempty"`
}

// SyllabusSubpart describes what one question subpart tests.
type SyllabusSubpart struct {
	TopicsTested     []string `json:"topics_tested"`
	SyllabusContent  []string `json:"syllabus_content"`
	LearningOutcomes []string `json:"learning_outcomes"`
}

// ReferenceImageRef points at a stored model-answer image for a question.
// Position defines inclusion order; rows are deleted with their question.
type ReferenceImageRef struct {
	QuestionID string `json:"questionId"`
	ImgKey     string `json:"imgKey"`
	Position   int    `json:"position"`
}

// UploadedImage is the raw student upload. It lives only for the duration
// of one analysis call and is never persisted.
type UploadedImage struct {
	Data     []byte
	MimeType string
	Size     int64
}

// NormalizedImage is the canonical re-encoded form of an upload: rotated
// upright, JPEG, with an inline data URL ready for an API payload.
type NormalizedImage struct {
	Data    []byte
	DataURL string
	Width   int
	Height  int
}

// AnalysisResult is the dual-track feedback returned to the student.
type AnalysisResult struct {
	ExamSkills              FeedbackSection `json:"examSkills"`
	ConceptualUnderstanding FeedbackSection `json:"conceptualUnderstanding"`
}

// FeedbackSection holds one markdown-formatted feedback track.
type FeedbackSection struct {
	Content string `json:"content"`
}

// QuestionImport is the JSON shape used for loading questions at startup.
type QuestionImport struct {
	ID              string            `json:"id"`
	PromptImg       string            `json:"promptImg"`
	ModelAnswer     []ModelAnswerPart `json:"modelAnswer"`
	Marks           int               `json:"marks"`
	Syllabus        SyllabusReference `json:"syllabusReference,omitempty"`
	ReferenceImages []string          `json:"referenceImages"`
}

// ModelAnswerResponse is returned by the model-answer display endpoint.
type ModelAnswerResponse struct {
	ModelAnswerImgURLs []string          `json:"modelAnswerImgUrls"`
	ModelAnswerJSON    []ModelAnswerPart `json:"modelAnswerJson"`
}
