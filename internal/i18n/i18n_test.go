package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func initLang(t *testing.T, langs ...string) context.Context {
	t.Helper()
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	loc := NewLocalizer(langs...)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "ErrorNotFound")
	if got != "This question could not be found." {
		t.Errorf("T(ErrorNotFound) = %q", got)
	}
}

func TestTranslateChinese(t *testing.T) {
	ctx := initLang(t, "zh")

	got := T(ctx, "ErrorNotFound")
	if got != "找不到这道题目。" {
		t.Errorf("T(ErrorNotFound) = %q", got)
	}
}

func TestFallbackToDefaultLanguage(t *testing.T) {
	ctx := initLang(t, "fr")

	got := T(ctx, "ErrorTimeout")
	if got != "The analysis took too long to complete. Please try again." {
		t.Errorf("T(ErrorTimeout) with unsupported language = %q", got)
	}
}

func TestTemplateData(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ErrorValidation", map[string]any{"Reason": "question ID is required"})
	if got != "question ID is required" {
		t.Errorf("Td(ErrorValidation) = %q", got)
	}
}

func TestMissingTranslationReturnsID(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NoSuchMessage"); got != "NoSuchMessage" {
		t.Errorf("T(NoSuchMessage) = %q, want the ID back", got)
	}
}

func TestContextWithoutLocalizerUsesDefault(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	got := T(context.Background(), "ErrorInternal")
	if !strings.Contains(got, "Something went wrong") {
		t.Errorf("T without localizer = %q", got)
	}
}

func TestMiddlewareHonorsAcceptLanguage(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "ErrorNotFound")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != "找不到这道题目。" {
		t.Errorf("localized message = %q, want Chinese", got)
	}
}
