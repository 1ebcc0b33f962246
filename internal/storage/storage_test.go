package storage

import "testing"

func TestResolvePublicURL(t *testing.T) {
	r, err := NewResolver("https://project.supabase.co/", "question-images")
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"answers/q1-page1.jpg", "https://project.supabase.co/storage/v1/object/public/question-images/answers/q1-page1.jpg"},
		{"q1.png", "https://project.supabase.co/storage/v1/object/public/question-images/q1.png"},
	}
	for _, tt := range tests {
		got, err := r.ResolvePublicURL(tt.key)
		if err != nil {
			t.Fatalf("ResolvePublicURL(%q) error = %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("ResolvePublicURL(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}

	if _, err := r.ResolvePublicURL(""); err == nil {
		t.Error("ResolvePublicURL(\"\") succeeded, want error")
	}
}

func TestNewResolverRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		bucket  string
	}{
		{"relative URL", "project.supabase.co", "b"},
		{"empty URL", "", "b"},
		{"empty bucket", "https://project.supabase.co", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewResolver(tt.baseURL, tt.bucket); err == nil {
				t.Errorf("NewResolver(%q, %q) succeeded, want error", tt.baseURL, tt.bucket)
			}
		})
	}
}
