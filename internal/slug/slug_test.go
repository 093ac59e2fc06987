package slug

import (
	"strings"
	"testing"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Demo", "demo"},
		{"spaces", "My First Project", "my-first-project"},
		{"diacritics", "Café Crème Brûlée", "cafe-creme-brulee"},
		{"punctuation runs", "Scene!!! -- Two??", "scene-two"},
		{"leading and trailing", "  --Hello--  ", "hello"},
		{"digits kept", "Episode 42", "episode-42"},
		{"no usable characters", "!!!", Fallback},
		{"non latin only", "日本語", Fallback},
		{"empty", "", Fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Make(tt.in); got != tt.want {
				t.Errorf("Make(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMakeTruncates(t *testing.T) {
	long := strings.Repeat("storyboard ", 20)
	got := Make(long)

	if len(got) > MaxLength {
		t.Errorf("len(Make) = %d, want <= %d", len(got), MaxLength)
	}
	if strings.HasSuffix(got, "-") || strings.HasPrefix(got, "-") {
		t.Errorf("truncated slug has dangling hyphen: %q", got)
	}
	if !strings.HasPrefix(got, "storyboard-storyboard") {
		t.Errorf("unexpected truncated slug: %q", got)
	}
}

func TestUnique(t *testing.T) {
	existing := map[string]bool{"demo": true, "demo-2": true}
	taken := func(s string) bool { return existing[s] }

	if got := Unique("fresh", taken); got != "fresh" {
		t.Errorf("Unique(fresh) = %q, want fresh", got)
	}
	if got := Unique("demo", taken); got != "demo-3" {
		t.Errorf("Unique(demo) = %q, want demo-3", got)
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Éclair Story", "eclair story"},
		{"ÉCLAIR", "eclair"},
		{"Crème Brûlée!", "creme brulee!"},
		{"100% Real", "100% real"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
