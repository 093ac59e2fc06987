package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/storyreel/storyreel/internal/schema"
	"github.com/storyreel/storyreel/internal/storeerr"
	"github.com/storyreel/storyreel/internal/ui"
)

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseSince accepts a date (2006-01-02), an RFC 3339 timestamp or a
// natural phrase such as "last week" or "3 days ago".
func parseSince(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, text, now.Location()); err == nil {
			return t, nil
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(text, now)
	if err != nil {
		return time.Time{}, storeerr.Validation("parse --since", "%q: %v", text, err)
	}
	if r == nil {
		return time.Time{}, storeerr.Validation("parse --since", "cannot understand %q", text)
	}
	return r.Time, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func printProjects(w io.Writer, projects []schema.ProjectSummary) error {
	if len(projects) == 0 {
		_, err := fmt.Fprintln(w, ui.RenderMuted("No projects."))
		return err
	}
	t := ui.NewTable("Slug", "Name", "Scenes", "Updated", "ID")
	for _, p := range projects {
		t.Row(p.Slug, p.ProjectName, fmt.Sprint(p.PromptCount), formatTime(p.UpdatedAt), ui.RenderMuted(p.ID))
	}
	return t.Render(w)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
