package ui

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func TestTableAlignsColumns(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	tbl := NewTable("slug", "name")
	tbl.Row("a", "Alpha")
	tbl.Row("longer-slug", "B")

	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	plain := ansi.ReplaceAllString(buf.String(), "")
	lines := strings.Split(strings.TrimRight(plain, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	want := []string{
		"SLUG         NAME",
		"a            Alpha",
		"longer-slug  B",
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestMessagesWithoutColor(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)
	if got := ansi.ReplaceAllString(Success("saved"), ""); got != IconPass+" saved" {
		t.Errorf("Success() = %q", got)
	}
	if got := ansi.ReplaceAllString(Failure("nope"), ""); got != IconFail+" nope" {
		t.Errorf("Failure() = %q", got)
	}
}
