// Package importer bulk-appends scenes to an open project from JSONL or
// plain-text files.
package importer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/storyreel/storyreel/internal/scenes"
	"github.com/storyreel/storyreel/internal/schema"
	"github.com/storyreel/storyreel/internal/storeerr"
)

// Format selects how an import file is parsed.
type Format string

const (
	FormatAuto  Format = ""
	FormatJSONL Format = "jsonl"
	FormatText  Format = "text"
)

// Draft is one scene read from an import file.
type Draft struct {
	Text        string `json:"text"`
	Translation string `json:"translation,omitempty"`
	Rating      *int   `json:"rating,omitempty"`
}

// Target receives imported scenes. *project.Session satisfies it.
type Target interface {
	AddScene() schema.Scene
	UpdateScene(id, field, value string) (bool, error)
}

// Options contains configuration for an import.
type Options struct {
	Path   string
	Format Format // FormatAuto picks by extension
	DryRun bool   // parse and validate only
}

// Result contains statistics about the import.
type Result struct {
	Parsed   int
	Added    int
	SceneIDs []string
}

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL
	default:
		return FormatText
	}
}

// ParseJSONL reads one JSON object per line. Blank lines are skipped.
func ParseJSONL(r io.Reader) ([]Draft, error) {
	const op = "import jsonl"

	var drafts []Draft
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var d Draft
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			return nil, storeerr.Validation(op, "invalid JSON at line %d: %v", lineNum, err)
		}
		if err := d.validate(); err != nil {
			return nil, storeerr.Validation(op, "line %d: %v", lineNum, err)
		}
		drafts = append(drafts, d)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read JSONL: %w", err)
	}
	return drafts, nil
}

// ParseText reads paragraphs separated by blank lines; each paragraph is
// one scene's text.
func ParseText(r io.Reader) ([]Draft, error) {
	var drafts []Draft
	var para []string
	flush := func() {
		if len(para) > 0 {
			drafts = append(drafts, Draft{Text: strings.Join(para, "\n")})
			para = nil
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		para = append(para, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read text: %w", err)
	}
	flush()
	return drafts, nil
}

func (d Draft) validate() error {
	if strings.TrimSpace(d.Text) == "" && strings.TrimSpace(d.Translation) == "" {
		return fmt.Errorf("scene has neither text nor translation")
	}
	if d.Rating != nil && (*d.Rating < scenes.MinRating || *d.Rating > scenes.MaxRating) {
		return fmt.Errorf("rating %d out of range %d-%d", *d.Rating, scenes.MinRating, scenes.MaxRating)
	}
	return nil
}

// Read opens and parses the file named by opts.
func Read(opts Options) ([]Draft, error) {
	// #nosec G304 - controlled path from CLI
	f, err := os.Open(opts.Path)
	if err != nil {
		return nil, storeerr.IO("import", opts.Path, err)
	}
	defer f.Close()

	format := opts.Format
	if format == FormatAuto {
		format = DetectFormat(opts.Path)
	}
	switch format {
	case FormatJSONL:
		return ParseJSONL(f)
	case FormatText:
		return ParseText(f)
	default:
		return nil, storeerr.Validation("import", "unknown format %q", format)
	}
}

// Import parses the whole file first, then appends one scene per draft.
// A file with any invalid entry adds nothing.
func Import(ctx context.Context, target Target, opts Options) (*Result, error) {
	drafts, err := Read(opts)
	if err != nil {
		return nil, err
	}
	result := &Result{Parsed: len(drafts)}
	if opts.DryRun {
		return result, nil
	}
	return result, Apply(ctx, target, drafts, result)
}

// Apply appends drafts to target, recording progress in result.
func Apply(ctx context.Context, target Target, drafts []Draft, result *Result) error {
	for _, d := range drafts {
		if err := ctx.Err(); err != nil {
			return err
		}
		sc := target.AddScene()
		fields := []struct{ name, value string }{
			{scenes.FieldText, d.Text},
			{scenes.FieldTranslation, d.Translation},
		}
		if d.Rating != nil {
			fields = append(fields, struct{ name, value string }{scenes.FieldRating, strconv.Itoa(*d.Rating)})
		}
		for _, f := range fields {
			if _, err := target.UpdateScene(sc.ID, f.name, f.value); err != nil {
				return fmt.Errorf("scene %d: %w", result.Added+1, err)
			}
		}
		result.Added++
		result.SceneIDs = append(result.SceneIDs, sc.ID)
	}
	return nil
}
