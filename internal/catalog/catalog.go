// Package catalog mirrors project summaries into an embedded SQLite
// database for fast search.
//
// The catalog is a cache like the index: it can always be rebuilt from the
// project directories, and failures writing it are never fatal to the
// store. It lives at .storyreel/catalog.db and is opened in WAL mode so the
// watch and serve commands can read while a CLI command writes.
//
// Workflow:
//  1. The store upserts a row whenever it writes a project record
//  2. Reconcile replaces all rows with the rebuilt summaries
//  3. `storyreel list --search` queries the catalog instead of scanning
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.uber.org/zap"

	"github.com/storyreel/storyreel/internal/schema"
	"github.com/storyreel/storyreel/internal/slug"
)

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB wraps the SQLite connection.
type DB struct {
	conn   *sql.DB
	path   string
	logger *zap.SugaredLogger
}

// Open creates or opens the catalog at path.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	cat, err := catalog.Open(ws.CatalogPath(), logger)
//	if err != nil {
//	    return err
//	}
//	defer cat.Close()
func Open(path string, logger *zap.SugaredLogger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping catalog: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path, logger: logger}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.conn.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		db.logger.Warnw("failed to checkpoint catalog WAL", "path", db.path, "error", err)
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close catalog: %w", err)
	}
	db.conn = nil
	return nil
}

// InitSchema creates the catalog tables. It is idempotent.
func (db *DB) InitSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL,
		project_name TEXT NOT NULL,
		video_generator TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		prompt_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		search_text TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_projects_updated ON projects(updated_at);
	CREATE INDEX IF NOT EXISTS idx_projects_slug ON projects(slug);
	`
	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return db.migrateSearchText(ctx)
}

// migrateSearchText adds and backfills the search_text column on catalogs
// created before it existed.
func (db *DB) migrateSearchText(ctx context.Context) error {
	rows, err := db.conn.QueryContext(ctx, "SELECT name FROM pragma_table_info('projects')")
	if err != nil {
		return fmt.Errorf("failed to inspect catalog schema: %w", err)
	}
	found := false
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to inspect catalog schema: %w", err)
		}
		if name == "search_text" {
			found = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to inspect catalog schema: %w", err)
	}
	if found {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `ALTER TABLE projects ADD COLUMN search_text TEXT NOT NULL DEFAULT ''`); err != nil {
		return fmt.Errorf("failed to add search_text column: %w", err)
	}
	legacy, err := tx.QueryContext(ctx, `SELECT id, slug, project_name, video_generator, notes FROM projects`)
	if err != nil {
		return fmt.Errorf("failed to read projects: %w", err)
	}
	var pending []schema.ProjectSummary
	for legacy.Next() {
		var p schema.ProjectSummary
		if err := legacy.Scan(&p.ID, &p.Slug, &p.ProjectName, &p.VideoGenerator, &p.Notes); err != nil {
			legacy.Close()
			return fmt.Errorf("failed to scan project: %w", err)
		}
		pending = append(pending, p)
	}
	legacy.Close()
	if err := legacy.Err(); err != nil {
		return fmt.Errorf("failed to iterate projects: %w", err)
	}
	for _, p := range pending {
		if _, err := tx.ExecContext(ctx, `UPDATE projects SET search_text = ? WHERE id = ?`, searchText(p), p.ID); err != nil {
			return fmt.Errorf("failed to backfill project %s: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog migration: %w", err)
	}
	return nil
}

// searchText is the folded haystack Search matches against. SQLite's
// lower() only folds ASCII, so folding happens here instead.
func searchText(p schema.ProjectSummary) string {
	return slug.Fold(strings.Join([]string{p.ProjectName, p.Slug, p.Notes, p.VideoGenerator}, "\n"))
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const upsertQuery = `
	INSERT INTO projects (
		id, slug, project_name, video_generator, notes,
		prompt_count, created_at, updated_at, search_text
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		slug = excluded.slug,
		project_name = excluded.project_name,
		video_generator = excluded.video_generator,
		notes = excluded.notes,
		prompt_count = excluded.prompt_count,
		updated_at = excluded.updated_at,
		search_text = excluded.search_text
	`

func upsert(ctx context.Context, ex execer, p schema.ProjectSummary) error {
	if p.ID == "" {
		return fmt.Errorf("invalid project summary: id is required")
	}
	_, err := ex.ExecContext(ctx, upsertQuery,
		p.ID,
		p.Slug,
		p.ProjectName,
		p.VideoGenerator,
		p.Notes,
		p.PromptCount,
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
		searchText(p),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert project %s: %w", p.ID, err)
	}
	return nil
}

// UpsertProject inserts or updates one summary.
func (db *DB) UpsertProject(ctx context.Context, p schema.ProjectSummary) error {
	return upsert(ctx, db.conn, p)
}

// DeleteProject removes a summary. Missing ids are not an error.
func (db *DB) DeleteProject(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}
	return nil
}

// ReplaceAll swaps the catalog contents for projects in one transaction.
func (db *DB) ReplaceAll(ctx context.Context, projects []schema.ProjectSummary) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM projects"); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}
	for _, p := range projects {
		if err := upsert(ctx, tx, p); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}
	return nil
}

// SearchOptions filters Search results. Zero values match everything.
type SearchOptions struct {
	Query string    // substring of name, slug, notes or video generator, ignoring case and accents
	Since time.Time // updated at or after
	Limit int
}

// Search returns matching summaries, most recently updated first.
func (db *DB) Search(ctx context.Context, opts SearchOptions) ([]schema.ProjectSummary, error) {
	query := `
	SELECT id, slug, project_name, video_generator, notes,
	       prompt_count, created_at, updated_at
	FROM projects
	WHERE 1=1`
	var args []any

	if q := strings.TrimSpace(opts.Query); q != "" {
		query += `
	  AND search_text LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(slug.Fold(q))+"%")
	}
	if !opts.Since.IsZero() {
		query += `
	  AND updated_at >= ?`
		args = append(args, formatTime(opts.Since))
	}
	query += `
	ORDER BY updated_at DESC, slug ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}
	defer rows.Close()

	var out []schema.ProjectSummary
	for rows.Next() {
		var (
			p                    schema.ProjectSummary
			createdAt, updatedAt string
		)
		if err := rows.Scan(&p.ID, &p.Slug, &p.ProjectName, &p.VideoGenerator, &p.Notes,
			&p.PromptCount, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return out, nil
}

// Count returns the number of catalogued projects.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return n, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse catalog time %q: %w", s, err)
	}
	return t, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
