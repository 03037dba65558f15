// Package ledger records crawl runs and the pages they emitted in SQLite.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/newsbrief"
	"github.com/pevans/newsbrief/output"
	"github.com/pevans/newsbrief/page"
)

// Fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when a run ID is not in the ledger.
var ErrRunNotFound = errors.New("run not found")

// Store manages the run ledger.
type Store struct {
	db *sql.DB
}

// Run is one crawl of one query.
type Run struct {
	RunID          uuid.UUID
	Kind           string // "search" or "feed"
	StartedAt      time.Time
	FinishedAt     *time.Time
	DateFrom       string
	DateTo         string
	Language       string
	EntityLanguage string
	Outcome        *string
	PagesEmitted   int
	LastError      *string
}

// PageRecord is one emitted page of a run.
type PageRecord struct {
	RunID         uuid.UUID
	Page          int
	RequestedPage int
	StatusCode    int
	Articles      int
	Entities      int
	Categories    int
	EmittedAt     time.Time
}

// NewStore opens (creating if needed) the ledger at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the ledger tables if they don't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		date_from TEXT NOT NULL,
		date_to TEXT NOT NULL,
		language TEXT NOT NULL,
		entity_language TEXT NOT NULL,
		outcome TEXT,
		pages_emitted INTEGER DEFAULT 0,
		last_error TEXT
	);
	CREATE TABLE IF NOT EXISTS pages (
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		page INTEGER NOT NULL,
		requested_page INTEGER NOT NULL,
		status_code INTEGER NOT NULL,
		articles INTEGER NOT NULL,
		entities INTEGER NOT NULL,
		categories INTEGER NOT NULL,
		emitted_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS pages_run_id ON pages(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun records the start of a crawl of q.
func (s *Store) StartRun(kind string, q newsbrief.Query) (*Run, error) {
	q = q.WithDefaults()
	run := &Run{
		RunID:          uuid.New(),
		Kind:           kind,
		StartedAt:      time.Now(),
		DateFrom:       q.DateFrom.Format(newsbrief.DateLayout),
		DateTo:         q.DateTo.Format(newsbrief.DateLayout),
		Language:       q.Language,
		EntityLanguage: q.EntityLanguage,
	}

	query := `
		INSERT INTO runs (
			run_id, kind, started_at, date_from, date_to, language, entity_language
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		run.RunID.String(),
		run.Kind,
		formatTime(&run.StartedAt),
		run.DateFrom,
		run.DateTo,
		run.Language,
		run.EntityLanguage,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	return run, nil
}

// RecordPage records an emitted page.
func (s *Store) RecordPage(rec PageRecord) error {
	query := `
		INSERT INTO pages (
			run_id, page, requested_page, status_code,
			articles, entities, categories, emitted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		rec.RunID.String(),
		rec.Page,
		rec.RequestedPage,
		rec.StatusCode,
		rec.Articles,
		rec.Entities,
		rec.Categories,
		formatTime(&rec.EmittedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}
	return nil
}

// FinishRun records how a run ended. runErr may be nil.
func (s *Store) FinishRun(runID uuid.UUID, outcome newsbrief.Outcome, pagesEmitted int, runErr error) error {
	now := time.Now()
	var lastError *string
	if runErr != nil {
		msg := runErr.Error()
		lastError = &msg
	}

	query := `
		UPDATE runs
		SET finished_at = ?, outcome = ?, pages_emitted = ?, last_error = ?
		WHERE run_id = ?
	`
	res, err := s.db.Exec(query, formatTime(&now), string(outcome), pagesEmitted, lastError, runID.String())
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(runID uuid.UUID) (*Run, error) {
	query := `
		SELECT run_id, kind, started_at, finished_at, date_from, date_to,
		       language, entity_language, outcome, pages_emitted, last_error
		FROM runs
		WHERE run_id = ?
	`
	run, err := scanRun(s.db.QueryRow(query, runID.String()))
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return run, nil
}

// ListRuns lists the most recent runs first. A limit of zero lists all.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	query := `
		SELECT run_id, kind, started_at, finished_at, date_from, date_to,
		       language, entity_language, outcome, pages_emitted, last_error
		FROM runs
		ORDER BY started_at DESC, rowid DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// ListPages lists the pages of a run in emission order.
func (s *Store) ListPages(runID uuid.UUID) ([]PageRecord, error) {
	query := `
		SELECT run_id, page, requested_page, status_code,
		       articles, entities, categories, emitted_at
		FROM pages
		WHERE run_id = ?
		ORDER BY rowid
	`
	rows, err := s.db.Query(query, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var runIDStr, emittedAtStr string
		var rec PageRecord
		err := rows.Scan(
			&runIDStr, &rec.Page, &rec.RequestedPage, &rec.StatusCode,
			&rec.Articles, &rec.Entities, &rec.Categories, &emittedAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		if rec.RunID, err = uuid.Parse(runIDStr); err != nil {
			return nil, fmt.Errorf("invalid run_id: %w", err)
		}
		if rec.EmittedAt, err = time.Parse(timeLayout, emittedAtStr); err != nil {
			return nil, fmt.Errorf("invalid emitted_at: %w", err)
		}
		pages = append(pages, rec)
	}

	return pages, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var runIDStr, kind, startedAtStr, dateFrom, dateTo, language, entityLanguage string
	var finishedAtStr, outcome, lastError sql.NullString
	var pagesEmitted int

	err := row.Scan(
		&runIDStr, &kind, &startedAtStr, &finishedAtStr, &dateFrom, &dateTo,
		&language, &entityLanguage, &outcome, &pagesEmitted, &lastError,
	)
	if err != nil {
		return nil, err
	}

	runID, err := uuid.Parse(runIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid run_id: %w", err)
	}
	startedAt, err := time.Parse(timeLayout, startedAtStr)
	if err != nil {
		return nil, fmt.Errorf("invalid started_at: %w", err)
	}
	finishedAt, err := parseTime(finishedAtStr)
	if err != nil {
		return nil, fmt.Errorf("invalid finished_at: %w", err)
	}

	return &Run{
		RunID:          runID,
		Kind:           kind,
		StartedAt:      startedAt,
		FinishedAt:     finishedAt,
		DateFrom:       dateFrom,
		DateTo:         dateTo,
		Language:       language,
		EntityLanguage: entityLanguage,
		Outcome:        nullString(outcome),
		PagesEmitted:   pagesEmitted,
		LastError:      nullString(lastError),
	}, nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeLayout)
	return &s
}

func parseTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// Sink records every page that the wrapped sink accepted.
type Sink struct {
	next  newsbrief.Sink
	store *Store
	runID uuid.UUID
}

// NewSink wraps next so that pages are recorded under runID.
func NewSink(next newsbrief.Sink, store *Store, runID uuid.UUID) *Sink {
	return &Sink{next: next, store: store, runID: runID}
}

// Emit passes the page on, then records it. A ledger failure is reported as
// a write error.
func (s *Sink) Emit(ctx context.Context, e newsbrief.Emission) error {
	if err := s.next.Emit(ctx, e); err != nil {
		return err
	}

	rec := PageRecord{
		RunID:         s.runID,
		Page:          e.State.CurrentPage,
		RequestedPage: e.RequestedPage,
		StatusCode:    int(e.State.Status),
		Articles:      len(e.Result.Articles),
		Entities:      len(e.Result.Entities),
		Categories:    len(e.Result.Categories),
		EmittedAt:     time.Now(),
	}
	if err := s.store.RecordPage(rec); err != nil {
		return &output.WriteError{Path: "ledger", Err: err}
	}
	return nil
}

// PastLastPages counts the recorded pages of a run flagged past the last
// page.
func PastLastPages(pages []PageRecord) int {
	n := 0
	for _, p := range pages {
		if page.Status(p.StatusCode) == page.StatusPastLast {
			n++
		}
	}
	return n
}
