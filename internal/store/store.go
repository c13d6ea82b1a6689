package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"quill/internal/cards"
	"quill/internal/config"
)

// Store manages record persistence backed by SQLite.
//
// Exactly one Store may be open per database at a time: Open acquires a lock
// file next to the database, so concurrent CLI passes fail fast instead of
// interleaving writes.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the records database and verifies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "records.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return nil, errors.New("records database is in use by another quill process")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return store, nil
}

// Close releases the database connection and the pass lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Insert persists a new record. The single statement relies on the
// (book_title, author, content) unique constraint, so concurrent or repeated
// ingestion of the same excerpt cannot produce two rows: a duplicate returns
// inserted=false with no error.
func (s *Store) Insert(ctx context.Context, rec Record) (int64, bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO records (
            book_title, author, kind, page,
            location_start, location_end, date_added, content,
            pattern, front, back, imported_at, generated_at, synced
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, NULL, ?, NULL, 0)`,
		rec.BookTitle,
		rec.Author,
		string(rec.Kind),
		nullableInt(rec.Page),
		rec.LocationStart,
		nullableInt(rec.LocationEnd),
		rec.DateAdded.UTC().Format(time.RFC3339Nano),
		nullableString(rec.Content),
		now,
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return 0, false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("last insert id: %w", err)
	}
	return id, true, nil
}

// GetByID fetches a record by identifier, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// All returns every record ordered by book and import time.
func (s *Store) All(ctx context.Context) ([]*Record, error) {
	return s.queryRecords(ctx, ``)
}

// Unprocessed returns records awaiting generation: no pattern yet, and
// content present (there is nothing to generate from otherwise). The optional
// book list narrows the result to the given (title, author) pairs.
func (s *Store) Unprocessed(ctx context.Context, books []BookKey) ([]*Record, error) {
	where := `WHERE pattern IS NULL AND content IS NOT NULL`
	var args []any
	if len(books) > 0 {
		clauses := make([]string, 0, len(books))
		for _, book := range books {
			clauses = append(clauses, `(book_title = ? AND author = ?)`)
			args = append(args, book.Title, book.Author)
		}
		where += ` AND (` + strings.Join(clauses, " OR ") + `)`
	}
	return s.queryRecords(ctx, where, args...)
}

// Generated returns all records the completion service has processed,
// including SKIP-tagged ones.
func (s *Store) Generated(ctx context.Context) ([]*Record, error) {
	return s.queryRecords(ctx, `WHERE pattern IS NOT NULL`)
}

// Synced returns records marked as present in Anki.
func (s *Store) Synced(ctx context.Context) ([]*Record, error) {
	return s.queryRecords(ctx, `WHERE synced = 1`)
}

// Unsynced returns generated records still awaiting a push to Anki. SKIP
// records never sync.
func (s *Store) Unsynced(ctx context.Context) ([]*Record, error) {
	return s.queryRecords(ctx, `WHERE pattern IS NOT NULL AND pattern != ? AND synced = 0`, string(cards.PatternSkip))
}

// Books returns the distinct (title, author) pairs in the store.
func (s *Store) Books(ctx context.Context) ([]BookKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT book_title, author FROM records ORDER BY book_title, author`)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []BookKey
	for rows.Next() {
		var book BookKey
		if err := rows.Scan(&book.Title, &book.Author); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// BooksWithUnprocessed returns books that still have records awaiting
// generation, with their counts.
func (s *Store) BooksWithUnprocessed(ctx context.Context) ([]BookCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT book_title, author, COUNT(*)
         FROM records
         WHERE pattern IS NULL AND content IS NOT NULL
         GROUP BY book_title, author
         ORDER BY book_title, author`)
	if err != nil {
		return nil, fmt.Errorf("query books with unprocessed: %w", err)
	}
	defer rows.Close()

	var books []BookCount
	for rows.Next() {
		var book BookCount
		if err := rows.Scan(&book.Title, &book.Author, &book.Unprocessed); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// RecordsForBook returns every record of one book ordered by location.
func (s *Store) RecordsForBook(ctx context.Context, title, author string) ([]*Record, error) {
	return s.queryRecords(ctx, `WHERE book_title = ? AND author = ? ORDER BY location_start`, title, author)
}

// WriteGenerated stores the completion service's card for a record and stamps
// generated_at. The write is a single statement, so a record is either fully
// generated or untouched.
func (s *Store) WriteGenerated(ctx context.Context, id int64, card cards.Card) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE records SET pattern = ?, front = ?, back = ?, generated_at = ? WHERE id = ?`,
		string(card.Pattern),
		nullableString(card.Front),
		nullableString(card.Back),
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("write generated fields: %w", err)
	}
	return nil
}

// MarkSynced records that the card is confirmed present in Anki.
func (s *Store) MarkSynced(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE records SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// ResetGenerated nulls the generated fields and sync flag for the given
// records so they re-enter the unprocessed pool. An empty id list affects
// zero rows and is not an error.
func (s *Store) ResetGenerated(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE records
        SET pattern = NULL, front = NULL, back = NULL, generated_at = NULL, synced = 0
        WHERE id IN (` + makePlaceholders(len(ids)) + `)`
	res, err := s.db.ExecContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return 0, fmt.Errorf("reset generated fields: %w", err)
	}
	return res.RowsAffected()
}

// ResetAllGenerated resets every generated record. Returns the affected count.
func (s *Store) ResetAllGenerated(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE records
         SET pattern = NULL, front = NULL, back = NULL, generated_at = NULL, synced = 0
         WHERE pattern IS NOT NULL OR synced = 1`)
	if err != nil {
		return 0, fmt.Errorf("reset all generated fields: %w", err)
	}
	return res.RowsAffected()
}

// ResetSynced clears the sync flag for the given records. An empty id list
// affects zero rows and is not an error.
func (s *Store) ResetSynced(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE records SET synced = 0 WHERE id IN (` + makePlaceholders(len(ids)) + `)`
	res, err := s.db.ExecContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return 0, fmt.Errorf("reset synced flags: %w", err)
	}
	return res.RowsAffected()
}

// ResetAllSynced clears the sync flag on every record. Returns the affected count.
func (s *Store) ResetAllSynced(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE records SET synced = 0 WHERE synced = 1`)
	if err != nil {
		return 0, fmt.Errorf("reset all synced flags: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns processing-state counts for status output.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	row := s.db.QueryRowContext(ctx, `SELECT
        COUNT(*),
        SUM(CASE WHEN pattern IS NULL AND content IS NOT NULL THEN 1 ELSE 0 END),
        SUM(CASE WHEN pattern IS NOT NULL AND pattern != ? THEN 1 ELSE 0 END),
        SUM(CASE WHEN pattern = ? THEN 1 ELSE 0 END),
        SUM(CASE WHEN synced = 1 THEN 1 ELSE 0 END)
        FROM records`,
		string(cards.PatternSkip), string(cards.PatternSkip))
	var unprocessed, generated, skipped, synced sql.NullInt64
	if err := row.Scan(&stats.Total, &unprocessed, &generated, &skipped, &synced); err != nil {
		return Stats{}, fmt.Errorf("record stats: %w", err)
	}
	stats.Unprocessed = int(unprocessed.Int64)
	stats.Generated = int(generated.Int64)
	stats.Skipped = int(skipped.Int64)
	stats.Synced = int(synced.Int64)
	return stats, nil
}

func (s *Store) queryRecords(ctx context.Context, where string, args ...any) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records`
	if where != "" {
		query += ` ` + where
	}
	if !strings.Contains(where, "ORDER BY") {
		query += ` ORDER BY book_title, author, imported_at, id`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
