package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"rommate/internal/config"
	"rommate/internal/scan"
	"rommate/internal/services"
	"rommate/internal/verify"
)

// ErrAmbiguousID reports a scan ID prefix matching more than one scan.
var ErrAmbiguousID = errors.New("ambiguous scan id")

// Store manages scan history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database under the configured
// state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens the database at dbPath, creating it when missing.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	// Pragmas ride on the DSN so every pooled connection gets them.
	pragmas := []string{
		"journal_mode(WAL)",
		"foreign_keys(1)",
		"busy_timeout(5000)",
	}
	dsn := "file:" + dbPath + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect sqlite db: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin records a new running scan of root and returns its ID.
func (s *Store) Begin(ctx context.Context, root string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, root, status, started_at) VALUES (?, ?, ?, ?)`,
		id, root, string(StateRunning), formatTime(time.Now()),
	)
	if err != nil {
		return "", fmt.Errorf("insert scan: %w", err)
	}
	return id, nil
}

// Record stores the result at position seq of scan id.
func (s *Store) Record(ctx context.Context, id string, seq int, result verify.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (scan_id, seq, path, status, confidence, game, message, result_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, seq, result.Path, string(result.Status), result.Confidence,
		nullableString(result.Game), nullableString(result.Message), string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert result %d: %w", seq, err)
	}
	return nil
}

// Finish stores the aggregate totals. runErr, when set, marks the scan
// failed; a canceled aggregate is recorded as canceled.
func (s *Store) Finish(ctx context.Context, id string, agg *scan.Aggregate, runErr error) error {
	state := StateCompleted
	var message string
	switch {
	case runErr != nil:
		state = StateFailed
		message = runErr.Error()
	case agg != nil && agg.Canceled:
		state = StateCanceled
	}
	if agg == nil {
		agg = &scan.Aggregate{}
	}
	counts := make(map[string]int, len(agg.Counts))
	for status, n := range agg.Counts {
		counts[string(status)] = n
	}
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}
	finished := agg.Finished
	if finished.IsZero() {
		finished = time.Now()
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET status = ?, finished_at = ?, candidates = ?, excluded = ?,
            processed = ?, verified = ?, attention = ?, failed = ?, counts_json = ?, error_message = ?
         WHERE id = ?`,
		string(state), formatTime(finished), agg.Candidates, len(agg.Excluded),
		agg.Processed(), agg.Verified, agg.Attention, agg.Failed, string(countsJSON),
		nullableString(message), id,
	)
	if err != nil {
		return fmt.Errorf("update scan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "history", "finish", id, nil)
	}
	return nil
}

const scanColumns = "id, root, status, started_at, finished_at, candidates, excluded, processed, verified, attention, failed, counts_json, error_message"

// List returns the most recent scans first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Scan, error) {
	query := "SELECT " + scanColumns + " FROM scans ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var scans []Scan
	for rows.Next() {
		sc, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, sc)
	}
	return scans, rows.Err()
}

// Get resolves a scan by full ID or unique ID prefix.
func (s *Store) Get(ctx context.Context, idOrPrefix string) (Scan, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return Scan{}, services.Wrap(services.ErrValidation, "history", "get", "scan id required", nil)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+scanColumns+" FROM scans WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2",
		idOrPrefix, escapeLike(idOrPrefix)+"%",
	)
	if err != nil {
		return Scan{}, fmt.Errorf("get scan: %w", err)
	}
	defer rows.Close()

	var found []Scan
	for rows.Next() {
		sc, err := scanRow(rows)
		if err != nil {
			return Scan{}, err
		}
		if sc.ID == idOrPrefix {
			return sc, nil
		}
		found = append(found, sc)
	}
	if err := rows.Err(); err != nil {
		return Scan{}, err
	}
	switch len(found) {
	case 0:
		return Scan{}, services.Wrap(services.ErrNotFound, "history", "get", idOrPrefix, nil)
	case 1:
		return found[0], nil
	default:
		return Scan{}, fmt.Errorf("%w: %s", ErrAmbiguousID, idOrPrefix)
	}
}

// Results returns the recorded results of scan id in scan order.
func (s *Store) Results(ctx context.Context, id string) ([]verify.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT result_json FROM results WHERE scan_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []verify.Result
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		var r verify.Result
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete removes a scan and its results.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM scans WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete scan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "history", "delete", id, nil)
	}
	return nil
}

func scanRow(scanner interface{ Scan(dest ...any) error }) (Scan, error) {
	var (
		sc          Scan
		state       string
		startedRaw  string
		finishedRaw sql.NullString
		countsRaw   sql.NullString
		errorRaw    sql.NullString
	)
	if err := scanner.Scan(
		&sc.ID, &sc.Root, &state, &startedRaw, &finishedRaw,
		&sc.Candidates, &sc.Excluded, &sc.Processed,
		&sc.Verified, &sc.Attention, &sc.Failed,
		&countsRaw, &errorRaw,
	); err != nil {
		return Scan{}, fmt.Errorf("scan history row: %w", err)
	}
	sc.State = State(state)
	sc.Error = errorRaw.String
	if t, err := time.Parse(timeLayout, startedRaw); err == nil {
		sc.StartedAt = t
	}
	if finishedRaw.Valid {
		if t, err := time.Parse(timeLayout, finishedRaw.String); err == nil {
			sc.FinishedAt = &t
		}
	}
	if countsRaw.Valid && countsRaw.String != "" {
		var counts map[string]int
		if err := json.Unmarshal([]byte(countsRaw.String), &counts); err == nil {
			sc.Counts = make(map[verify.Status]int, len(counts))
			for k, v := range counts {
				sc.Counts[verify.Status(k)] = v
			}
		}
	}
	return sc, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// escapeLike drops LIKE wildcards; scan IDs never contain them.
func escapeLike(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}
