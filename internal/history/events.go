package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lnharness/internal/harness"
	"lnharness/internal/logging"
)

const observeTimeout = 5 * time.Second

// storedTimeLayout is fixed width so created_at sorts and compares as text.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z"

const eventColumns = "id, launch_id, attempt, kind, pid, exit_code, signal, work_dir, persistent, polls, elapsed_ms, error_message, created_at"

// Record is one stored lifecycle event.
type Record struct {
	ID         int64
	LaunchID   string
	Attempt    int
	Kind       string
	PID        int
	ExitCode   *int
	Signal     *int
	WorkDir    string
	Persistent bool
	Polls      int
	Elapsed    time.Duration
	Error      string
	CreatedAt  time.Time
}

// RecordFromEvent converts a harness event into a row.
func RecordFromEvent(e harness.Event) Record {
	rec := Record{
		LaunchID:   e.LaunchID,
		Attempt:    e.Attempt,
		Kind:       string(e.Kind),
		PID:        e.PID,
		WorkDir:    e.WorkDir,
		Persistent: e.Persistent,
		Polls:      e.Polls,
		Elapsed:    e.Elapsed,
		CreatedAt:  e.Time,
	}
	if e.Status != nil {
		code := e.Status.Code
		rec.ExitCode = &code
		if e.Status.Signaled() {
			sig := int(e.Status.Signal)
			rec.Signal = &sig
		}
	}
	if e.Err != nil {
		rec.Error = e.Err.Error()
	}
	return rec
}

// Status renders the exit status column for display.
func (r Record) Status() string {
	switch {
	case r.Signal != nil:
		return fmt.Sprintf("signal %d", *r.Signal)
	case r.ExitCode != nil:
		return fmt.Sprintf("exit %d", *r.ExitCode)
	default:
		return ""
	}
}

// Observe stores e. Write failures are logged, never returned, so a broken
// ledger cannot fail a launch.
func (s *Store) Observe(e harness.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), observeTimeout)
	defer cancel()
	if _, err := s.Append(ctx, RecordFromEvent(e)); err != nil {
		logging.WarnWithContext(s.logger, "record launch event failed", "history_write_failed",
			logging.String(logging.FieldLaunchID, e.LaunchID),
			logging.String("kind", string(e.Kind)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "launch history is incomplete"),
		)
	}
}

var _ harness.Observer = (*Store)(nil)

// Append inserts rec and returns it with its id assigned.
func (s *Store) Append(ctx context.Context, rec Record) (Record, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	res, err := s.execWithRetry(ctx, `INSERT INTO launch_events (
            launch_id, attempt, kind, pid, exit_code, signal, work_dir,
            persistent, polls, elapsed_ms, error_message, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.LaunchID,
		rec.Attempt,
		rec.Kind,
		rec.PID,
		nullableInt(rec.ExitCode),
		nullableInt(rec.Signal),
		rec.WorkDir,
		boolToInt(rec.Persistent),
		rec.Polls,
		rec.Elapsed.Milliseconds(),
		rec.Error,
		rec.CreatedAt.Format(storedTimeLayout),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert launch event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("read event id: %w", err)
	}
	rec.ID = id
	return rec, nil
}

// Recent returns up to limit events, newest first. limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT ` + eventColumns + ` FROM launch_events ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// Launch returns the events of one launch in the order they happened.
func (s *Store) Launch(ctx context.Context, launchID string) ([]Record, error) {
	return s.query(ctx, `SELECT `+eventColumns+` FROM launch_events WHERE launch_id = ? ORDER BY id`, launchID)
}

// Prune deletes events created before cutoff and reports how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM launch_events WHERE created_at < ?`, cutoff.UTC().Format(storedTimeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune launch events: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query launch events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec        Record
		exitCode   sql.NullInt64
		signal     sql.NullInt64
		persistent int
		elapsedMS  int64
		createdAt  string
	)
	if err := rows.Scan(
		&rec.ID,
		&rec.LaunchID,
		&rec.Attempt,
		&rec.Kind,
		&rec.PID,
		&exitCode,
		&signal,
		&rec.WorkDir,
		&persistent,
		&rec.Polls,
		&elapsedMS,
		&rec.Error,
		&createdAt,
	); err != nil {
		return Record{}, fmt.Errorf("scan launch event: %w", err)
	}
	if exitCode.Valid {
		v := int(exitCode.Int64)
		rec.ExitCode = &v
	}
	if signal.Valid {
		v := int(signal.Int64)
		rec.Signal = &v
	}
	rec.Persistent = persistent != 0
	rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	if t, err := time.Parse(storedTimeLayout, createdAt); err == nil {
		rec.CreatedAt = t
	}
	return rec, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
