package jobs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/common"
)

// SQLiteStore persists jobs in a single SQLite table. Results are stored as JSON.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// Busy timeout to avoid SQLITE_BUSY in concurrent access.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, common.SQLiteBusyTimeoutMS)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		file_path TEXT NOT NULL,
		status TEXT NOT NULL,
		result_json TEXT,
		error_message TEXT,
		created_at TEXT NOT NULL,
		started_at TEXT,
		completed_at TEXT
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateJob(job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.ID == "" {
		return errors.New("job.ID is required")
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = StatusPending
	}
	_, err := s.db.Exec(
		`INSERT INTO jobs (id, file_path, status, created_at) VALUES (?, ?, ?, ?)`,
		job.ID, job.FilePath, string(job.Status), formatTime(job.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MarkProcessing(id string, startedAt time.Time) error {
	res, err := s.db.Exec(`UPDATE jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
		string(StatusProcessing), formatTime(startedAt), id, string(StatusPending))
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return s.checkTransition(res, id)
}

func (s *SQLiteStore) SaveResult(id string, result *Result, completedAt time.Time) error {
	var payload *string
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		v := string(b)
		payload = &v
	}
	res, err := s.db.Exec(`UPDATE jobs
		SET result_json = ?, status = ?, error_message = NULL, completed_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		payload, string(StatusCompleted), formatTime(completedAt), id, string(StatusPending), string(StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return s.checkTransition(res, id)
}

func (s *SQLiteStore) SaveError(id string, errMsg string, completedAt time.Time) error {
	res, err := s.db.Exec(`UPDATE jobs
		SET error_message = ?, status = ?, result_json = NULL, completed_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		errMsg, string(StatusFailed), formatTime(completedAt), id, string(StatusPending), string(StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("save error: %w", err)
	}
	return s.checkTransition(res, id)
}

// checkTransition tells a missing row apart from a row in the wrong state.
func (s *SQLiteStore) checkTransition(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var one int
	err = s.db.QueryRow(`SELECT 1 FROM jobs WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup job: %w", err)
	}
	return ErrInvalidTransition
}

func (s *SQLiteStore) GetJob(id string) (*Job, error) {
	row := s.db.QueryRow(`SELECT id, file_path, status, result_json, error_message, created_at, started_at, completed_at
		FROM jobs WHERE id = ?`, id)

	var job Job
	var resultJSON, errMsg, created, started, completed sql.NullString
	var status string

	if err := row.Scan(&job.ID, &job.FilePath, &status, &resultJSON, &errMsg, &created, &started, &completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	job.Status = Status(status)

	if resultJSON.Valid && strings.TrimSpace(resultJSON.String) != "" {
		var r Result
		if err := json.Unmarshal([]byte(resultJSON.String), &r); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		job.Result = &r
	}
	if errMsg.Valid {
		v := errMsg.String
		job.ErrorMessage = &v
	}
	if created.Valid {
		if t, err := time.Parse(time.RFC3339Nano, created.String); err == nil {
			job.CreatedAt = t
		}
	}
	job.StartedAt = parseOptionalTime(started)
	job.CompletedAt = parseOptionalTime(completed)
	return &job, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseOptionalTime(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil
	}
	return &t
}
