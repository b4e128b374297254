package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"twinflow/internal/auth"
	"twinflow/internal/task"
)

const dateLayout = "2006-01-02"

// ErrFlagNotFound is returned by GetFlag for keys that were never set or were deleted.
var ErrFlagNotFound = errors.New("flag not found")

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	done INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS session_flags (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS accounts (
	email TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);`
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	return s.ensureTaskColumns()
}

// ensureTaskColumns adds columns introduced after the first schema version.
func (s *Store) ensureTaskColumns() error {
	required := map[string]string{
		"description": "ALTER TABLE tasks ADD COLUMN description TEXT NOT NULL DEFAULT '';",
		"priority":    "ALTER TABLE tasks ADD COLUMN priority TEXT NOT NULL DEFAULT 'medium';",
		"assignee":    "ALTER TABLE tasks ADD COLUMN assignee TEXT NOT NULL DEFAULT 'Unassigned';",
		"due":         "ALTER TABLE tasks ADD COLUMN due TEXT DEFAULT NULL;",
	}
	existing := map[string]struct{}{}
	rows, err := s.db.Query(`PRAGMA table_info(tasks);`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for col, alter := range required {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := s.db.Exec(alter); err != nil {
			return fmt.Errorf("add column %s: %w", col, err)
		}
	}
	return nil
}

// FetchTasks returns every saved task in the order it was first saved.
func (s *Store) FetchTasks(ctx context.Context) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, description, priority, status, assignee, due, created_at FROM tasks ORDER BY seq;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		var t task.Task
		var priority, status, createdStr string
		var dueStr sql.NullString

		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &priority, &status, &t.Assignee, &dueStr, &createdStr); err != nil {
			return nil, err
		}
		t.Priority = task.Priority(priority)
		t.Status = task.Status(status)
		if dueStr.Valid {
			if parsed, err := time.ParseInLocation(dateLayout, dueStr.String, time.Local); err == nil {
				t.DueDate = parsed
			}
		}
		if created, err := time.Parse(time.RFC3339, createdStr); err == nil {
			t.CreatedAt = created
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// SaveTask inserts t or overwrites the row with the same id. Existing rows keep their position.
func (s *Store) SaveTask(ctx context.Context, t task.Task) error {
	due := sql.NullString{}
	if !t.DueDate.IsZero() {
		due = sql.NullString{String: t.DueDate.Format(dateLayout), Valid: true}
	}
	done := 0
	if t.Completed() {
		done = 1
	}
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO tasks (id, title, description, priority, status, done, assignee, due, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	description = excluded.description,
	priority = excluded.priority,
	status = excluded.status,
	done = excluded.done,
	assignee = excluded.assignee,
	due = excluded.due;`,
		t.ID, t.Title, t.Description, string(t.Priority), string(t.Status), done, t.Assignee, due,
		created.UTC().Format(time.RFC3339))
	return err
}

// GetFlag reads a session flag.
func (s *Store) GetFlag(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session_flags WHERE key = ?;`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrFlagNotFound, key)
	}
	return v, err
}

// SetFlag writes a session flag.
func (s *Store) SetFlag(ctx context.Context, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO session_flags (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`, key, value, now)
	return err
}

// DeleteFlag removes a session flag. Deleting a missing key is not an error.
func (s *Store) DeleteFlag(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_flags WHERE key = ?;`, key)
	return err
}

func (s *Store) CreateAccount(ctx context.Context, a auth.Account) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM accounts WHERE email = ?;`, a.Email).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", auth.ErrEmailTaken, a.Email)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO accounts (email, password_hash, display_name, avatar_url, created_at) VALUES (?, ?, ?, ?, ?);`,
		a.Email, a.PasswordHash, a.DisplayName, a.AvatarURL, a.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) FindAccount(ctx context.Context, email string) (auth.Account, error) {
	var a auth.Account
	var createdStr string
	err := s.db.QueryRowContext(ctx, `SELECT email, password_hash, display_name, avatar_url, created_at FROM accounts WHERE email = ?;`, email).
		Scan(&a.Email, &a.PasswordHash, &a.DisplayName, &a.AvatarURL, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Account{}, fmt.Errorf("%w: %s", auth.ErrNoAccount, email)
	}
	if err != nil {
		return auth.Account{}, err
	}
	if created, err := time.Parse(time.RFC3339, createdStr); err == nil {
		a.CreatedAt = created
	}
	return a, nil
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
