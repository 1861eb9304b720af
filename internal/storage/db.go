package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"budget-tracker/internal/models"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const entryColumns = "id, user_id, date, description, type, amount, category, created_at"

// DB is the SQLite implementation of Store.
type DB struct {
	conn *sql.DB
}

var _ Store = (*DB)(nil)

// NewDB opens a SQLite database and runs migrations.
// path may be ":memory:" for a private in-process database.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, err
	}

	// Every connection to :memory: is a separate database.
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	if err := migrateSQLite(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn}, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateUser creates a new user with the given email and password hash.
func (db *DB) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	u := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now(),
	}
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		u.ID, u.Email, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE id = ?",
		id,
	)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE email = ?",
		email,
	)
	return scanUser(row)
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// ListEntries returns the user's entries in insertion order.
func (db *DB) ListEntries(ctx context.Context, userID string) ([]models.Entry, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE user_id = ? ORDER BY seq ASC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// CreateEntry inserts e with a freshly generated id and returns the stored row.
func (db *DB) CreateEntry(ctx context.Context, e models.Entry) (*models.Entry, error) {
	e.ID = uuid.NewString()
	e.CreatedAt = now()
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO entries ("+entryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.UserID, e.Date, e.Description, string(e.Type), e.Amount, e.Category, e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return &e, nil
}

// UpdateEntry applies the non-nil fields of patch to the entry with the given
// id if and only if it belongs to userID.
func (db *DB) UpdateEntry(ctx context.Context, userID, id string, patch models.EntryPatch) (*models.Entry, error) {
	date, description, typ, amount, category := patchArgs(patch)
	row := db.conn.QueryRowContext(ctx, `
		UPDATE entries SET
			date = COALESCE(?, date),
			description = COALESCE(?, description),
			type = COALESCE(?, type),
			amount = COALESCE(?, amount),
			category = COALESCE(?, category)
		WHERE id = ? AND user_id = ?
		RETURNING `+entryColumns,
		date, description, typ, amount, category, id, userID,
	)
	return scanEntry(row)
}

// DeleteEntry removes the entry if it belongs to userID.
func (db *DB) DeleteEntry(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM entries WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// now is the creation timestamp at the precision both backends preserve.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, sqliteTime{&u.CreatedAt}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func scanEntry(row scanner) (*models.Entry, error) {
	var (
		e   models.Entry
		typ string
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Date, &e.Description, &typ, &e.Amount, &e.Category, sqliteTime{&e.CreatedAt}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	e.Type = models.EntryType(typ)
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

// sqliteTime scans a timestamp that the driver may hand back either as a
// time.Time or, when the column type is unknown (RETURNING), as text.
type sqliteTime struct {
	t *time.Time
}

var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func (s sqliteTime) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		*s.t = time.Time{}
		return nil
	case time.Time:
		*s.t = x
		return nil
	case []byte:
		return s.parse(string(x))
	case string:
		return s.parse(x)
	default:
		return fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func (s sqliteTime) parse(v string) error {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			*s.t = t
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", v)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
