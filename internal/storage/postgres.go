package storage

import (
	"context"
	"errors"
	"fmt"

	"budget-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore runs migrations against dsn and opens a connection pool.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if err := migratePostgres(dsn); err != nil {
		return nil, err
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases every pooled connection.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresStore) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	u := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now(),
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

func (p *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := p.pool.QueryRow(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE id = $1`, id)
	return scanPGUser(row)
}

func (p *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := p.pool.QueryRow(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email = $1`, email)
	return scanPGUser(row)
}

func (p *PostgresStore) UserCount(ctx context.Context) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func (p *PostgresStore) ListEntries(ctx context.Context, userID string) ([]models.Entry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE user_id = $1 ORDER BY seq ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries for user %s: %w", userID, err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		e, err := scanPGEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (p *PostgresStore) CreateEntry(ctx context.Context, e models.Entry) (*models.Entry, error) {
	e.ID = uuid.NewString()
	e.CreatedAt = now()
	_, err := p.pool.Exec(ctx,
		`INSERT INTO entries (`+entryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.UserID, e.Date, e.Description, string(e.Type), e.Amount, e.Category, e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return &e, nil
}

func (p *PostgresStore) UpdateEntry(ctx context.Context, userID, id string, patch models.EntryPatch) (*models.Entry, error) {
	date, description, typ, amount, category := patchArgs(patch)
	row := p.pool.QueryRow(ctx, `
		UPDATE entries SET
			date = COALESCE($1, date),
			description = COALESCE($2, description),
			type = COALESCE($3, type),
			amount = COALESCE($4, amount),
			category = COALESCE($5, category)
		WHERE id = $6 AND user_id = $7
		RETURNING `+entryColumns,
		date, description, typ, amount, category, id, userID,
	)
	return scanPGEntry(row)
}

func (p *PostgresStore) DeleteEntry(ctx context.Context, userID, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPGUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func scanPGEntry(row pgx.Row) (*models.Entry, error) {
	var (
		e   models.Entry
		typ string
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Date, &e.Description, &typ, &e.Amount, &e.Category, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	e.Type = models.EntryType(typ)
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}
