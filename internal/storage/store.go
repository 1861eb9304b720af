package storage

import (
	"context"
	"errors"
	"fmt"

	"budget-tracker/internal/models"
)

var (
	// ErrNotFound is returned when no row matches the lookup. For entries this
	// also covers rows that exist but belong to another user.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the persistence contract shared by the SQLite and PostgreSQL backends.
// Every entry method takes the owner id and filters on it in the same statement.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UserCount(ctx context.Context) (int, error)

	ListEntries(ctx context.Context, userID string) ([]models.Entry, error)
	CreateEntry(ctx context.Context, e models.Entry) (*models.Entry, error)
	UpdateEntry(ctx context.Context, userID, id string, patch models.EntryPatch) (*models.Entry, error)
	DeleteEntry(ctx context.Context, userID, id string) error

	Close() error
}

// Open returns the Store for driver: "sqlite" uses path, "postgres" uses dsn.
func Open(ctx context.Context, driver, path, dsn string) (Store, error) {
	var (
		store Store
		err   error
	)
	switch driver {
	case "sqlite":
		store, err = NewDB(path)
	case "postgres":
		store, err = NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// patchArgs flattens a patch into plain nullable values. A nil pointer becomes
// NULL and COALESCE keeps the stored column.
func patchArgs(p models.EntryPatch) (date, description, typ *string, amount *float64, category *string) {
	if p.Type != nil {
		s := string(*p.Type)
		typ = &s
	}
	if p.Amount != nil {
		f := p.Amount.Float64()
		amount = &f
	}
	return p.Date, p.Description, typ, amount, p.Category
}
