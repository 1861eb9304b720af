package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"budget-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// StoreTestSuite exercises a Store implementation. newStore returns a store
// with empty tables.
type StoreTestSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
	ctx      context.Context
	alice    *models.User
	bob      *models.User
}

// SetupTest runs before each test
func (suite *StoreTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = suite.newStore(suite.T())

	var err error
	suite.alice, err = suite.store.CreateUser(suite.ctx, "alice@example.com", "hash-a")
	require.NoError(suite.T(), err, "failed to create alice")
	suite.bob, err = suite.store.CreateUser(suite.ctx, "bob@example.com", "hash-b")
	require.NoError(suite.T(), err, "failed to create bob")
}

// TearDownTest runs after each test
func (suite *StoreTestSuite) TearDownTest() {
	if suite.store != nil {
		suite.store.Close()
	}
}

func (suite *StoreTestSuite) entry(userID, desc string, typ models.EntryType, amount float64) models.Entry {
	return models.Entry{
		UserID:      userID,
		Date:        "2024-01-01",
		Description: desc,
		Type:        typ,
		Amount:      amount,
		Category:    models.DefaultCategory,
	}
}

func (suite *StoreTestSuite) TestCreateUserDuplicateEmail() {
	_, err := suite.store.CreateUser(suite.ctx, "alice@example.com", "other")
	assert.ErrorIs(suite.T(), err, ErrDuplicate)
}

func (suite *StoreTestSuite) TestGetUser() {
	byEmail, err := suite.store.GetUserByEmail(suite.ctx, "alice@example.com")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.alice.ID, byEmail.ID)
	assert.Equal(suite.T(), "hash-a", byEmail.PasswordHash)

	byID, err := suite.store.GetUserByID(suite.ctx, suite.bob.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "bob@example.com", byID.Email)

	_, err = suite.store.GetUserByEmail(suite.ctx, "nobody@example.com")
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	count, err := suite.store.UserCount(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, count)
}

func (suite *StoreTestSuite) TestCreateEntry() {
	created, err := suite.store.CreateEntry(suite.ctx, suite.entry(suite.alice.ID, "Coffee", models.Expense, 4.50))
	require.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), created.ID)
	assert.False(suite.T(), created.CreatedAt.IsZero())
	assert.Equal(suite.T(), suite.alice.ID, created.UserID)
}

func (suite *StoreTestSuite) TestListEntriesInsertionOrder() {
	descriptions := []string{"Salary", "Rent", "Coffee", "Bus"}
	for i, d := range descriptions {
		typ := models.Expense
		if i == 0 {
			typ = models.Income
		}
		_, err := suite.store.CreateEntry(suite.ctx, suite.entry(suite.alice.ID, d, typ, float64(i+1)))
		require.NoError(suite.T(), err, "failed to create entry: %s", d)
	}

	entries, err := suite.store.ListEntries(suite.ctx, suite.alice.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), entries, len(descriptions))
	for i, e := range entries {
		assert.Equal(suite.T(), descriptions[i], e.Description)
	}
}

func (suite *StoreTestSuite) TestListEntriesEmpty() {
	entries, err := suite.store.ListEntries(suite.ctx, suite.bob.ID)
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), entries)
	assert.Empty(suite.T(), entries)
}

func (suite *StoreTestSuite) TestEntriesAreScopedToOwner() {
	created, err := suite.store.CreateEntry(suite.ctx, suite.entry(suite.alice.ID, "Private", models.Expense, 10))
	require.NoError(suite.T(), err)

	entries, err := suite.store.ListEntries(suite.ctx, suite.bob.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), entries)

	desc := "Hijacked"
	_, err = suite.store.UpdateEntry(suite.ctx, suite.bob.ID, created.ID, models.EntryPatch{Description: &desc})
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	err = suite.store.DeleteEntry(suite.ctx, suite.bob.ID, created.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	entries, err = suite.store.ListEntries(suite.ctx, suite.alice.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), entries, 1)
	assert.Equal(suite.T(), "Private", entries[0].Description)
}

func (suite *StoreTestSuite) TestUpdateEntryPartial() {
	created, err := suite.store.CreateEntry(suite.ctx, suite.entry(suite.alice.ID, "Lunch", models.Expense, 12))
	require.NoError(suite.T(), err)

	category := "Food"
	updated, err := suite.store.UpdateEntry(suite.ctx, suite.alice.ID, created.ID, models.EntryPatch{
		Amount:   models.NewAmount(15.25),
		Category: &category,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 15.25, updated.Amount)
	assert.Equal(suite.T(), "Food", updated.Category)
	assert.Equal(suite.T(), "Lunch", updated.Description)
	assert.Equal(suite.T(), models.Expense, updated.Type)
	assert.Equal(suite.T(), created.Date, updated.Date)
}

func (suite *StoreTestSuite) TestUpdateEntryEmptyPatch() {
	created, err := suite.store.CreateEntry(suite.ctx, suite.entry(suite.alice.ID, "Book", models.Expense, 20))
	require.NoError(suite.T(), err)

	updated, err := suite.store.UpdateEntry(suite.ctx, suite.alice.ID, created.ID, models.EntryPatch{})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), *created, *updated)
}

func (suite *StoreTestSuite) TestUpdateUnknownEntry() {
	_, err := suite.store.UpdateEntry(suite.ctx, suite.alice.ID, "does-not-exist", models.EntryPatch{})
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *StoreTestSuite) TestDeleteEntryTwice() {
	created, err := suite.store.CreateEntry(suite.ctx, suite.entry(suite.alice.ID, "Gym", models.Expense, 30))
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.store.DeleteEntry(suite.ctx, suite.alice.ID, created.ID))
	assert.ErrorIs(suite.T(), suite.store.DeleteEntry(suite.ctx, suite.alice.ID, created.ID), ErrNotFound)
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, &StoreTestSuite{newStore: func(t *testing.T) Store {
		db, err := NewDB(":memory:")
		require.NoError(t, err, "failed to create test database")
		return db
	}})
}

func TestPostgresStoreSuite(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set, skipping postgres store tests")
	}
	suite.Run(t, &StoreTestSuite{newStore: func(t *testing.T) Store {
		store, err := NewPostgresStore(context.Background(), dsn)
		require.NoError(t, err, "failed to connect to postgres")
		_, err = store.pool.Exec(context.Background(), "TRUNCATE entries, users")
		require.NoError(t, err, "failed to reset tables")
		return store
	}})
}

func TestNewDB_FileReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	_, err = db.CreateUser(context.Background(), "carol@example.com", "hash")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Migrations are idempotent and data survives a reopen.
	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	count, err := db.UserCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mongo", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage driver")
}
