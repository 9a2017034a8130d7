package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bible-game/common/internal/database"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// a second connection would see a fresh in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.RunMigrations(db, database.DialectSQLite))
	return db
}

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func TestUserRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{now: time.Date(2024, 12, 7, 9, 0, 0, 0, time.UTC)}
	repo := NewUserRepository(setupTestDB(t), database.DialectSQLite).WithClock(clock.Now)

	user := &database.User{Username: "ruth", Email: "ruth@bible.game", DisplayName: "Ruth", Active: true}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)
	assert.True(t, user.CreatedDate.Equal(clock.now))
	assert.True(t, user.LastModified.Equal(clock.now))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ruth", got.Username)
	assert.Equal(t, "Ruth", got.DisplayName)
	assert.True(t, got.Active)
	assert.True(t, got.CreatedDate.Equal(clock.now))

	byName, err := repo.GetByUsername(ctx, "ruth")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
}

func TestUserRepositoryUpdateKeepsCreatedDate(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{now: time.Date(2024, 12, 7, 9, 0, 0, 0, time.UTC)}
	repo := NewUserRepository(setupTestDB(t), database.DialectSQLite).WithClock(clock.Now)

	user := &database.User{Username: "boaz", Email: "boaz@bible.game", Active: true}
	require.NoError(t, repo.Create(ctx, user))
	created := user.CreatedDate

	clock.now = clock.now.Add(time.Hour)
	user.DisplayName = "Boaz of Bethlehem"
	require.NoError(t, repo.Update(ctx, user))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Boaz of Bethlehem", got.DisplayName)
	assert.True(t, got.CreatedDate.Equal(created))
	assert.True(t, got.LastModified.Equal(clock.now))
	assert.True(t, got.LastModified.After(got.CreatedDate))
}

func TestUserRepositoryTouch(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{now: time.Date(2024, 12, 7, 9, 0, 0, 0, time.UTC)}
	repo := NewUserRepository(setupTestDB(t), database.DialectSQLite).WithClock(clock.Now)

	user := &database.User{Username: "naomi", Email: "naomi@bible.game", Active: true}
	require.NoError(t, repo.Create(ctx, user))

	clock.now = clock.now.Add(5 * time.Minute)
	require.NoError(t, repo.Touch(ctx, user.ID))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.LastModified.Equal(clock.now))

	assert.ErrorIs(t, repo.Touch(ctx, 9999), ErrNotFound)
}

func TestUserRepositoryDeactivate(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t), database.DialectSQLite)

	user := &database.User{Username: "orpah", Email: "orpah@bible.game", Active: true}
	require.NoError(t, repo.Create(ctx, user))
	require.NoError(t, repo.Deactivate(ctx, user.ID))

	_, err := repo.GetByUsername(ctx, "orpah")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestUserRepositoryNotFound(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t), database.DialectSQLite)

	_, err := repo.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Update(context.Background(), &database.User{BaseEntity: database.BaseEntity{ID: 42}, Username: "x", Email: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepositoryDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t), database.DialectSQLite)

	require.NoError(t, repo.Create(ctx, &database.User{Username: "ruth", Email: "a@bible.game"}))
	assert.ErrorIs(t, repo.Create(ctx, &database.User{Username: "ruth", Email: "b@bible.game"}), ErrConflict)
}

func TestUserRepositoryUpdateDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t), database.DialectSQLite)

	require.NoError(t, repo.Create(ctx, &database.User{Username: "ruth", Email: "ruth@bible.game"}))
	naomi := &database.User{Username: "naomi", Email: "naomi@bible.game"}
	require.NoError(t, repo.Create(ctx, naomi))

	naomi.Email = "ruth@bible.game"
	assert.ErrorIs(t, repo.Update(ctx, naomi), ErrConflict)
}
