package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Firesolami/needles-sub001/models"
)

type fixture struct {
	db        *gorm.DB
	posts     *PostService
	reactions *ReactionService
	follows   *FollowService
}

// newTestDB opens a private in-memory database. A single connection keeps
// every goroutine on the same database and serializes transactions, and
// SQLite ignores FOR UPDATE, so tests on it never contend for a row lock.
// contention_test.go runs the locking paths against MySQL or PostgreSQL.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	log := zaptest.NewLogger(t)
	return &fixture{
		db:        db,
		posts:     NewPostService(db, log),
		reactions: NewReactionService(db, log),
		follows:   NewFollowService(db, log),
	}
}

func (f *fixture) user(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) reload(t *testing.T, id string) models.Post {
	t.Helper()
	var p models.Post
	require.NoError(t, f.db.Where("id = ?", id).Take(&p).Error)
	return p
}

func (f *fixture) edgeCount(t *testing.T, postID string, kind models.ReactionKind) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Reaction{}).
		Where("post_id = ? AND kind = ?", postID, kind).Count(&n).Error)
	return n
}

func text(s string) CreatePostInput {
	return CreatePostInput{Body: &s}
}
