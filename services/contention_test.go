package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Firesolami/needles-sub001/models"
)

// openServerDB connects to the database named by TEST_DB_DRIVER
// (mysql|postgres) and TEST_DB_DSN, skipping the test when unset.
func openServerDB(t *testing.T) *gorm.DB {
	t.Helper()
	driver, dsn := os.Getenv("TEST_DB_DRIVER"), os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	var dialector gorm.Dialector
	switch driver {
	case "mysql", "":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		t.Fatalf("unsupported TEST_DB_DRIVER %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(16)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func TestContendedCountersOnServerDatabase(t *testing.T) {
	db := openServerDB(t)
	log := zaptest.NewLogger(t)
	posts := NewPostService(db, log)
	reactions := NewReactionService(db, log)
	ctx := context.Background()

	run := uuid.NewString()[:8]
	const n = 12
	users := make([]uint, n)
	for i := range users {
		u := models.User{Username: fmt.Sprintf("contend-%s-%d", run, i)}
		require.NoError(t, db.Create(&u).Error)
		users[i] = u.ID
	}
	root, err := posts.CreateOriginal(ctx, users[0], text("contended"))
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Where("post_id = ?", root.ID).Delete(&models.Reaction{})
		db.Where("id = ? OR parent_id = ?", root.ID, root.ID).Delete(&models.Post{})
		db.Unscoped().Where("id IN ?", users).Delete(&models.User{})
	})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		replies   int64
		conflicts int
	)
	record := func(err error, reply bool) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			if reply {
				replies++
			}
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	for i, id := range users {
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func(id uint, like bool) {
				defer wg.Done()
				var err error
				if like {
					_, err = reactions.ToggleLike(ctx, id, root.ID)
				} else {
					_, err = reactions.ToggleDislike(ctx, id, root.ID)
				}
				record(err, false)
			}(id, (i+j)%3 != 0)
		}
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := posts.CreateReply(ctx, id, root.ID, text("reply"))
			record(err, true)
		}(id)
	}
	wg.Wait()
	t.Logf("conflicts after retries: %d", conflicts)

	var got models.Post
	require.NoError(t, db.Where("id = ?", root.ID).Take(&got).Error)
	var likes, dislikes, children int64
	require.NoError(t, db.Model(&models.Reaction{}).
		Where("post_id = ? AND kind = ?", root.ID, models.ReactionLike).Count(&likes).Error)
	require.NoError(t, db.Model(&models.Reaction{}).
		Where("post_id = ? AND kind = ?", root.ID, models.ReactionDislike).Count(&dislikes).Error)
	require.NoError(t, db.Model(&models.Post{}).
		Where("parent_id = ? AND kind = ?", root.ID, models.PostKindReply).Count(&children).Error)

	assert.Equal(t, likes, got.LikesCount)
	assert.Equal(t, dislikes, got.DislikesCount)
	assert.Equal(t, children, got.CommentsCount)
	assert.Equal(t, replies, children)
}
