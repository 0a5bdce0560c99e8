package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/Firesolami/needles-sub001/models"
)

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&mysql.MySQLError{Number: 1213}))
	assert.True(t, isRetryable(&mysql.MySQLError{Number: 1205}))
	assert.True(t, isRetryable(fmt.Errorf("wrapped: %w", &mysql.MySQLError{Number: 1062})))
	assert.False(t, isRetryable(&mysql.MySQLError{Number: 1146}))

	assert.True(t, isRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, isRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, isRetryable(&pgconn.PgError{Code: "42P01"}))

	assert.True(t, isRetryable(gorm.ErrDuplicatedKey))
	assert.False(t, isRetryable(ErrNotFound))
	assert.False(t, isRetryable(errors.New("boom")))
}

func TestWithTxRetriesThenConflicts(t *testing.T) {
	db := newTestDB(t)
	log := zaptest.NewLogger(t)

	attempts := 0
	err := withTx(context.Background(), db, log, "always_deadlocks", func(tx *gorm.DB) error {
		attempts++
		return &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, maxTxAttempts, attempts)

	attempts = 0
	err = withTx(context.Background(), db, log, "second_try", func(tx *gorm.DB) error {
		attempts++
		if attempts == 1 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	attempts = 0
	err = withTx(context.Background(), db, log, "not_retryable", func(tx *gorm.DB) error {
		attempts++
		return ErrForbidden
	})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 1, attempts)
}

func TestWithTxRollsBack(t *testing.T) {
	db := newTestDB(t)
	u := models.User{Username: "alice"}
	require.NoError(t, db.Create(&u).Error)
	body := "hello"
	p := models.Post{UserID: u.ID, Kind: models.PostKindOriginal, Status: models.PostStatusPublished, Body: &body}
	require.NoError(t, db.Omit("User", "Parent").Create(&p).Error)

	err := withTx(context.Background(), db, zaptest.NewLogger(t), "rollback", func(tx *gorm.DB) error {
		if err := bumpCounter(tx, p.ID, "likes_count", 1); err != nil {
			return err
		}
		return ErrInvalidState
	})
	assert.ErrorIs(t, err, ErrInvalidState)

	var got models.Post
	require.NoError(t, db.Where("id = ?", p.ID).Take(&got).Error)
	assert.Zero(t, got.LikesCount)
}

func TestBumpCounterMissingRow(t *testing.T) {
	db := newTestDB(t)
	err := bumpCounter(db, "missing", "likes_count", 1)
	assert.Error(t, err)
}
