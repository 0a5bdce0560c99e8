package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Firesolami/needles-sub001/models"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxTxAttempts = 3

// withTx runs fn in a single transaction. Lock contention failures reported
// by the database roll the attempt back and are retried; when retries run
// out the caller gets ErrConflict.
func withTx(ctx context.Context, db *gorm.DB, log *zap.Logger, op string, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = db.WithContext(ctx).Transaction(fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		log.Warn("transaction contention, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return fmt.Errorf("%w: %s: %v", ErrConflict, op, err)
}

// isRetryable reports deadlocks, lock wait timeouts, serialization failures
// and duplicate-key races lost to a concurrent writer.
func isRetryable(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1213, 1205, 1062:
			return true
		}
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return true
		}
	}
	return false
}

// lockPost loads a post with a row lock held until the transaction ends.
// A missing row yields a nil post and no error.
func lockPost(tx *gorm.DB, id string) (*models.Post, error) {
	var p models.Post
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// bumpCounter applies an atomic delta to one counter column of a post.
func bumpCounter(tx *gorm.DB, postID string, column string, delta int) error {
	res := tx.Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("counter %s on post %s: %d rows affected", column, postID, res.RowsAffected)
	}
	return nil
}
