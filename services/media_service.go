package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Firesolami/needles-sub001/models"
)

const purgeBatchSize = 100

// MediaService tracks locally stored uploads. An upload expires unless a
// post claims it before its deadline.
type MediaService struct {
	db  *gorm.DB
	log *zap.Logger
	ttl time.Duration
}

func NewMediaService(db *gorm.DB, logger *zap.Logger, ttl time.Duration) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MediaService{db: db, log: logger, ttl: ttl}
}

// Record stores a freshly written upload with its expiry deadline.
func (s *MediaService) Record(ctx context.Context, userID uint, storageID, mediaType, path, url string) (*models.UploadedFile, error) {
	expireAt := time.Now().Add(s.ttl)
	f := models.UploadedFile{
		StorageID: storageID,
		UserID:    userID,
		Type:      mediaType,
		FilePath:  path,
		URL:       url,
		ExpireAt:  &expireAt,
	}
	if err := s.db.WithContext(ctx).Create(&f).Error; err != nil {
		return nil, fmt.Errorf("record upload: %w", err)
	}
	return &f, nil
}

// Claim clears the expiry of the given uploads so the cleaner keeps them.
// Only uploads owned by userID are claimed; other storage ids are ignored.
func (s *MediaService) Claim(ctx context.Context, userID uint, storageIDs []string) error {
	if len(storageIDs) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&models.UploadedFile{}).
		Where("user_id = ? AND storage_id IN ?", userID, storageIDs).
		Update("expire_at", nil).Error
	if err != nil {
		return fmt.Errorf("claim uploads: %w", err)
	}
	return nil
}

// PurgeExpired removes up to one batch of uploads whose deadline is before
// now, deleting both the file and its record.
func (s *MediaService) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	var items []models.UploadedFile
	err := s.db.WithContext(ctx).
		Where("expire_at IS NOT NULL AND expire_at <= ?", now).
		Limit(purgeBatchSize).
		Find(&items).Error
	if err != nil {
		return 0, fmt.Errorf("query expired uploads: %w", err)
	}
	purged := 0
	for _, it := range items {
		if it.FilePath != "" {
			if err := os.Remove(it.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.log.Warn("remove expired upload", zap.String("path", it.FilePath), zap.Error(err))
			}
		}
		// Remove row regardless of file deletion outcome
		if err := s.db.WithContext(ctx).Delete(&models.UploadedFile{}, it.ID).Error; err != nil {
			s.log.Warn("delete upload record", zap.Uint("id", it.ID), zap.Error(err))
			continue
		}
		purged++
	}
	return purged, nil
}

// StorageIDs collects the storage ids referenced by a post view.
func StorageIDs(v *PostView) []string {
	if v == nil {
		return nil
	}
	ids := make([]string, 0, len(v.Media))
	for _, m := range v.Media {
		ids = append(ids, m.StorageID)
	}
	return ids
}
