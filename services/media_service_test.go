package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Firesolami/needles-sub001/models"
)

func TestMediaClaimAndPurge(t *testing.T) {
	db := newTestDB(t)
	svc := NewMediaService(db, zaptest.NewLogger(t), time.Minute)
	ctx := context.Background()
	dir := t.TempDir()

	write := func(name string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
		return path
	}
	keptPath := write("kept.png")
	lostPath := write("lost.png")

	kept, err := svc.Record(ctx, 1, "kept", "image", keptPath, "/static/uploads/kept.png")
	require.NoError(t, err)
	require.NotNil(t, kept.ExpireAt)
	_, err = svc.Record(ctx, 1, "lost", "image", lostPath, "/static/uploads/lost.png")
	require.NoError(t, err)

	// Someone else referencing the upload does not claim it.
	require.NoError(t, svc.Claim(ctx, 2, []string{"lost"}))
	require.NoError(t, svc.Claim(ctx, 1, []string{"kept", "unknown"}))
	require.NoError(t, svc.Claim(ctx, 1, nil))

	n, err := svc.PurgeExpired(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.FileExists(t, keptPath)
	assert.NoFileExists(t, lostPath)

	var remaining []models.UploadedFile
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "kept", remaining[0].StorageID)
	assert.Nil(t, remaining[0].ExpireAt)
}

func TestPurgeExpiredLeavesFreshUploads(t *testing.T) {
	db := newTestDB(t)
	svc := NewMediaService(db, zaptest.NewLogger(t), time.Hour)
	ctx := context.Background()

	_, err := svc.Record(ctx, 1, "fresh", "video", filepath.Join(t.TempDir(), "gone.mp4"), "/static/uploads/gone.mp4")
	require.NoError(t, err)

	n, err := svc.PurgeExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStorageIDs(t *testing.T) {
	v := &PostView{Media: []MediaView{{StorageID: "a"}, {StorageID: "b"}}}
	assert.Equal(t, []string{"a", "b"}, StorageIDs(v))
	assert.Nil(t, StorageIDs(nil))
}
