package controllers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Firesolami/needles-sub001/services"
	"github.com/Firesolami/needles-sub001/utils"
)

// MediaController stores uploads locally and hands back the descriptor a
// post creation expects.
type MediaController struct {
	media    *services.MediaService
	dir      string
	urlBase  string
	maxBytes int64
	log      *zap.Logger
}

// NewMediaController stores files under dir and serves them from urlBase.
func NewMediaController(media *services.MediaService, dir, urlBase string, maxSizeMB int, logger *zap.Logger) *MediaController {
	if maxSizeMB <= 0 {
		maxSizeMB = 50
	}
	return &MediaController{
		media:    media,
		dir:      dir,
		urlBase:  strings.TrimRight(urlBase, "/"),
		maxBytes: int64(maxSizeMB) << 20,
		log:      logger,
	}
}

// Upload accepts one multipart file ("file") of audio, image or video type.
func (m *MediaController) Upload(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no file uploaded")
		return
	}
	defer file.Close()

	if header.Size > m.maxBytes {
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, fmt.Sprintf("file size exceeds %dMB", m.maxBytes>>20))
		return
	}

	mt, err := mimetype.DetectReader(file)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "unreadable file")
		return
	}
	kind := mediaKind(mt)
	if kind == "" {
		utils.Error(ctx, http.StatusUnsupportedMediaType, 41501, "only audio, image and video files are accepted")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "unreadable file")
		return
	}

	storageID := uuid.NewString()
	datePath := time.Now().Format("2006/01/02")
	name := storageID + mt.Extension()
	dstDir := filepath.Join(m.dir, filepath.FromSlash(datePath))
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		m.fail(ctx, 50030, "failed to create upload directory", err)
		return
	}
	dstPath := filepath.Join(dstDir, name)

	written, err := m.save(dstPath, file)
	if err != nil {
		m.fail(ctx, 50031, "failed to save file", err)
		return
	}
	if written > m.maxBytes {
		_ = os.Remove(dstPath)
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, fmt.Sprintf("file size exceeds %dMB", m.maxBytes>>20))
		return
	}

	link := m.urlBase + "/" + path.Join(datePath, name)
	absPath, _ := filepath.Abs(dstPath)
	if _, err := m.media.Record(ctx.Request.Context(), userID, storageID, kind, absPath, link); err != nil {
		_ = os.Remove(dstPath)
		m.fail(ctx, 50032, "failed to record upload", err)
		return
	}

	utils.Created(ctx, services.MediaInput{Link: link, Type: kind, StorageID: storageID})
}

// save copies at most maxBytes+1 bytes so oversize uploads are detected
// without buffering them.
func (m *MediaController) save(dstPath string, src io.Reader) (int64, error) {
	out, err := os.Create(dstPath)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(out, &io.LimitedReader{R: src, N: m.maxBytes + 1})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dstPath)
		return 0, err
	}
	return written, nil
}

func (m *MediaController) fail(ctx *gin.Context, code int, msg string, err error) {
	m.log.Error(msg, zap.Error(err))
	utils.CaptureError(ctx, err)
	utils.Error(ctx, http.StatusInternalServerError, code, msg)
}

// mediaKind maps a detected type to audio, image or video. Anything else
// yields "".
func mediaKind(mt *mimetype.MIME) string {
	for ; mt != nil; mt = mt.Parent() {
		top, _, _ := strings.Cut(mt.String(), "/")
		switch top {
		case "audio", "image", "video":
			return top
		}
	}
	return ""
}
