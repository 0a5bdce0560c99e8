package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Firesolami/needles-sub001/middleware"
	"github.com/Firesolami/needles-sub001/utils"
)

var (
	defaultPageSize = 10
	maxPageSize     = 50
)

// ConfigurePagination sets the listing page size default and ceiling.
func ConfigurePagination(def, limit int) {
	if def > 0 {
		defaultPageSize = def
	}
	if limit > 0 {
		maxPageSize = limit
	}
	if defaultPageSize > maxPageSize {
		defaultPageSize = maxPageSize
	}
}

// parsePagination reads page and count (or page_size). Oversized pages are
// clamped; malformed values fall back to the defaults.
func parsePagination(ctx *gin.Context) (int, int) {
	page := 1
	pageSize := defaultPageSize
	if p, err := strconv.Atoi(strings.TrimSpace(ctx.Query("page"))); err == nil && p > 0 {
		page = p
	}
	sizeStr := ctx.Query("count")
	if sizeStr == "" {
		sizeStr = ctx.Query("page_size")
	}
	if s, err := strconv.Atoi(strings.TrimSpace(sizeStr)); err == nil && s > 0 {
		pageSize = min(s, maxPageSize)
	}
	return page, pageSize
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		return uint(v), v > 0
	case float64:
		return uint(v), v > 0
	default:
		return 0, false
	}
}

// requireUser aborts with 401 when the request is anonymous.
func requireUser(ctx *gin.Context) (uint, bool) {
	id, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return id, ok
}
