package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Firesolami/needles-sub001/services"
	"github.com/Firesolami/needles-sub001/utils"
)

// respondError writes the envelope for a service error. Expected kinds keep
// their message; anything else is logged, reported and answered generically.
func respondError(ctx *gin.Context, log *zap.Logger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.Fail(ctx, http.StatusBadRequest, 40010, "validation failed", gin.H{"fields": verr.Fields})
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40410, "not found")
	case errors.Is(err, services.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40310, "forbidden")
	case errors.Is(err, services.ErrInvalidTarget):
		utils.Error(ctx, http.StatusUnprocessableEntity, 42210, "target post cannot be used for this operation")
	case errors.Is(err, services.ErrInvalidState):
		utils.Error(ctx, http.StatusConflict, 40910, "post is not in a state that allows this operation")
	case errors.Is(err, services.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40920, "concurrent modification, please retry")
	default:
		log.Error("unexpected error",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.String("request_id", ctx.GetString(utils.RequestIDKey)),
			zap.Error(err),
		)
		utils.CaptureError(ctx, err)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}
