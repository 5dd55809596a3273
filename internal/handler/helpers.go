package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askyt/internal/ai"
	"github.com/xxxsen/askyt/internal/pkg/errcode"
	appErr "github.com/xxxsen/askyt/internal/pkg/errors"
	"github.com/xxxsen/askyt/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	switch {
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "ingestion already in progress")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, "too many requests")
	case errors.Is(err, appErr.ErrNoCaptions):
		response.Error(c, errcode.ErrNoCaptions, "no transcript available for this video")
	case errors.Is(err, appErr.ErrVideoTooLong):
		response.Error(c, errcode.ErrVideoTooLong, "video exceeds the maximum allowed duration")
	case errors.Is(err, ai.ErrUnavailable):
		response.Error(c, errcode.ErrAIUnavailable, "ai provider unavailable")
	default:
		// Internals never leak to the caller.
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
