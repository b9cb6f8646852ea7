package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aedi/aedi/middleware"
	"github.com/aedi/aedi/services"
	"github.com/aedi/aedi/utils"
)

// respondError maps a service error to its HTTP status and application code.
// Unexpected failures are logged and answered with a generic message.
func respondError(ctx *gin.Context, err error, op string) {
	var (
		status int
		code   int
	)
	switch services.KindOf(err) {
	case services.KindValidation:
		status, code = http.StatusBadRequest, 40000
	case services.KindConflict:
		status, code = http.StatusBadRequest, 40900
	case services.KindUnauthenticated:
		status, code = http.StatusUnauthorized, 40100
	case services.KindForbidden:
		status, code = http.StatusForbidden, 40300
	case services.KindNotFound:
		status, code = http.StatusNotFound, 40400
	default:
		utils.Logger.Error("request failed",
			zap.String("op", op),
			zap.String("request_id", ctx.GetString(utils.RequestIDKey)),
			zap.Uint("user_id", middleware.CurrentUserID(ctx)),
			zap.Error(err),
		)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "Internal server error")
		return
	}
	var se *services.Error
	msg := err.Error()
	if errors.As(err, &se) {
		msg = se.Message
	}
	utils.Error(ctx, status, code, msg)
}

// parseID reads a positive numeric path parameter.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// serveCached answers from the response cache when key is present.
func serveCached(ctx *gin.Context, key string) bool {
	if b, ok := utils.CacheGetBytes(key); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return true
	}
	return false
}

// successCached writes a success envelope and stores it under key.
func successCached(ctx *gin.Context, key string, data interface{}) {
	utils.CacheSetJSON(key, utils.JSONResponse{Code: 0, Message: "success", Data: data})
	utils.Success(ctx, data)
}

// invalidateReadCaches drops cached feeds and profiles after any write that
// changes what they show.
func invalidateReadCaches() {
	utils.InvalidateByPrefix(utils.CachePostsPrefix, utils.CacheProfilePrefix)
}
