package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Every response uses the same envelope: {success, data?, message?, count?}.
// The dashboard surfaces message verbatim in a dismissible notice.

func Respond(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func RespondList(ctx *gin.Context, items interface{}, count int) {
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   count,
		"data":    items,
	})
}

func RespondError(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

func RespondBadRequest(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusBadRequest, message)
}

// Duplicate unique keys surface as 400, matching the public API contract.
func RespondConflict(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusBadRequest, message)
}

func RespondUnAuthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, message)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, message)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, message)
}
