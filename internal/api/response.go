package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sitegen/internal/database"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)               { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string)      { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)       { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)        { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)        { Error(c, http.StatusConflict, msg) }
func TooManyRequests(c *gin.Context, msg string) { Error(c, http.StatusTooManyRequests, msg) }
func Internal(c *gin.Context, msg string)        { Error(c, http.StatusInternalServerError, msg) }

// storeError maps database sentinels to responses. It reports whether err was
// a known sentinel; unknown errors are answered with 500 and false.
func storeError(c *gin.Context, err error, what string) bool {
	switch {
	case errors.Is(err, database.ErrNotFound):
		NotFound(c, what+" not found")
	case errors.Is(err, database.ErrVersionNotFound):
		NotFound(c, "Version not found")
	case errors.Is(err, database.ErrAccessDenied):
		Forbidden(c, "Access denied")
	default:
		Internal(c, "internal error")
		return false
	}
	return true
}
