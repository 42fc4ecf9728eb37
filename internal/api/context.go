package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sitegen/internal/api/middleware"
	"sitegen/internal/database"
)

func userIDFromContext(c *gin.Context) (string, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// pageFromQuery reads ?page and ?limit; missing or malformed values fall back to defaults.
func pageFromQuery(c *gin.Context, defaultLimit, maxLimit int) database.Page {
	number, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return database.NewPage(number, limit, defaultLimit, maxLimit)
}

func pageResponse(key string, items any, total int64, page database.Page) gin.H {
	return gin.H{key: items, "total": total, "page": page.Number, "limit": page.Limit}
}

// uuidParam reads an id path parameter. A malformed id can never match a row,
// so it is answered with 404 "<what> not found" before the store is queried.
func uuidParam(c *gin.Context, name, what string) (string, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		NotFound(c, what+" not found")
		return "", false
	}
	return id.String(), true
}
