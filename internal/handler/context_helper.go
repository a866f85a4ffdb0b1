package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/atms-platform/atms-api/internal/middleware"
	"github.com/atms-platform/atms-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentUser(c)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func paginationFromQuery(c *gin.Context) (page, pageSize int) {
	return queryInt(c, "page", 1), queryInt(c, "page_size", 20)
}
