package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-forum-api/internal/middleware"
	"github.com/noah-isme/lms-forum-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorEmail returns the authenticated caller's email, or "" when the
// request is anonymous.
func actorEmail(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	return claims.Email
}
