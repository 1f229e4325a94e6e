package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/aulanet/booking-api/internal/middleware"
	"github.com/aulanet/booking-api/internal/models"
	"github.com/aulanet/booking-api/internal/service"
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

func actorFromContext(c *gin.Context) service.Actor {
	actor := service.Actor{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if claims := claimsFromContext(c); claims != nil {
		actor.UserID = claims.UserID
		actor.Email = claims.Email
	}
	return actor
}
