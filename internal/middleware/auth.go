package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rewards-service/internal/models"
	"rewards-service/internal/services"
	"rewards-service/pkg/common"
	"rewards-service/pkg/token"
)

const (
	actorContextKey  = "actor"
	claimsContextKey = "claims"
)

// Authenticator resolves a session token to the current user.
type Authenticator interface {
	Authenticate(ctx context.Context, tokenStr string) (*models.User, *token.Claims, error)
}

// Auth requires a valid session, read from the cookie or a Bearer header.
// Role and active flag come from the database on every request.
func Auth(auth Authenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c, cookieName)
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, claims, err := auth.Authenticate(c.Request.Context(), tokenString)
		switch {
		case err == nil:
		case errors.Is(err, services.ErrUserInactive):
			abort(c, http.StatusForbidden, services.ErrUserInactive.Error())
			return
		case errors.Is(err, services.ErrUnauthorized):
			abort(c, http.StatusUnauthorized, "unauthorized")
			return
		default:
			_ = c.Error(err)
			abort(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		c.Set(actorContextKey, services.ActorFromUser(user))
		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		if len(roles) == 0 || actor.Is(roles...) {
			c.Next()
			return
		}
		abort(c, http.StatusForbidden, "forbidden")
	}
}

func GetActor(c *gin.Context) (services.Actor, bool) {
	val, ok := c.Get(actorContextKey)
	if !ok {
		return services.Actor{}, false
	}
	actor, ok := val.(services.Actor)
	return actor, ok
}

func GetClaims(c *gin.Context) (*token.Claims, bool) {
	val, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := val.(*token.Claims)
	if !ok || claims == nil {
		return nil, false
	}
	return claims, true
}

func tokenFromRequest(c *gin.Context, cookieName string) string {
	if cookieName != "" {
		if cookieToken, err := c.Cookie(cookieName); err == nil && cookieToken != "" {
			return cookieToken
		}
	}
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, common.NewErrorResponse(message, nil, status))
}
