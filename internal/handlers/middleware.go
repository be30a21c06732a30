package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftmarket/go-artisan-marketplace/internal/identity"
)

const actorContextKey = "actor"

// RequireActor extracts the verified identity from the X-User-Id and
// X-User-Role headers (stamped by the API gateway authorizer) and attaches
// it to the request context. Requests without a valid identity get a 401.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-User-Id")
		role := identity.Role(c.GetHeader("X-User-Role"))
		if id == "" || !identity.ValidRole(role) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		c.Set(actorContextKey, identity.Actor{ID: id, Role: role})
		c.Next()
	}
}

// RequireRole gates a route to the given roles. Must run after RequireActor.
func RequireRole(roles ...identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

func actorFrom(c *gin.Context) identity.Actor {
	v, _ := c.Get(actorContextKey)
	actor, _ := v.(identity.Actor)
	return actor
}
