package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/journalpay/internal/authorization"
	"github.com/smallbiznis/journalpay/internal/usercontext"
)

func (s *Server) authorizeAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeActionWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeActionWithContext(c *gin.Context, object string, action string) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return ErrUnauthorized
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(c.Request.Context(), actor.Role, strings.TrimSpace(object), strings.TrimSpace(action))
}

func actorFromContext(c *gin.Context) (usercontext.Actor, bool) {
	if c == nil || c.Request == nil {
		return usercontext.Actor{}, false
	}
	return usercontext.ActorFromContext(c.Request.Context())
}

// canView lets the owner of a resource and the staff roles read it.
func canView(actor usercontext.Actor, owners ...*snowflake.ID) bool {
	switch actor.Role {
	case authorization.RoleAdmin, authorization.RoleAccountant:
		return true
	}
	for _, owner := range owners {
		if owner != nil && *owner == actor.ID {
			return true
		}
	}
	return false
}
