package server

import (
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	userdomain "github.com/smallbiznis/journalpay/internal/user/domain"
	"github.com/smallbiznis/journalpay/internal/usercontext"
)

const (
	HeaderUserID     = "X-User-Id"
	contextUserIDKey = "user_id"
)

// RequireUser resolves the caller from the X-User-Id header and stores it on
// the request context. Session handling lives in front of this service.
func (s *Server) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		userID, err := snowflake.ParseString(raw)
		if err != nil || userID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		user, err := s.userSvc.FindByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, userdomain.ErrNotFound) {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			AbortWithError(c, err)
			return
		}

		ctx := usercontext.WithActor(c.Request.Context(), usercontext.Actor{ID: user.ID, Role: user.Role})
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextUserIDKey, user.ID.String())
		c.Next()
	}
}
