package middleware

import (
	"context"
	"net/http"

	"pipeline-crm/internal/models"
	"pipeline-crm/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserLookup loads the user behind a session id; nil, nil means the user is gone.
type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// InjectUser materialises the principal once per request. It is put in the gin context for views
// and in the request context for operations. Sessions pointing at a missing user are reset.
func InjectUser(users UserLookup, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := session.UserID(c)
		if !ok {
			return
		}

		user, err := users.GetByID(c.Request.Context(), uid)
		if err != nil {
			log.WithError(err).WithField("user_id", uid).Error("load session user")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if user == nil {
			log.WithField("user_id", uid).Warn("session user no longer exists, resetting session")
			if err := session.Reset(c); err != nil {
				log.WithError(err).Warn("reset session")
			}
			return
		}

		c.Set(session.CurrentUserKey, user)
		c.Request = c.Request.WithContext(session.WithPrincipal(c.Request.Context(), user))
	}
}
