package middleware

import (
	"net/http"

	"pipeline-crm/internal/session"

	"github.com/gin-gonic/gin"
)

// EntryPoint is where anonymous callers are sent.
const EntryPoint = "/"

// RequireAuth stops the chain unless InjectUser found a principal. The rejected request performs
// nothing and is redirected to the entry point.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if session.CurrentState(c) != session.Authenticated {
			c.Redirect(http.StatusFound, EntryPoint)
			c.Abort()
		}
	}
}
