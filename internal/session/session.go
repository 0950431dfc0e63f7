// Package session is the gate between HTTP sessions and the rest of the application: it tracks
// who is logged in, carries the principal through request contexts and holds the flash notice.
package session

import (
	"context"
	"net/http"

	"pipeline-crm/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	// Name is the cookie name of the session.
	Name = "crm_session"
	// MaxAge is the cookie lifetime in seconds, one week.
	MaxAge = 7 * 24 * 60 * 60

	keyUserID = "user_id"
	// CurrentUserKey holds the materialised *models.User in the gin context.
	CurrentUserKey = "CurrentUser"
)

// CookieOptions are the attributes every session cookie is written with.
func CookieOptions(secure bool) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   MaxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// UserID reads the persisted user id. ok is false for anonymous sessions.
func UserID(c *gin.Context) (uint, bool) {
	id, ok := sessions.Default(c).Get(keyUserID).(uint)
	return id, ok && id > 0
}

// Login moves the session to Authenticated(userID). Anything stored before is dropped.
func Login(c *gin.Context, userID uint) error {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Set(keyUserID, userID)
	return sess.Save()
}

// Reset moves the session to Anonymous but keeps the cookie alive, so a later Login in the same
// request still sticks.
func Reset(c *gin.Context) error {
	sess := sessions.Default(c)
	sess.Clear()
	return sess.Save()
}

// Logout moves the session to Anonymous and expires the cookie.
func Logout(c *gin.Context) error {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Options(sessions.Options{Path: "/", MaxAge: -1})
	return sess.Save()
}

// CurrentState is Authenticated only when a principal was materialised for this request.
func CurrentState(c *gin.Context) State {
	if Current(c) != nil {
		return Authenticated
	}
	return Anonymous
}

// Current returns the principal of this request, or nil.
func Current(c *gin.Context) *models.User {
	if v, ok := c.Get(CurrentUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

type principalKey struct{}

// WithPrincipal attaches the acting user to ctx.
func WithPrincipal(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, principalKey{}, user)
}

// PrincipalFrom returns the acting user attached to ctx, or nil.
func PrincipalFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(principalKey{}).(*models.User)
	return u
}
