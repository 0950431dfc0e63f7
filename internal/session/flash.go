package session

import (
	"encoding/gob"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Flash is a one-shot notice shown by the next rendered view.
type Flash struct {
	Message  string   `json:"message"`
	Severity Severity `json:"type"`
}

const keyFlash = "flash"

func init() {
	gob.Register(Flash{})
}

// SetFlash replaces any pending notice.
func SetFlash(c *gin.Context, message string, severity Severity) error {
	sess := sessions.Default(c)
	sess.Set(keyFlash, Flash{Message: message, Severity: severity})
	return sess.Save()
}

// TakeFlash returns the pending notice and clears it. nil when there is none.
func TakeFlash(c *gin.Context) (*Flash, error) {
	sess := sessions.Default(c)
	f, ok := sess.Get(keyFlash).(Flash)
	if !ok {
		return nil, nil
	}
	sess.Delete(keyFlash)
	if err := sess.Save(); err != nil {
		return nil, err
	}
	return &f, nil
}
