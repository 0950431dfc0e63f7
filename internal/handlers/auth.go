package handlers

import (
	"fmt"
	"net/http"

	"pipeline-crm/internal/apperr"
	"pipeline-crm/internal/identity"
	"pipeline-crm/internal/metrics"
	"pipeline-crm/internal/session"
	"pipeline-crm/internal/validation"

	"github.com/gin-gonic/gin"
)

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, ViewAuth, gin.H{"errors": []string{"Invalid form data."}})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		h.fail(c, "authenticate", err)
		return
	}
	metrics.RecordLogin(user != nil)
	if user == nil {
		h.render(c, http.StatusBadRequest, ViewAuth, gin.H{"errors": []string{"Invalid username or password."}})
		return
	}

	if err := session.Login(c, user.ID); err != nil {
		h.fail(c, "save session", err)
		return
	}
	if err := session.SetFlash(c, fmt.Sprintf("Welcome back, %s!", user.DisplayName()), session.SeveritySuccess); err != nil {
		h.fail(c, "set flash", err)
		return
	}

	h.log.WithField("user_id", user.ID).Info("user logged in")
	c.Redirect(http.StatusFound, "/?view="+ViewDashboard)
}

func (h *Handler) register(c *gin.Context) {
	var in identity.RegisterInput
	if err := c.ShouldBind(&in); err != nil && !validation.IsFieldError(err) {
		h.render(c, http.StatusBadRequest, ViewAuth, gin.H{"errors": []string{"Invalid form data."}})
		return
	}

	if err := h.users.Register(c.Request.Context(), in); err != nil {
		msgs := apperr.UserMessages(err)
		if msgs == nil {
			metrics.RecordAction("register", metrics.OutcomeError)
			h.fail(c, "register user", err)
			return
		}
		metrics.RecordAction("register", metrics.OutcomeRejected)
		h.render(c, http.StatusBadRequest, ViewAuth, gin.H{"errors": msgs})
		return
	}

	metrics.RecordAction("register", metrics.OutcomeSuccess)
	if err := session.SetFlash(c, "Account created. You can now log in.", session.SeveritySuccess); err != nil {
		h.fail(c, "set flash", err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) logout(c *gin.Context) {
	if u := session.Current(c); u != nil {
		h.log.WithField("user_id", u.ID).Info("user logged out")
	}
	if err := session.Logout(c); err != nil {
		h.fail(c, "clear session", err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}
