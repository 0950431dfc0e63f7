package handlers

import (
	"net/http"

	"pipeline-crm/internal/crm"
	"pipeline-crm/internal/identity"
	"pipeline-crm/internal/middleware"
	"pipeline-crm/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// View names accepted by GET /?view=.
const (
	ViewAuth       = "auth"
	ViewDashboard  = "dashboard"
	ViewCompanies  = "companies"
	ViewContacts   = "contacts"
	ViewDeals      = "deals"
	ViewActivities = "activities"
)

type Handler struct {
	users *identity.Service
	crm   *crm.Service
	log   logrus.FieldLogger
}

func New(users *identity.Service, crmService *crm.Service, log logrus.FieldLogger) *Handler {
	return &Handler{users: users, crm: crmService, log: log}
}

// render writes the view model. Every view carries the current user and the pending flash, which is
// consumed here.
func (h *Handler) render(c *gin.Context, status int, view string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}

	flash, err := session.TakeFlash(c)
	if err != nil {
		h.fail(c, "take flash", err)
		return
	}

	data["view"] = view
	data["current_user"] = session.Current(c)
	data["flash"] = flash

	c.JSON(status, data)
}

// fail answers with 500 after logging. Used for anything the user cannot fix.
func (h *Handler) fail(c *gin.Context, what string, err error) {
	entry := h.log.WithError(err).WithField("request_id", c.GetString(middleware.RequestIDKey))
	if u := session.Current(c); u != nil {
		entry = entry.WithField("user_id", u.ID)
	}
	entry.Error(what)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again later."})
}
