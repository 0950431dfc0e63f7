package handlers

import (
	"net/http"

	"pipeline-crm/internal/models"
	"pipeline-crm/internal/session"

	"github.com/gin-gonic/gin"
)

// Index serves GET /. Anonymous callers always get the auth view; unknown views fall back to the
// dashboard.
func (h *Handler) Index(c *gin.Context) {
	if session.CurrentState(c) != session.Authenticated {
		h.render(c, http.StatusOK, ViewAuth, nil)
		return
	}

	ctx := c.Request.Context()
	view := c.DefaultQuery("view", ViewDashboard)
	data := gin.H{}

	switch view {
	case ViewCompanies:
		companies, err := h.crm.ListCompanies(ctx)
		if err != nil {
			h.fail(c, "list companies", err)
			return
		}
		data["companies"] = companies

	case ViewContacts:
		contacts, err := h.crm.ListContacts(ctx)
		if err != nil {
			h.fail(c, "list contacts", err)
			return
		}
		companies, err := h.crm.ListCompanies(ctx)
		if err != nil {
			h.fail(c, "list companies", err)
			return
		}
		data["contacts"] = contacts
		data["companies"] = companies

	case ViewDeals:
		deals, err := h.crm.ListDeals(ctx)
		if err != nil {
			h.fail(c, "list deals", err)
			return
		}
		companies, err := h.crm.ListCompanies(ctx)
		if err != nil {
			h.fail(c, "list companies", err)
			return
		}
		contacts, err := h.crm.ListContacts(ctx)
		if err != nil {
			h.fail(c, "list contacts", err)
			return
		}
		data["deals"] = deals
		data["companies"] = companies
		data["contacts"] = contacts
		data["stages"] = models.Stages

	case ViewActivities:
		activities, err := h.crm.ListActivities(ctx)
		if err != nil {
			h.fail(c, "list activities", err)
			return
		}
		deals, err := h.crm.ListDeals(ctx)
		if err != nil {
			h.fail(c, "list deals", err)
			return
		}
		contacts, err := h.crm.ListContacts(ctx)
		if err != nil {
			h.fail(c, "list contacts", err)
			return
		}
		data["activities"] = activities
		data["deals"] = deals
		data["contacts"] = contacts
		data["activity_types"] = models.ActivityTypes

	default:
		view = ViewDashboard
		counts, err := h.crm.Counts(ctx)
		if err != nil {
			h.fail(c, "count records", err)
			return
		}
		data["counts"] = counts
	}

	h.render(c, http.StatusOK, view, data)
}
