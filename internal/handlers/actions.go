package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"pipeline-crm/internal/apperr"
	"pipeline-crm/internal/crm"
	"pipeline-crm/internal/metrics"
	"pipeline-crm/internal/middleware"
	"pipeline-crm/internal/session"
	"pipeline-crm/internal/validation"

	"github.com/gin-gonic/gin"
)

type action struct {
	gated bool
	run   func(h *Handler, c *gin.Context)
}

var actions = map[string]action{
	"login":    {run: (*Handler).login},
	"register": {run: (*Handler).register},
	"logout":   {run: (*Handler).logout},

	"add_company":       {gated: true, run: (*Handler).addCompany},
	"add_contact":       {gated: true, run: (*Handler).addContact},
	"add_deal":          {gated: true, run: (*Handler).addDeal},
	"update_deal_stage": {gated: true, run: (*Handler).updateDealStage},
	"add_activity":      {gated: true, run: (*Handler).addActivity},
}

// gate runs in front of every gated action.
var gate = []gin.HandlerFunc{middleware.RequireAuth()}

// Dispatch serves POST /. The action form field picks the operation; unknown actions go back to the
// entry point.
func (h *Handler) Dispatch(c *gin.Context) {
	name := c.PostForm("action")
	a, ok := actions[name]
	if !ok {
		c.Redirect(http.StatusFound, middleware.EntryPoint)
		return
	}

	if a.gated {
		for _, mw := range gate {
			mw(c)
			if c.IsAborted() {
				metrics.RecordAction(name, metrics.OutcomeDenied)
				return
			}
		}
	}
	a.run(h, c)
}

//
// CRM actions
//

func (h *Handler) addCompany(c *gin.Context) {
	var in crm.CompanyInput
	if !h.bind(c, "add_company", ViewCompanies, &in) {
		return
	}
	_, err := h.crm.AddCompany(c.Request.Context(), in)
	h.finish(c, "add_company", ViewCompanies, "Company created successfully.", err)
}

func (h *Handler) addContact(c *gin.Context) {
	var in crm.ContactInput
	if !h.bind(c, "add_contact", ViewContacts, &in) {
		return
	}
	_, err := h.crm.AddContact(c.Request.Context(), in)
	h.finish(c, "add_contact", ViewContacts, "Contact saved successfully.", err)
}

func (h *Handler) addDeal(c *gin.Context) {
	var in crm.DealInput
	if !h.bind(c, "add_deal", ViewDeals, &in) {
		return
	}
	_, err := h.crm.AddDeal(c.Request.Context(), in)
	h.finish(c, "add_deal", ViewDeals, "Deal created successfully.", err)
}

func (h *Handler) updateDealStage(c *gin.Context) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.PostForm("deal_id")), 10, 64)
	if err != nil || id == 0 {
		h.finish(c, "update_deal_stage", ViewDeals, "", apperr.Validation([]string{"Invalid deal reference."}))
		return
	}
	err = h.crm.UpdateDealStage(c.Request.Context(), uint(id), c.PostForm("stage"))
	h.finish(c, "update_deal_stage", ViewDeals, "Deal stage updated.", err)
}

func (h *Handler) addActivity(c *gin.Context) {
	var in crm.ActivityInput
	if !h.bind(c, "add_activity", ViewActivities, &in) {
		return
	}
	_, err := h.crm.LogActivity(c.Request.Context(), in)
	h.finish(c, "add_activity", ViewActivities, "Activity logged.", err)
}

// bind decodes the form into dst. Field rule failures are left to the service, which reports them
// together with its own checks.
func (h *Handler) bind(c *gin.Context, name, view string, dst any) bool {
	if err := c.ShouldBind(dst); err != nil && !validation.IsFieldError(err) {
		h.finish(c, name, view, "", apperr.Validation([]string{"Invalid form data."}))
		return false
	}
	return true
}

// finish flashes the outcome of an action and sends the user back to the view it came from.
// Errors the user cannot act on end the request with 500.
func (h *Handler) finish(c *gin.Context, name, view, success string, err error) {
	target := "/?view=" + view

	if err == nil {
		metrics.RecordAction(name, metrics.OutcomeSuccess)
		if err := session.SetFlash(c, success, session.SeveritySuccess); err != nil {
			h.fail(c, "set flash", err)
			return
		}
		c.Redirect(http.StatusFound, target)
		return
	}

	if errors.Is(err, apperr.ErrUnauthenticated) {
		metrics.RecordAction(name, metrics.OutcomeDenied)
		c.Redirect(http.StatusFound, middleware.EntryPoint)
		return
	}

	msgs := apperr.UserMessages(err)
	if msgs == nil {
		metrics.RecordAction(name, metrics.OutcomeError)
		h.fail(c, name, err)
		return
	}

	metrics.RecordAction(name, metrics.OutcomeRejected)
	if err := session.SetFlash(c, strings.Join(msgs, " "), session.SeverityError); err != nil {
		h.fail(c, "set flash", err)
		return
	}
	c.Redirect(http.StatusFound, target)
}
