package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"card-validator/pkg/models"
	"card-validator/pkg/services"
	"card-validator/pkg/views"
)

// Handlers contains all HTTP handlers for the card form
type Handlers struct {
	store             *views.Store
	submissionService services.CardSubmissionService
	log               *logrus.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(store *views.Store, submissionService services.CardSubmissionService, log *logrus.Logger) *Handlers {
	return &Handlers{
		store:             store,
		submissionService: submissionService,
		log:               log,
	}
}

// HealthCheck handler for monitoring
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ShowForm opens a fresh view and renders the empty form. Reloading the page
// always starts over.
func (h *Handlers) ShowForm(c *gin.Context) {
	view := h.store.Open()
	h.log.WithField("view_id", view.ID).Debug("Opened form view")

	c.HTML(http.StatusOK, "index.html", newPageData(view.ID, view.Form, nil))
}

// UpdateFields records changed field values and reports the resulting
// error state of every field
func (h *Handlers) UpdateFields(c *gin.Context) {
	view, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	for _, field := range models.Fields {
		if value, ok := c.GetPostForm(field); ok {
			view.Form.Set(field, value)
		}
	}

	invalid := make(map[string]bool, len(models.Fields))
	for _, field := range models.Fields {
		invalid[field] = view.Form.Invalid(field)
	}

	c.JSON(http.StatusOK, gin.H{
		"errors":  view.Form.Errors(),
		"invalid": invalid,
	})
}

// SubmitForm applies the posted values, submits them and renders the page
// with the outcome
func (h *Handlers) SubmitForm(c *gin.Context) {
	var values models.FormValues
	if err := c.ShouldBind(&values); err != nil {
		h.log.WithError(err).Warn("Error binding form")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form data"})
		return
	}

	view, err := h.store.Get(c.Param("id"))
	if err != nil {
		view = h.store.Open()
		h.log.WithError(err).WithFields(logrus.Fields{
			"stale_view_id": c.Param("id"),
			"view_id":       view.ID,
		}).Info("Submission for unknown view, opened a new one")
	}

	view.Form.SetAll(values)
	result := h.submissionService.Submit(c.Request.Context(), view)

	status := http.StatusOK
	switch result.Outcome {
	case services.OutcomeBlocked:
		status = http.StatusUnprocessableEntity
	case services.OutcomeBusy:
		status = http.StatusConflict
	}

	c.HTML(status, "index.html", newPageData(view.ID, view.Form, result.Notification))
}
