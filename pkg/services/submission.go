package services

import (
	"context"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"card-validator/pkg/clients/cardapi"
	"card-validator/pkg/metrics"
	"card-validator/pkg/models"
	"card-validator/pkg/utils"
	"card-validator/pkg/views"
)

// Outcome is how a submission attempt ended
type Outcome string

const (
	// OutcomeBlocked means a required field was empty and nothing was sent
	OutcomeBlocked Outcome = "blocked"
	// OutcomeBusy means another submission for the same view was in flight
	OutcomeBusy     Outcome = "busy"
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
)

// Result describes a finished submission attempt
type Result struct {
	Outcome      Outcome
	Errors       models.ValidationErrors
	Notification *models.Notification
	WrongInput   models.WrongInput
}

// CardSubmissionService defines the interface for submitting the card form
type CardSubmissionService interface {
	Submit(ctx context.Context, view *views.View) Result
}

type cardSubmissionServiceImpl struct {
	client         cardapi.Client
	policy         *bluemonday.Policy
	fingerprintKey []byte
	log            *logrus.Logger
}

// Option configures the submission service
type Option func(*cardSubmissionServiceImpl)

// WithFingerprintKey sets the key used to fingerprint card numbers in logs
func WithFingerprintKey(key []byte) Option {
	return func(s *cardSubmissionServiceImpl) {
		s.fingerprintKey = key
	}
}

// NewCardSubmissionService creates a new submission service. Without
// WithFingerprintKey a random per-process key is used.
func NewCardSubmissionService(client cardapi.Client, log *logrus.Logger, opts ...Option) (CardSubmissionService, error) {
	s := &cardSubmissionServiceImpl{
		client: client,
		policy: bluemonday.StrictPolicy(),
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.fingerprintKey) == 0 {
		key, err := utils.NewFingerprintKey()
		if err != nil {
			return nil, err
		}
		s.fingerprintKey = key
	}

	return s, nil
}

// Submit validates the view's form and, when every required field is filled,
// sends exactly one request to the card API.
func (s *cardSubmissionServiceImpl) Submit(ctx context.Context, view *views.View) Result {
	entry := s.log.WithField("view_id", view.ID)

	if !view.BeginSubmit() {
		entry.Warn("Submission refused, another one is in flight")
		metrics.RecordSubmission(string(OutcomeBusy))
		return Result{Outcome: OutcomeBusy}
	}
	defer view.EndSubmit()

	values, errs := view.Form.Snapshot()
	if errs.Any() {
		entry.WithField("fields", violated(errs)).Debug("Submission blocked by required fields")
		metrics.RecordSubmission(string(OutcomeBlocked))
		return Result{Outcome: OutcomeBlocked, Errors: errs}
	}

	view.Form.ClearFailed()
	entry = entry.WithField("card_fingerprint", utils.Fingerprint(s.fingerprintKey, values.CardNumber))

	start := time.Now()
	resp, err := s.client.ValidateCard(ctx, BuildRequest(values))
	metrics.RecordBackendCall(time.Since(start))

	if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		view.Form.ClearFailed()
		notification := models.SuccessNotification(s.clean(resp.Success))
		entry.WithField("status", resp.StatusCode).Info("Card accepted")
		metrics.RecordSubmission(string(OutcomeSuccess))
		return Result{Outcome: OutcomeSuccess, Errors: view.Form.Errors(), Notification: &notification}
	}

	// Transport failures are handled like a rejection with an empty body
	if err != nil {
		entry.WithError(err).Warn("Card API call failed")
	} else {
		entry.WithFields(logrus.Fields{
			"status":      resp.StatusCode,
			"wrong_input": resp.WrongInput,
		}).Info("Card rejected")
	}

	view.Form.MarkFailed(resp.WrongInput)
	notification := models.ErrorNotification(s.clean(resp.Failed))
	metrics.RecordSubmission(string(OutcomeRejected))
	return Result{
		Outcome:      OutcomeRejected,
		Errors:       view.Form.Errors(),
		Notification: &notification,
		WrongInput:   resp.WrongInput,
	}
}

// clean strips markup from a server message, leaving plain text for the
// template to escape. Anything that parses as a tag is dropped, so
// "Use <card number>" becomes "Use ".
func (s *cardSubmissionServiceImpl) clean(msg string) string {
	return html.UnescapeString(s.policy.Sanitize(msg))
}

const isoMillis = "2006-01-02T15:04:05.000Z"

// BuildRequest converts form values into the API payload. Name and lastname
// are not part of it.
func BuildRequest(values models.FormValues) models.CardRequest {
	return models.CardRequest{
		Card: values.CardNumber,
		CVV:  values.CVV,
		Date: parseDate(values.Date),
	}
}

// parseDate reads a date input value (or a full RFC 3339 timestamp) and
// returns it as a UTC ISO-8601 string. Unparseable input yields nil.
func parseDate(raw string) *string {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02", time.RFC3339Nano} {
		if t, err := time.Parse(layout, raw); err == nil {
			out := t.UTC().Format(isoMillis)
			return &out
		}
	}
	return nil
}

func violated(errs models.ValidationErrors) []string {
	var out []string
	for _, field := range models.Fields {
		if errs[field] {
			out = append(out, field)
		}
	}
	return out
}
