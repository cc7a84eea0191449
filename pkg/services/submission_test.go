package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-validator/pkg/clients/cardapi"
	"card-validator/pkg/logging"
	"card-validator/pkg/models"
	"card-validator/pkg/utils"
	"card-validator/pkg/views"
)

func validValues() models.FormValues {
	return models.FormValues{
		Name:       "A",
		Lastname:   "B",
		CardNumber: "4111111111111111",
		Date:       "2030-01-01",
		CVV:        "123",
	}
}

type backend struct {
	calls  atomic.Int32
	bodies chan map[string]interface{}

	mu     sync.Mutex
	status int
	body   string
}

func (b *backend) respond(status int, body string) {
	b.mu.Lock()
	b.status, b.body = status, body
	b.mu.Unlock()
}

func newBackend(t *testing.T, status int, body string) (*backend, cardapi.Client) {
	b := &backend{bodies: make(chan map[string]interface{}, 8), status: status, body: body}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		raw, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		_ = json.Unmarshal(raw, &payload)
		b.bodies <- payload

		b.mu.Lock()
		status, body := b.status, b.body
		b.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return b, cardapi.NewClient(srv.URL, nil)
}

func newService(t *testing.T, client cardapi.Client, log *logrus.Logger, opts ...Option) CardSubmissionService {
	svc, err := NewCardSubmissionService(client, log, opts...)
	require.NoError(t, err)
	return svc
}

func newView(values models.FormValues) *views.View {
	v := views.NewStore(time.Minute).Open()
	v.Form.SetAll(values)
	return v
}

func TestSubmit_BlockedWhenRequiredEmpty(t *testing.T) {
	b, client := newBackend(t, http.StatusOK, `{"success":"OK"}`)
	svc := newService(t, client, logging.Discard())

	v := views.NewStore(time.Minute).Open()
	v.Form.Set(models.FieldName, "A")

	for i := 0; i < 3; i++ {
		res := svc.Submit(context.Background(), v)
		assert.Equal(t, OutcomeBlocked, res.Outcome)
		assert.Nil(t, res.Notification)
		assert.True(t, res.Errors[models.FieldCVV])
		assert.False(t, res.Errors[models.FieldName])
	}

	assert.Equal(t, int32(0), b.calls.Load())
	assert.True(t, v.Form.Invalid(models.FieldCardNumber))
}

func TestSubmit_SendsOnlyCardFields(t *testing.T) {
	b, client := newBackend(t, http.StatusOK, `{"success":"OK"}`)
	svc := newService(t, client, logging.Discard())

	res := svc.Submit(context.Background(), newView(validValues()))
	require.Equal(t, OutcomeSuccess, res.Outcome)

	payload := <-b.bodies
	assert.Equal(t, map[string]interface{}{
		"card": "4111111111111111",
		"cvv":  "123",
		"date": "2030-01-01T00:00:00.000Z",
	}, payload)
}

func TestSubmit_SuccessClearsMarker(t *testing.T) {
	_, client := newBackend(t, http.StatusOK, `{"success":"OK"}`)
	svc := newService(t, client, logging.Discard())

	v := newView(validValues())
	v.Form.MarkFailed(models.WrongCVV)

	res := svc.Submit(context.Background(), v)

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	require.NotNil(t, res.Notification)
	assert.Equal(t, models.SuccessNotification("OK"), *res.Notification)
	_, failed := v.Form.FailedInput()
	assert.False(t, failed)
	assert.False(t, v.Form.Invalid(models.FieldCVV))
	assert.False(t, v.Submitting())
}

func TestSubmit_RejectionMarksField(t *testing.T) {
	_, client := newBackend(t, http.StatusNotAcceptable, `{"failed":"bad cvv","wrongInput":"CVV"}`)
	svc := newService(t, client, logging.Discard())

	v := newView(validValues())
	res := svc.Submit(context.Background(), v)

	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, models.WrongCVV, res.WrongInput)
	require.NotNil(t, res.Notification)
	assert.Equal(t, models.ErrorNotification("bad cvv"), *res.Notification)

	wrong, failed := v.Form.FailedInput()
	assert.True(t, failed)
	assert.Equal(t, models.WrongCVV, wrong)
	assert.True(t, v.Form.Invalid(models.FieldCVV))
	assert.False(t, v.Form.Invalid(models.FieldCardNumber))
}

func TestSubmit_ResubmitReplacesMarker(t *testing.T) {
	b, client := newBackend(t, http.StatusNotAcceptable, `{"failed":"expired","wrongInput":"Expiration"}`)
	svc := newService(t, client, logging.Discard())

	v := newView(validValues())
	svc.Submit(context.Background(), v)
	assert.True(t, v.Form.Invalid(models.FieldDate))

	b.respond(http.StatusOK, `{"success":"Card is valid"}`)
	res := svc.Submit(context.Background(), v)

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.False(t, v.Form.Invalid(models.FieldDate))
}

func TestSubmit_MalformedBodyIsRejection(t *testing.T) {
	_, client := newBackend(t, http.StatusInternalServerError, `<html>oops</html>`)
	svc := newService(t, client, logging.Discard())

	v := newView(validValues())
	res := svc.Submit(context.Background(), v)

	assert.Equal(t, OutcomeRejected, res.Outcome)
	require.NotNil(t, res.Notification)
	assert.Equal(t, "Error!", res.Notification.Title)
	assert.Empty(t, res.Notification.Text)
	_, failed := v.Form.FailedInput()
	assert.False(t, failed)
}

func TestSubmit_SanitizesServerMessage(t *testing.T) {
	_, client := newBackend(t, http.StatusOK, `{"success":"<script>alert(1)</script>Saved <b>Bob's</b> card"}`)
	svc := newService(t, client, logging.Discard())

	res := svc.Submit(context.Background(), newView(validValues()))

	require.NotNil(t, res.Notification)
	assert.Equal(t, "Saved Bob's card", res.Notification.Text)
}

func TestSubmit_ServerMarkupIsDropped(t *testing.T) {
	_, client := newBackend(t, http.StatusNotAcceptable, `{"failed":"Use <card number> from the front","wrongInput":"CardNumber"}`)
	svc := newService(t, client, logging.Discard())

	res := svc.Submit(context.Background(), newView(validValues()))

	require.NotNil(t, res.Notification)
	assert.Equal(t, "Use  from the front", res.Notification.Text)
}

func TestSubmit_LogsKeyedFingerprintOnly(t *testing.T) {
	_, client := newBackend(t, http.StatusOK, `{"success":"OK"}`)
	log, hook := test.NewNullLogger()
	key := []byte("fingerprint-key")
	svc := newService(t, client, log, WithFingerprintKey(key))

	svc.Submit(context.Background(), newView(validValues()))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, utils.Fingerprint(key, "4111111111111111"), entry.Data["card_fingerprint"])
	assert.NotEqual(t, utils.HashString("4111111111111111")[:12], entry.Data["card_fingerprint"])
	for _, e := range hook.AllEntries() {
		line, err := e.String()
		require.NoError(t, err)
		assert.NotContains(t, line, "4111111111111111")
	}
}

type recordingClient struct {
	mu   sync.Mutex
	sent []models.CardRequest
}

func (c *recordingClient) ValidateCard(_ context.Context, card models.CardRequest) (models.CardResponse, error) {
	c.mu.Lock()
	c.sent = append(c.sent, card)
	c.mu.Unlock()
	return models.CardResponse{StatusCode: http.StatusOK}, nil
}

func TestSubmit_ConcurrentEditsNeverSendEmptyFields(t *testing.T) {
	client := &recordingClient{}
	svc := newService(t, client, logging.Discard())
	v := newView(validValues())

	emptied := validValues()
	emptied.CVV = ""

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				v.Form.SetAll(emptied)
			} else {
				v.Form.SetAll(validValues())
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		svc.Submit(context.Background(), v)
	}
	close(stop)
	wg.Wait()

	client.mu.Lock()
	defer client.mu.Unlock()
	for _, req := range client.sent {
		assert.NotEmpty(t, req.CVV)
	}
}

type errClient struct{}

func (errClient) ValidateCard(context.Context, models.CardRequest) (models.CardResponse, error) {
	return models.CardResponse{}, errors.New("connection refused")
}

func TestSubmit_TransportErrorIsRejection(t *testing.T) {
	svc := newService(t, errClient{}, logging.Discard())

	v := newView(validValues())
	v.Form.MarkFailed(models.WrongCardNumber)
	res := svc.Submit(context.Background(), v)

	assert.Equal(t, OutcomeRejected, res.Outcome)
	require.NotNil(t, res.Notification)
	assert.Equal(t, models.ErrorNotification(""), *res.Notification)
	_, failed := v.Form.FailedInput()
	assert.False(t, failed)
}

type blockingClient struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (c *blockingClient) ValidateCard(context.Context, models.CardRequest) (models.CardResponse, error) {
	c.calls.Add(1)
	close(c.started)
	<-c.release
	return models.CardResponse{StatusCode: http.StatusNotAcceptable, Failed: "bad card", WrongInput: models.WrongCardNumber}, nil
}

func TestSubmit_RefusesOverlappingSubmission(t *testing.T) {
	client := &blockingClient{started: make(chan struct{}), release: make(chan struct{})}
	svc := newService(t, client, logging.Discard())
	v := newView(validValues())

	done := make(chan Result, 1)
	go func() { done <- svc.Submit(context.Background(), v) }()
	<-client.started

	second := svc.Submit(context.Background(), v)
	assert.Equal(t, OutcomeBusy, second.Outcome)

	close(client.release)
	first := <-done

	assert.Equal(t, OutcomeRejected, first.Outcome)
	assert.Equal(t, int32(1), client.calls.Load())
	wrong, _ := v.Form.FailedInput()
	assert.Equal(t, models.WrongCardNumber, wrong)
	assert.False(t, v.Submitting())
}

func TestBuildRequest(t *testing.T) {
	req := BuildRequest(validValues())
	require.NotNil(t, req.Date)
	assert.Equal(t, "2030-01-01T00:00:00.000Z", *req.Date)
	assert.Equal(t, "4111111111111111", req.Card)
	assert.Equal(t, "123", req.CVV)

	withoutNames := validValues()
	withoutNames.Name, withoutNames.Lastname = "", ""
	assert.Equal(t, req, BuildRequest(withoutNames))
}

func TestParseDate(t *testing.T) {
	got := parseDate("2030-06-15T10:30:00+02:00")
	require.NotNil(t, got)
	assert.Equal(t, "2030-06-15T08:30:00.000Z", *got)

	assert.Nil(t, parseDate("not a date"))
	assert.Nil(t, parseDate(""))
}
