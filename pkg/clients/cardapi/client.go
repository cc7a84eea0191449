package cardapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"card-validator/pkg/models"
)

// CardPath is the backend endpoint that validates card data
const CardPath = "/api/card"

// Client defines the interface for interacting with the card validation API
type Client interface {
	ValidateCard(ctx context.Context, card models.CardRequest) (models.CardResponse, error)
}

type clientImpl struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new card validation client. A nil httpClient gets a
// client without a timeout; the request context is the only deadline.
func NewClient(baseURL string, httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &clientImpl{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// ValidateCard posts card to the backend. Every HTTP status is returned as a
// response; an error means no usable response arrived.
func (c *clientImpl) ValidateCard(ctx context.Context, card models.CardRequest) (models.CardResponse, error) {
	jsonPayload, err := json.Marshal(card)
	if err != nil {
		return models.CardResponse{}, fmt.Errorf("error creating payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+CardPath, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return models.CardResponse{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.CardResponse{}, fmt.Errorf("error validating card: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.CardResponse{StatusCode: resp.StatusCode}, fmt.Errorf("error reading response: %w", err)
	}

	return ParseResponse(resp.StatusCode, body), nil
}

// ParseResponse extracts the optional body fields. Missing fields, non-string
// values and malformed JSON all read as empty.
func ParseResponse(statusCode int, body []byte) models.CardResponse {
	out := models.CardResponse{StatusCode: statusCode}
	if !gjson.ValidBytes(body) {
		return out
	}

	fields := gjson.GetManyBytes(body, "success", "failed", "wrongInput")
	out.Success = stringField(fields[0])
	out.Failed = stringField(fields[1])
	out.WrongInput = models.WrongInput(stringField(fields[2]))
	return out
}

func stringField(r gjson.Result) string {
	if r.Type != gjson.String {
		return ""
	}
	return r.Str
}
