// Package retell talks to the Retell AI calling platform: it places outbound
// agent calls and retrieves their status, transcript and post-call analysis.
package retell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"oilcall-go/internal/logger"
	"oilcall-go/internal/types"
)

var ErrNotConfigured = errors.New("retell: API key is required")

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("retell api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreatePhoneCallRequest is the body of POST /v2/create-phone-call.
type CreatePhoneCallRequest struct {
	FromNumber       string            `json:"from_number"`
	ToNumber         string            `json:"to_number"`
	DynamicVariables map[string]string `json:"retell_llm_dynamic_variables,omitempty"`
}

// Client is safe for concurrent use; build one per process and share it.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

func New(baseURL, apiKey string, timeout time.Duration, log *logger.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("retell: base url: %w", err)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.Component("retell"),
	}, nil
}

// CreatePhoneCall places an outbound call and returns the registered call.
func (c *Client) CreatePhoneCall(ctx context.Context, in CreatePhoneCallRequest) (*types.CallResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/create-phone-call", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out types.CallResponse
	if err := c.doJSON(req, &out); err != nil {
		c.log.WithError(err).WithField("to_number", in.ToNumber).Error("create phone call failed")
		return nil, err
	}
	c.log.WithField("call_id", out.CallID).WithField("call_status", out.CallStatus).Info("phone call created")
	return &out, nil
}

// GetCall retrieves the current state of a call.
func (c *Client) GetCall(ctx context.Context, callID string) (*types.CallResponse, error) {
	endpoint := c.baseURL + "/v2/get-call/" + url.PathEscape(callID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var out types.CallResponse
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	c.log.WithField("call_id", callID).WithField("call_status", out.CallStatus).Debug("call retrieved")
	return &out, nil
}

func (c *Client) doJSON(req *http.Request, target interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("retell request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("retell read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if len(body) == 0 {
		return fmt.Errorf("retell: empty body")
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("json decode error: %v body=%s", err, string(body))
	}
	return nil
}
