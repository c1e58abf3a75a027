package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"oilcall-go/internal/types"
)

// Client calls this service's own HTTP API. It is used by cmd/caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreatePhoneCall(ctx context.Context, req types.CallRequest) (string, error) {
	var out createPhoneCallResponse
	if err := c.post(ctx, "/api/create-phone-call", req, &out); err != nil {
		return "", err
	}
	return out.CallID, nil
}

func (c *Client) GetCall(ctx context.Context, callID string) (*types.CallResponse, error) {
	var out types.CallResponse
	if err := c.post(ctx, "/api/get-call", getCallRequest{CallID: callID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPhoneCall(ctx context.Context, callID string) (*types.PhoneCall, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/calls/"+url.PathEscape(callID), nil)
	if err != nil {
		return nil, err
	}
	var out types.PhoneCall
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s %s: %d %s", req.Method, req.URL.Path, resp.StatusCode, e.Error)
		}
		return fmt.Errorf("%s %s: %d %s", req.Method, req.URL.Path, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("json decode error: %v body=%s", err, string(body))
	}
	return nil
}
