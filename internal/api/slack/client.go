// Package slack is a small hand-rolled client for the three Slack Web API
// methods the relay needs.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://slack.com/api"

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client calls the Slack Web API. The app token authenticates
// apps.connections.open; the bot token authenticates the chat.* methods.
type Client struct {
	appToken   string
	botToken   string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Slack Web API client.
func NewClient(appToken, botToken string, opts ...ClientOption) *Client {
	c := &Client{
		appToken:   appToken,
		botToken:   botToken,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is returned when the Web API answers ok:false or omits a field
// the caller requires. Body carries the raw response for diagnosis.
type APIError struct {
	Method string
	Reason string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s failed: %s: %s", e.Method, e.Reason, e.Body)
}

// OpenConnection requests a fresh Socket Mode WebSocket URL.
func (c *Client) OpenConnection(ctx context.Context) (string, error) {
	const method = "apps.connections.open"
	var out ConnectionsOpenResponse
	body, err := c.call(ctx, method, c.appToken, nil, &out)
	if err != nil {
		return "", err
	}
	if !out.OK {
		return "", &APIError{Method: method, Reason: "ok is false", Body: string(body)}
	}
	if out.URL == "" {
		return "", &APIError{Method: method, Reason: "url is missing", Body: string(body)}
	}
	return out.URL, nil
}

// GetPermalink resolves the permalink for one message.
func (c *Client) GetPermalink(ctx context.Context, channel, messageTS string) (string, error) {
	const method = "chat.getPermalink"
	form := url.Values{
		"channel":    {channel},
		"message_ts": {messageTS},
	}
	var out PermalinkResponse
	body, err := c.call(ctx, method, c.botToken, formBody(form), &out)
	if err != nil {
		return "", err
	}
	if !out.OK {
		return "", &APIError{Method: method, Reason: "ok is false", Body: string(body)}
	}
	if out.Permalink == "" {
		return "", &APIError{Method: method, Reason: "permalink is missing", Body: string(body)}
	}
	return out.Permalink, nil
}

// PostMessage posts text into a channel and returns the new message's ts.
func (c *Client) PostMessage(ctx context.Context, channel, text string) (string, error) {
	const method = "chat.postMessage"
	payload, err := json.Marshal(postMessageRequest{Channel: channel, Text: text})
	if err != nil {
		return "", fmt.Errorf("marshal %s request: %w", method, err)
	}
	var out PostMessageResponse
	body, err := c.call(ctx, method, c.botToken, jsonBody(payload), &out)
	if err != nil {
		return "", err
	}
	if !out.OK {
		return "", &APIError{Method: method, Reason: "ok is false", Body: string(body)}
	}
	if out.TS == "" {
		return "", &APIError{Method: method, Reason: "ts is missing", Body: string(body)}
	}
	return out.TS, nil
}

type requestBody struct {
	contentType string
	data        []byte
}

func formBody(form url.Values) *requestBody {
	return &requestBody{
		contentType: "application/x-www-form-urlencoded",
		data:        []byte(form.Encode()),
	}
}

func jsonBody(data []byte) *requestBody {
	return &requestBody{
		contentType: "application/json; charset=utf-8",
		data:        data,
	}
}

// call POSTs one Web API method and decodes the response into out. The
// raw body is returned so callers can include it in errors.
func (c *Client) call(ctx context.Context, method, token string, reqBody *requestBody, out any) ([]byte, error) {
	var reader io.Reader
	if reqBody != nil {
		reader = bytes.NewReader(reqBody.data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if reqBody != nil {
		req.Header.Set("Content-Type", reqBody.contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			Method: method,
			Reason: fmt.Sprintf("status %d", resp.StatusCode),
			Body:   string(body),
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("unmarshal %s response: %w", method, err)
	}
	return body, nil
}
