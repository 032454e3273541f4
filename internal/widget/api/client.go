// Package api is the widget's transport boundary: a small request/response
// client over the chat backend's JSON API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"

	"chat-widget/internal/models"
)

// EmailNotConfirmedMessage is the well-known server message signalling the
// unconfirmed-identity precondition. The composer routes it to a dedicated
// warning instead of the generic error banner.
const EmailNotConfirmedMessage = "email not confirmed"

// RequestError carries the human-readable message a failed request rejected
// with.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return e.Message
}

// IsEmailNotConfirmed reports whether an error is the unconfirmed-identity
// precondition.
func IsEmailNotConfirmed(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Message == EmailNotConfirmedMessage
}

// ErrorMessage extracts the server-provided message, falling back to the Go
// error text.
func ErrorMessage(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	return err.Error()
}

// Transport is the request/response collaborator. Implementations reject
// with *RequestError when the server answers with an error body.
type Transport interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body any, out any) error
	Put(ctx context.Context, path string, body any, out any) error
	Del(ctx context.Context, path string, body any) error
}

// Client is the HTTP Transport implementation.
type Client struct {
	baseURL string
	viewer  models.ViewerContext
	http    *http.Client
}

// NewClient builds a Client for a backend base URL, acting as the viewer.
func NewClient(baseURL string, viewer models.ViewerContext) *Client {
	return &Client{
		baseURL: baseURL,
		viewer:  viewer,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Del(ctx context.Context, path string, body any) error {
	return c.do(ctx, http.MethodDelete, path, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	ctx, span := otel.Tracer("chat-widget/api").Start(ctx, method+" "+path)
	defer span.End()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", strconv.Itoa(c.viewer.UserID))
	req.Header.Set("X-Display-Name", c.viewer.DisplayName)
	if c.viewer.IsModerator {
		req.Header.Set("X-Moderator", "true")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var errBody struct {
			Error string `json:"error"`
		}
		message := resp.Status
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil && errBody.Error != "" {
			message = errBody.Error
		}
		return &RequestError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
