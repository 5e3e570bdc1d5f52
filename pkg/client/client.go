// Package client is a Go SDK for the trivia-engine API
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/terra-clan/trivia-engine/internal/models"
)

// Client is a Go SDK for trivia-engine API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new trivia-engine client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is returned when the server answers with an error envelope
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s - %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is an API error for a missing session
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Question is the next question of a session. Done is set, and the other
// fields are empty, once the session has nothing left to ask.
type Question struct {
	models.QuestionResponse
	Done    bool
	Message string
}

// StartSession starts a new quiz session
func (c *Client) StartSession(ctx context.Context) (*models.SessionResponse, error) {
	var session models.SessionResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/sessions", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession retrieves a session by ID
func (c *Client) GetSession(ctx context.Context, id string) (*models.SessionResponse, error) {
	var session models.SessionResponse
	if err := c.call(ctx, http.MethodGet, sessionPath(id, ""), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// NextQuestion returns the question the session is waiting on
func (c *Client) NextQuestion(ctx context.Context, id string) (*Question, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, sessionPath(id, "/next"), nil, &raw); err != nil {
		return nil, err
	}

	var done models.NoMoreQuestionsResponse
	if err := json.Unmarshal(raw, &done); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if done.Done {
		return &Question{Done: true, Message: done.Message}, nil
	}

	var q Question
	if err := json.Unmarshal(raw, &q.QuestionResponse); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &q, nil
}

// SubmitAnswer answers a question of the session
func (c *Client) SubmitAnswer(ctx context.Context, id string, questionID int64, answer string) (*models.AnswerResponse, error) {
	req := models.AnswerRequest{QuestionID: questionID, Answer: answer}

	var result models.AnswerResponse
	if err := c.call(ctx, http.MethodPost, sessionPath(id, "/answers"), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Score returns the current score of a session
func (c *Client) Score(ctx context.Context, id string) (*models.Score, error) {
	var score models.Score
	if err := c.call(ctx, http.MethodGet, sessionPath(id, "/score"), nil, &score); err != nil {
		return nil, err
	}
	return &score, nil
}

// Reset archives a session and returns the one that replaces it
func (c *Client) Reset(ctx context.Context, id string) (*models.SessionResponse, error) {
	var session models.SessionResponse
	if err := c.call(ctx, http.MethodPost, sessionPath(id, "/reset"), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Catalog returns how many questions exist per tier
func (c *Client) Catalog(ctx context.Context) (*models.CatalogResponse, error) {
	var catalog models.CatalogResponse
	if err := c.call(ctx, http.MethodGet, "/api/v1/catalog", nil, &catalog); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}

// Ready checks if the service and its dependencies are ready
func (c *Client) Ready(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/ready", nil, nil)
}

func sessionPath(id, suffix string) string {
	return "/api/v1/sessions/" + url.PathEscape(id) + suffix
}

// call performs a request and decodes the data of the response envelope
// into out
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	status, resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		if status >= 400 {
			return &APIError{Status: status, Code: "http_error", Message: string(resp)}
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success || status >= 400 {
		apiErr := &APIError{Status: status}
		if result.Error != nil {
			apiErr.Code = result.Error.Code
			apiErr.Message = result.Error.Message
		}
		return apiErr
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
