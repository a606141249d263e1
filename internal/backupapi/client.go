package backupapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/backupdash/internal/model"
)

// ErrUnauthorized is returned when the backend rejects the session token.
var ErrUnauthorized = errors.New("backup API: unauthorized")

// TokenSource supplies the bearer token attached to each request.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backup API %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backup API %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// UserMessage returns the server-supplied message, if any.
func (e *APIError) UserMessage() string { return e.Message }

// Retryable reports whether repeating the request may succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Client calls the backup service's HTTP API with the current session token.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     zerolog.Logger
}

type ClientOption func(*Client)

// WithTLSConfig sets the TLS configuration used to reach the backend.
// A nil config keeps the defaults.
func WithTLSConfig(cfg *tls.Config) ClientOption {
	return func(c *Client) {
		if cfg == nil {
			return
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = cfg
		c.httpClient.Transport = transport
	}
}

// WithTimeout bounds each request made by the client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func NewClient(baseURL string, tokens TokenSource, logger zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With().Str("component", "backup-api-client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetBackups returns one page of backup history, most recent first.
func (c *Client) GetBackups(ctx context.Context, params model.ListBackupsParams) (*model.BackupPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(params.Page))
	q.Set("limit", strconv.Itoa(params.Limit))
	if params.Search != "" {
		q.Set("search", params.Search)
	}

	var page model.BackupPage
	if err := c.doJSON(ctx, http.MethodGet, "/backups?"+q.Encode(), nil, &page); err != nil {
		return nil, err
	}
	for _, b := range page.Data {
		if err := b.CheckInvariants(); err != nil {
			c.logger.Warn().Err(err).Msg("backend returned inconsistent backup record")
		}
	}
	return &page, nil
}

// SaveBackup initiates a backup for a connection. The backend answers before
// the backup finishes; progress is observed by re-reading the history.
func (c *Client) SaveBackup(ctx context.Context, connectionID string) error {
	return c.doJSON(ctx, http.MethodPost, "/backups",
		model.CreateBackupParams{ConnectionID: connectionID}, nil)
}

// ScheduleBackup creates a backup schedule for a connection.
func (c *Client) ScheduleBackup(ctx context.Context, params model.ScheduleBackupParams) error {
	return c.doJSON(ctx, http.MethodPost, "/backups/schedule", params, nil)
}

// UpdateSchedule replaces the cron expression and retention of an existing schedule.
func (c *Client) UpdateSchedule(ctx context.Context, connectionID string, params model.UpdateScheduleParams) error {
	return c.doJSON(ctx, http.MethodPut, "/backups/schedule/"+url.PathEscape(connectionID), params, nil)
}

// DisableBackupSchedule disables the schedule of a connection.
func (c *Client) DisableBackupSchedule(ctx context.Context, connectionID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/backups/schedule/"+url.PathEscape(connectionID), nil, nil)
}

// ListConnections returns all configured connections with their schedules.
func (c *Client) ListConnections(ctx context.Context) ([]model.Connection, error) {
	var conns []model.Connection
	if err := c.doJSON(ctx, http.MethodGet, "/connections", nil, &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backup API %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backup API request")

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody),
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// errorMessage extracts a human readable message from an error body. The
// backend uses {"error": "..."} but {"message": "..."} is accepted too.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		return payload.Message
	}
	return ""
}
