// Package apiclient talks to the notes server over HTTP. A Client serves
// as the session controller's auth service, the note store's backend and
// the editor's sharer and exporter.
package apiclient

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
	"sync"
	"time"

	"github.com/educloud/notes/editor"
	"github.com/educloud/notes/models"
	"github.com/educloud/notes/notes"
	"github.com/educloud/notes/session"
)

const exportTimeout = 30 * time.Second

// ErrExportUnsaved is reported for an export of a note with no id.
var ErrExportUnsaved = errors.New("save the note before exporting it")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status     int
	StatusText string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("API error: status=%d", e.Status)
}

// ExportHandler receives the outcome of a background export request.
type ExportHandler func(job models.ExportJob, err error)

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.RWMutex
	authToken string
	onExport  ExportHandler
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

var (
	_ session.AuthService = (*Client)(nil)
	_ notes.Backend       = (*Client)(nil)
	_ editor.Sharer       = (*Client)(nil)
	_ editor.Exporter     = (*Client)(nil)
)

func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authToken = token
}

func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authToken
}

// OnExport sets the handler for export outcomes.
func (c *Client) OnExport(fn ExportHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExport = fn
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.AuthToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(req)
}

// decodeResponse decodes a 2xx body into target. Anything else becomes an
// *APIError carrying the server's {"error": ...} message when there is one.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
		}
		var body struct {
			Error string `json:"error"`
		}
		if data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil && json.Unmarshal(data, &body) == nil {
			apiErr.Message = body.Error
		}
		return apiErr
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func (c *Client) call(ctx context.Context, method, path string, body, target any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decodeResponse(resp, target)
}

func notePath(id string) string {
	return "/notes/" + url.PathEscape(id)
}

// asNotFound turns a 404 into the note store's not-found error.
func asNotFound(err error, id string) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return &notes.NotFoundError{Id: id}
	}
	return err
}

func (c *Client) Health(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode)}
	}
	return nil
}
