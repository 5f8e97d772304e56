// Package gist implements the remote sync client against a Gist-compatible
// REST document store. The task list lives as one JSON file inside a private
// gist; pull fetches it, push overwrites it wholesale. The client is
// stateless request/response: retries and debouncing belong to the
// reconciliation engine, not here.
package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/daykeep/daykeep-api/internal/domain"
	"github.com/daykeep/daykeep-api/internal/store"
)

const (
	// TaskFileName is the fixed name of the file inside the gist that
	// holds the serialized task array.
	TaskFileName = "tasks.json"

	// DefaultBaseURL is the production Gist API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// defaultTimeout bounds a single request; a hung request blocks one
	// sync cycle only, never the whole application.
	defaultTimeout = 30 * time.Second
)

// Client talks to a Gist-compatible REST API. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a remote sync client. baseURL may be empty for the
// production endpoint; httpClient may be nil for a default with a request
// timeout. logger must not be nil.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// gistFile mirrors one entry of the API's "files" map.
type gistFile struct {
	Content string `json:"content"`
}

// gistDocument mirrors the subset of the gist payload the client reads and
// writes.
type gistDocument struct {
	ID          string              `json:"id,omitempty"`
	Description string              `json:"description,omitempty"`
	Public      *bool               `json:"public,omitempty"`
	Files       map[string]gistFile `json:"files"`
}

// Pull fetches the remote task list. A gist that exists but has no task
// file entry yet is the brand-new-document case and yields an empty list,
// not an error. Returns ErrInvalidCredential if the credentials are
// incomplete, a RemoteError on HTTP failure, and ErrMalformedRemoteData if
// the file content is not a task array.
func (c *Client) Pull(ctx context.Context, creds store.Credentials) ([]domain.Task, error) {
	if !creds.Configured() {
		return nil, ErrInvalidCredential
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		fmt.Sprintf("%s/gists/%s", c.baseURL, creds.GistID),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("building pull request: %w", err)
	}
	c.setHeaders(req, creds.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: "pull", Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("failed to close pull response body", "error", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{Op: "pull", StatusCode: resp.StatusCode}
	}

	var doc gistDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRemoteData, err)
	}

	file, ok := doc.Files[TaskFileName]
	if !ok {
		c.logger.Debug("remote document has no task file yet", "gist_id", creds.GistID)
		return []domain.Task{}, nil
	}

	var tasks []domain.Task
	if err := json.Unmarshal([]byte(file.Content), &tasks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRemoteData, err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}

	return tasks, nil
}

// Push overwrites the remote task file with the full serialized task list.
// Sync is opt-in: incomplete credentials make Push a silent no-op. On HTTP
// failure it returns a RemoteError.
func (c *Client) Push(ctx context.Context, tasks []domain.Task, creds store.Credentials) error {
	if !creds.Configured() {
		c.logger.Debug("sync not configured, skipping push")
		return nil
	}

	content, err := SerializeTasks(tasks)
	if err != nil {
		return fmt.Errorf("serializing tasks for push: %w", err)
	}

	body, err := json.Marshal(gistDocument{
		Files: map[string]gistFile{
			TaskFileName: {Content: string(content)},
		},
	})
	if err != nil {
		return fmt.Errorf("encoding push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPatch,
		fmt.Sprintf("%s/gists/%s", c.baseURL, creds.GistID),
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("building push request: %w", err)
	}
	c.setHeaders(req, creds.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteError{Op: "push", Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("failed to close push response body", "error", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return &RemoteError{Op: "push", StatusCode: resp.StatusCode}
	}

	c.logger.Debug("pushed task list to remote document",
		"gist_id", creds.GistID,
		"task_count", len(tasks))
	return nil
}

// CreateDocument creates a new private remote document pre-populated with
// the given tasks and returns its ID. Returns ErrInvalidCredential if no
// token is given and a RemoteError on HTTP failure.
func (c *Client) CreateDocument(ctx context.Context, tasks []domain.Task, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidCredential
	}

	content, err := SerializeTasks(tasks)
	if err != nil {
		return "", fmt.Errorf("serializing tasks for create: %w", err)
	}

	public := false
	body, err := json.Marshal(gistDocument{
		Description: "daykeep task list",
		Public:      &public,
		Files: map[string]gistFile{
			TaskFileName: {Content: string(content)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding create payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/gists", c.baseURL),
		bytes.NewReader(body),
	)
	if err != nil {
		return "", fmt.Errorf("building create request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &RemoteError{Op: "create", Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("failed to close create response body", "error", cerr)
		}
	}()

	if resp.StatusCode != http.StatusCreated {
		return "", &RemoteError{Op: "create", StatusCode: resp.StatusCode}
	}

	var doc gistDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedRemoteData, err)
	}
	if doc.ID == "" {
		return "", fmt.Errorf("%w: created document has no id", ErrMalformedRemoteData)
	}

	c.logger.Info("created remote task document", "gist_id", doc.ID)
	return doc.ID, nil
}

// SerializeTasks renders a task list the way it is stored in the remote
// file: a pretty-printed JSON array with 2-space indentation. The format is
// not load-bearing for correctness but is kept for human readability of the
// gist. A nil list serializes as an empty array.
func SerializeTasks(tasks []domain.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return json.MarshalIndent(tasks, "", "  ")
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+token)
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
}
