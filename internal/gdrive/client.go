package gdrive

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

	"go.uber.org/zap"
)

const (
	driveBaseURL  = "https://www.googleapis.com/drive/v3"
	uploadBaseURL = "https://www.googleapis.com/upload/drive/v3"
)

// ErrNotFound is returned when Drive answers 404 for a file id.
var ErrNotFound = errors.New("gdrive: file not found")

// Client is a minimal Google Drive v3 client for a single JSON file.
type Client struct {
	httpClient *http.Client
	apiBase    string
	uploadBase string
	log        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoints points the client at different API and upload base URLs.
func WithEndpoints(apiBase, uploadBase string) Option {
	return func(c *Client) {
		c.apiBase = strings.TrimRight(apiBase, "/")
		c.uploadBase = strings.TrimRight(uploadBase, "/")
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a Drive client that sends requests through hc, which is
// expected to add authorisation (see Auth.HTTPClient).
func NewClient(hc *http.Client, opts ...Option) *Client {
	c := &Client{
		httpClient: hc,
		apiBase:    driveBaseURL,
		uploadBase: uploadBaseURL,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// File is the subset of Drive file metadata worklog uses.
type File struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type fileListResponse struct {
	Files []File `json:"files"`
}

// FindFile returns the id of the first non-trashed file called name.
func (c *Client) FindFile(ctx context.Context, name string) (string, bool, error) {
	q := fmt.Sprintf("name = '%s' and trashed = false", strings.ReplaceAll(name, "'", `\'`))
	endpoint := fmt.Sprintf("%s/files?q=%s&fields=%s&spaces=drive",
		c.apiBase,
		url.QueryEscape(q),
		url.QueryEscape("files(id,name)"),
	)

	body, err := c.do(ctx, http.MethodGet, endpoint, "", nil)
	if err != nil {
		return "", false, err
	}
	var list fileListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return "", false, fmt.Errorf("parsing file list: %w", err)
	}
	if len(list.Files) == 0 {
		return "", false, nil
	}
	return list.Files[0].ID, true, nil
}

// CreateFile creates an empty JSON file called name and returns its id.
func (c *Client) CreateFile(ctx context.Context, name string) (string, error) {
	meta, err := json.Marshal(map[string]string{
		"name":     name,
		"mimeType": "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("marshalling metadata: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, c.apiBase+"/files", "application/json", meta)
	if err != nil {
		return "", err
	}
	var f File
	if err := json.Unmarshal(body, &f); err != nil {
		return "", fmt.Errorf("parsing created file: %w", err)
	}
	if f.ID == "" {
		return "", errors.New("gdrive: create returned no file id")
	}
	return f.ID, nil
}

// Upload replaces the content of file id with data.
func (c *Client) Upload(ctx context.Context, id string, data []byte) error {
	endpoint := fmt.Sprintf("%s/files/%s?uploadType=media", c.uploadBase, url.PathEscape(id))
	_, err := c.do(ctx, http.MethodPatch, endpoint, "application/json", data)
	return err
}

// Download returns the content of file id.
func (c *Client) Download(ctx context.Context, id string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/files/%s?alt=media", c.apiBase, url.PathEscape(id))
	return c.do(ctx, http.MethodGet, endpoint, "", nil)
}

func (c *Client) do(ctx context.Context, method, endpoint, contentType string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.log.Debug("drive request", zap.String("method", method), zap.String("url", endpoint))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drive API request failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("drive API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
