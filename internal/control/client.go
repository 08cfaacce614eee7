package control

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

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// StatusFetcher is implemented by *Client and can be faked in tests.
type StatusFetcher interface {
	FetchStatus(ctx context.Context) (*StatusResponse, error)
	FetchCapabilities(ctx context.Context) (*CapabilitiesResponse, error)
	FetchFiles(ctx context.Context) ([]FileEntry, error)
}

var _ StatusFetcher = (*Client)(nil)

// FileEntry is a file listed by /api/files.
type FileEntry struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Client talks to a running notebook control API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	DefaultListen    = "127.0.0.1:7488"
	defaultUserAgent = "notebook/0.1"
	requestTimeout   = 30 * time.Second
)

// NewClient builds a Client for the host:port (or URL) in listen.
func NewClient(listen string) (*Client, error) {
	base, err := parseBaseURL(listen)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// FetchStatus retrieves the sync status.
func (c *Client) FetchStatus(ctx context.Context) (*StatusResponse, error) {
	var payload StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchCapabilities retrieves which backends the server can use.
func (c *Client) FetchCapabilities(ctx context.Context) (*CapabilitiesResponse, error) {
	var payload CapabilitiesResponse
	if err := c.do(ctx, http.MethodGet, "/api/capabilities", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchFiles lists the files in the sync directory.
func (c *Client) FetchFiles(ctx context.Context) ([]FileEntry, error) {
	var payload struct {
		Files []FileEntry `json:"files"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/files", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Files, nil
}

// Setup asks the server to acquire a sync directory.
func (c *Client) Setup(ctx context.Context, req SetupRequest) (*SetupResponse, error) {
	var payload SetupResponse
	if err := c.do(ctx, http.MethodPost, "/api/setup", req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Sync runs a pass immediately.
func (c *Client) Sync(ctx context.Context) (*SyncResponse, error) {
	var payload SyncResponse
	if err := c.do(ctx, http.MethodPost, "/api/sync", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Pause, Resume, Disable and Reset return the status after the change.
func (c *Client) Pause(ctx context.Context) (*StatusResponse, error) {
	return c.post(ctx, "/api/pause")
}

func (c *Client) Resume(ctx context.Context) (*StatusResponse, error) {
	return c.post(ctx, "/api/resume")
}

func (c *Client) Disable(ctx context.Context) (*StatusResponse, error) {
	return c.post(ctx, "/api/disable")
}

func (c *Client) Reset(ctx context.Context) (*StatusResponse, error) {
	return c.post(ctx, "/api/reset")
}

func (c *Client) post(ctx context.Context, path string) (*StatusResponse, error) {
	var payload StatusResponse
	if err := c.do(ctx, http.MethodPost, path, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Watch streams status updates to fn until ctx is canceled or the server
// closes the stream.
func (c *Client) Watch(ctx context.Context, fn func(StatusResponse)) error {
	u := c.baseURL.ResolveReference(&url.URL{Path: "/api/status/stream"})
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPHeader: http.Header{"User-Agent": []string{c.userAgent}},
	})
	if err != nil {
		return fmt.Errorf("dial status stream: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		var st StatusResponse
		if err := wsjson.Read(ctx, conn, &st); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("read status stream: %w", err)
		}
		fn(st)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	reqURL := c.baseURL.ResolveReference(rel)
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var apiErr ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("api %s returned status %d: %s", rel.String(), resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api %s returned status %d", rel.String(), resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(listen string) (*url.URL, error) {
	trimmed := strings.TrimSpace(listen)
	if trimmed == "" {
		trimmed = DefaultListen
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse listen address %q: %w", listen, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
