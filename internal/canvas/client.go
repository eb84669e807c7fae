package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the host adapter over HTTP. The adapter runs inside the
// design tool and translates these calls onto the live scene graph.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a host adapter client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) CurrentDocument(ctx context.Context) (Document, error) {
	var doc Document
	if err := c.get(ctx, "/host/document", &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	if err := c.get(ctx, "/host/user", &user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (c *Client) Selection(ctx context.Context) (*Selection, error) {
	// The adapter returns JSON null when nothing or multiple elements are
	// selected, which decodes into a nil pointer.
	var sel *Selection
	if err := c.get(ctx, "/host/selection", &sel); err != nil {
		return nil, err
	}
	return sel, nil
}

func (c *Client) NodeExists(ctx context.Context, nodeID string) (bool, error) {
	var body struct {
		Exists bool `json:"exists"`
	}
	if err := c.get(ctx, "/host/nodes/"+url.PathEscape(nodeID), &body); err != nil {
		return false, err
	}
	return body.Exists, nil
}

func (c *Client) SwitchPage(ctx context.Context, pageName string) error {
	return c.post(ctx, "/host/page/switch", map[string]string{"pageName": pageName}, nil)
}

func (c *Client) SelectAndCenter(ctx context.Context, nodeID string) error {
	err := c.post(ctx, "/host/viewport/center", map[string]string{"nodeId": nodeID}, nil)
	if isStatus(err, http.StatusNotFound) {
		return ErrNodeNotFound
	}
	return err
}

func (c *Client) EnsureMirrorPage(ctx context.Context, pageName string) error {
	return c.post(ctx, "/host/mirror/page", map[string]string{"pageName": pageName}, nil)
}

func (c *Client) AppendMirrorRow(ctx context.Context, pageName string, row Row) error {
	payload := struct {
		PageName string `json:"pageName"`
		Row      Row    `json:"row"`
	}{PageName: pageName, Row: row}
	return c.post(ctx, "/host/mirror/rows", payload, nil)
}

func (c *Client) RemoveMirrorRow(ctx context.Context, pageName, key string) error {
	payload := map[string]string{"pageName": pageName, "key": key}
	err := c.post(ctx, "/host/mirror/rows/remove", payload, nil)
	if isStatus(err, http.StatusNotFound) {
		return ErrNodeNotFound
	}
	return err
}

func (c *Client) ListMirrorRowKeys(ctx context.Context, pageName string) ([]string, error) {
	var body struct {
		Keys []string `json:"keys"`
	}
	if err := c.get(ctx, "/host/mirror/rows?pageName="+url.QueryEscape(pageName), &body); err != nil {
		return nil, err
	}
	return body.Keys, nil
}

func (c *Client) ClearMirrorRows(ctx context.Context, pageName string) error {
	return c.post(ctx, "/host/mirror/rows/clear", map[string]string{"pageName": pageName}, nil)
}

// statusError preserves the adapter's HTTP status so callers can map 404s to
// ErrNodeNotFound.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("host adapter returned %d: %s", e.status, e.body)
}

func isStatus(err error, status int) bool {
	se, ok := err.(*statusError)
	return ok && se.status == status
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build host request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode host payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build host request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("host adapter request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &statusError{status: resp.StatusCode, body: string(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode host response: %w", err)
	}
	return nil
}
