package streamclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Message)
}

// Project is the client view of a stored project.
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Prompt      string    `json:"prompt"`
	HTMLContent string    `json:"html_content"`
	IsPublic    bool      `json:"is_public"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Client talks to the HTTP API with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a client. httpClient may be nil.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// EditInput describes an edit of an existing page.
type EditInput struct {
	Prompt          string `json:"prompt"`
	SelectedElement string `json:"selected_element,omitempty"`
	CurrentHTML     string `json:"current_html,omitempty"`
}

// Generate starts a fresh build of projectID and streams it into h.
func (c *Client) Generate(ctx context.Context, projectID, prompt string, h Handlers) (Result, error) {
	return c.stream(ctx, "/api/ai/generate/"+projectID, map[string]string{"prompt": prompt}, h)
}

// Edit modifies projectID and streams the new document into h.
func (c *Client) Edit(ctx context.Context, projectID string, in EditInput, h Handlers) (Result, error) {
	return c.stream(ctx, "/api/ai/edit/"+projectID, in, h)
}

func (c *Client) stream(ctx context.Context, path string, body any, h Handlers) (Result, error) {
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	dec := NewDecoder(h)
	if err := dec.Consume(ctx, resp.Body); err != nil {
		return dec.Result(), fmt.Errorf("read stream: %w", err)
	}
	return dec.Result(), nil
}

// CreateProject creates an empty project for prompt.
func (c *Client) CreateProject(ctx context.Context, prompt, title string) (*Project, error) {
	var out Project
	if err := c.json(ctx, http.MethodPost, "/api/projects", map[string]string{"prompt": prompt, "title": title}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProjects returns the caller's projects.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := c.json(ctx, http.MethodGet, "/api/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProject fetches one owned project.
func (c *Client) GetProject(ctx context.Context, id string) (*Project, error) {
	var out Project
	if err := c.json(ctx, http.MethodGet, "/api/projects/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) json(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: payload.Error}
	}
	return resp, nil
}
