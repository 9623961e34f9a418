package bin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to a JSON bin host (npoint-style API). Every published quiz
// document becomes one bin, addressable at a stable public URL.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

func NewClient(baseURL, apiToken string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = "https://api.npoint.io"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		apiToken:   apiToken,
		httpClient: httpClient,
	}
}

type createResponse struct {
	ID string `json:"id"`
}

// Create uploads content as a new bin and returns its id.
func (c *Client) Create(ctx context.Context, content []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("bin host create returned %d", resp.StatusCode)
	}

	var payload createResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.ID == "" {
		return "", fmt.Errorf("bin host returned no bin id")
	}
	return payload.ID, nil
}

// Update replaces the content of an existing bin.
func (c *Client) Update(ctx context.Context, binID string, content []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s", c.baseURL, binID), bytes.NewReader(content))
	if err != nil {
		return err
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("bin host update returned %d", resp.StatusCode)
	}
	return nil
}

// Fetch downloads the current content of a bin.
func (c *Client) Fetch(ctx context.Context, binID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, binID), nil)
	if err != nil {
		return nil, err
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bin host fetch returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// PublicURL derives the read-only URL consumers use for a bin.
func (c *Client) PublicURL(binID string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, binID)
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
}
