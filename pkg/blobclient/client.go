/**
 * @description
 * This package provides a client for communicating with the blob storage
 * service. It encapsulates the logic for resolving uploaded attachment keys
 * into public URLs for milestones and invoices.
 */
package blobclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a client for the blob storage service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new blob storage client.
func NewClient(baseURL string, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// resolveResponse defines the response from resolving an attachment key.
type resolveResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// ResolveURL calls the blob storage service to resolve an uploaded object
// key into a public URL.
func (c *Client) ResolveURL(ctx context.Context, key string) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("blob store base url is empty")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("attachment key is empty")
	}

	endpoint := fmt.Sprintf("%s/objects/%s/url", c.baseURL, url.PathEscape(key))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if strings.TrimSpace(c.apiKey) != "" {
		req.Header.Set("X-Internal-API-Key", strings.TrimSpace(c.apiKey))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request to blob store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("attachment key %s not found", key)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("blob store returned status %d", resp.StatusCode)
	}

	var payload resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode blob store response: %w", err)
	}
	if payload.URL == "" {
		return "", fmt.Errorf("blob store returned empty url for key %s", key)
	}
	return payload.URL, nil
}
