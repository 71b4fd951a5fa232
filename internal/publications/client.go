// Package publications integrates with the external legal-publication
// search service. Every search is user-triggered and metered: the
// refresh service consults the rate limiter before any outbound call.
package publications

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SearchResult is the outcome of one publication search.
type SearchResult struct {
	Success           bool `json:"success"`
	PublicationsFound int  `json:"publications_found"`
}

// Searcher queries an external source for publications on a court case.
type Searcher interface {
	Search(ctx context.Context, processNumber string) (SearchResult, error)
}

// Client is a thin HTTP client for the publication search API. It
// handles Bearer token authentication and JSON (de)serialization.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a publication search client. The baseURL should be
// the root URL of the search service; token is used for Bearer
// authentication.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Search implements Searcher against the remote API.
func (c *Client) Search(ctx context.Context, processNumber string) (SearchResult, error) {
	payload, err := json.Marshal(map[string]string{"process_number": processNumber})
	if err != nil {
		return SearchResult{}, fmt.Errorf("encoding search request: %w", err)
	}

	url := c.baseURL + "/v1/publications/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(payload)))
	if err != nil {
		return SearchResult{}, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("searching publications for %s: %w", processNumber, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return SearchResult{}, fmt.Errorf(
			"publication search returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)),
		)
	}

	var result SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return SearchResult{}, fmt.Errorf("decoding search response: %w", err)
	}

	return result, nil
}
