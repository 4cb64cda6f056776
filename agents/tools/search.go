// Package tools implements the Builder tool surface (§6.2) and the two
// tools the Research adapter may call during its loop (§4.6): search_web
// and search_crates. Grounded in original_source's
// skills/tools/search_tools.rs for the endpoint fallback chain and the
// "empty results, not an error" failure contract.
package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// SearchResult is one hit from search_web or search_crates.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearcher tries a user-configured SearXNG endpoint first, then public
// fallbacks, then a localhost instance. Any failure at any stage moves to
// the next; total failure returns an empty, non-error result, per §4.6.
type WebSearcher struct {
	ConfiguredEndpoint string
	client             *http.Client
}

// NewWebSearcher builds a WebSearcher. configuredEndpoint may be empty.
func NewWebSearcher(configuredEndpoint string) *WebSearcher {
	return &WebSearcher{
		ConfiguredEndpoint: configuredEndpoint,
		client:             &http.Client{Timeout: 10 * time.Second},
	}
}

var publicSearxngFallbacks = []string{
	"https://searx.be",
	"https://search.brave4u.com",
}

const localhostSearxng = "http://localhost:8080"

// SearchWeb implements the search_web tool: {query, max_results} -> results.
func (w *WebSearcher) SearchWeb(ctx context.Context, query string, maxResults int) []SearchResult {
	endpoints := make([]string, 0, len(publicSearxngFallbacks)+2)
	if w.ConfiguredEndpoint != "" {
		endpoints = append(endpoints, w.ConfiguredEndpoint)
	}
	endpoints = append(endpoints, publicSearxngFallbacks...)
	endpoints = append(endpoints, localhostSearxng)

	for _, endpoint := range endpoints {
		if results, ok := w.querySearxng(ctx, endpoint, query, maxResults); ok {
			return results
		}
	}
	return []SearchResult{}
}

func (w *WebSearcher) querySearxng(ctx context.Context, endpoint, query string, maxResults int) ([]SearchResult, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/search", nil)
	if err != nil {
		return nil, false
	}
	q := req.URL.Query()
	q.Set("q", query)
	q.Set("format", "json")
	req.URL.RawQuery = q.Encode()

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, false
	}

	var parsed struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, false
	}

	out := make([]SearchResult, 0, maxResults)
	for _, r := range parsed.Results {
		if len(out) >= maxResults {
			break
		}
		out = append(out, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return out, true
}

// SearchCrates implements the search_crates tool: {query, max_results} ->
// results, querying the crates.io registry. Total failure returns an
// empty, non-error result, matching SearchWeb's contract.
func SearchCrates(ctx context.Context, query string, maxResults int) []SearchResult {
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://crates.io/api/v1/crates", nil)
	if err != nil {
		return []SearchResult{}
	}
	q := req.URL.Query()
	q.Set("q", query)
	q.Set("per_page", strconv.Itoa(max(maxResults, 1)))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", "catalyst-research-adapter")

	resp, err := client.Do(req)
	if err != nil {
		return []SearchResult{}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return []SearchResult{}
	}

	var parsed struct {
		Crates []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"crates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return []SearchResult{}
	}

	out := make([]SearchResult, 0, len(parsed.Crates))
	for _, c := range parsed.Crates {
		out = append(out, SearchResult{
			Title:   c.Name,
			URL:     "https://crates.io/crates/" + c.Name,
			Snippet: c.Description,
		})
	}
	return out
}
