// Package search implements C3: a single-query web search client used by
// the search vertex. It issues one outbound query, merges whatever results
// come back into one text blob, and retries transient failures per
// spec §4.3.
package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/dshills/flowgraph-engine/graph"
)

// Result is one search hit, merged into the search vertex's output text
// in rank order.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Client queries a search provider's HTTP API and normalizes its response
// into a slice of Result. Endpoint should accept a "q" query parameter and
// return a JSON body; ResultsPath/TitlePath/etc. are gjson paths applied to
// that body (defaults match a generic {"results":[{"title","url","snippet"}]}
// shape).
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string

	resultsPath string
	titlePath   string
	urlPath     string
	snippetPath string

	retryPolicy graph.RetryPolicy
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default http.Client (e.g. for custom
// transports or tests against httptest servers).
func WithHTTPClient(c *http.Client) ClientOption {
	return func(s *Client) { s.httpClient = c }
}

// WithResponsePaths overrides the gjson paths used to walk a provider's
// JSON response. Defaults assume {"results":[{"title","url","snippet"}]}.
func WithResponsePaths(resultsPath, titlePath, urlPath, snippetPath string) ClientOption {
	return func(s *Client) {
		s.resultsPath = resultsPath
		s.titlePath = titlePath
		s.urlPath = urlPath
		s.snippetPath = snippetPath
	}
}

// WithRetryPolicy overrides graph.DefaultSearchRetryPolicy.
func WithRetryPolicy(rp graph.RetryPolicy) ClientOption {
	return func(s *Client) { s.retryPolicy = rp }
}

// NewClient builds a Client against endpoint, authenticating with apiKey
// as a bearer token.
func NewClient(endpoint, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		endpoint:    endpoint,
		apiKey:      apiKey,
		resultsPath: "results",
		titlePath:   "title",
		urlPath:     "url",
		snippetPath: "snippet",
	}
	c.retryPolicy = graph.DefaultSearchRetryPolicy(IsTransient)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search issues query, retries transient failures per §4.3, and returns the
// merged result set. cancelDone, when closed, preempts any retry in
// progress.
func (c *Client) Search(ctx context.Context, query string, cancelDone <-chan struct{}) ([]Result, error) {
	var results []Result
	err := graph.Retry(cancelDone, c.retryPolicy, nil, func(int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		r, err := c.doQuery(attemptCtx, query)
		if err != nil {
			return err
		}
		results = r
		return nil
	})
	return results, err
}

// MergeText flattens a result set into the plain-text payload handed
// downstream as the search vertex's output (§4.3).
func MergeText(results []Result) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if r.Title != "" {
			b.WriteString(r.Title)
			b.WriteString("\n")
		}
		b.WriteString(r.Snippet)
	}
	return b.String()
}

func (c *Client) doQuery(ctx context.Context, query string) ([]Result, error) {
	reqURL := c.endpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("search: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("search: read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("search: provider returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("search: provider returned %d (not retryable)", resp.StatusCode)
	}

	return c.parseJSON(body)
}

func (c *Client) parseJSON(body []byte) ([]Result, error) {
	root := gjson.GetBytes(body, c.resultsPath)
	if !root.IsArray() {
		return nil, nil
	}

	var results []Result
	for _, item := range root.Array() {
		results = append(results, Result{
			Title:   item.Get(c.titlePath).String(),
			URL:     item.Get(c.urlPath).String(),
			Snippet: item.Get(c.snippetPath).String(),
		})
	}
	return results, nil
}

// ExtractSnippet pulls a short plain-text excerpt out of an HTML document:
// the visible text of its body, whitespace-collapsed and cut to maxRunes
// runes. Client.Search does not call it; there a response body that is
// not JSON yields no results.
func ExtractSnippet(html []byte, maxRunes int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("search: parse html: %w", err)
	}

	text := strings.TrimSpace(doc.Find("body").Text())
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > maxRunes {
		runes = runes[:maxRunes]
	}
	return string(runes), nil
}

// IsTransient classifies a search error as retryable.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{"timeout", "deadline exceeded", "connection reset", "EOF", "429", "500", "502", "503", "504"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return !strings.Contains(msg, "not retryable")
}
