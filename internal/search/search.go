// Package search calls the Tavily web search API on behalf of specialists.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ShayCichocki/validator/internal/config"
	"github.com/ShayCichocki/validator/internal/version"
)

// DefaultMaxResults is used when a request leaves MaxResults at zero.
const DefaultMaxResults = 5

const maxResultsLimit = 20

// Topic narrows the search index.
type Topic string

const (
	TopicGeneral Topic = "general"
	TopicNews    Topic = "news"
	TopicFinance Topic = "finance"
)

// Valid returns true if the topic is a known value.
func (t Topic) Valid() bool {
	switch t {
	case TopicGeneral, TopicNews, TopicFinance:
		return true
	default:
		return false
	}
}

// Request is one search query.
type Request struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results,omitempty"`
	Topic             Topic  `json:"topic,omitempty"`
	IncludeRawContent bool   `json:"include_raw_content,omitempty"`
}

// Result is a single hit.
type Result struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	RawContent string  `json:"raw_content,omitempty"`
}

// Response is the API's answer to a Request.
type Response struct {
	Query        string   `json:"query"`
	Answer       string   `json:"answer,omitempty"`
	Results      []Result `json:"results"`
	ResponseTime float64  `json:"response_time"`
}

// Client talks to the search API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New returns a client for cfg. A client without an API key is valid; Run
// then answers with a notice instead of results.
func New(cfg *config.Config) *Client {
	timeout := cfg.Search.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  config.GetSearchKey(cfg),
		baseURL: strings.TrimRight(cfg.Search.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Search runs req against the API.
func (c *Client) Search(ctx context.Context, req Request) (*Response, error) {
	if !c.Enabled() {
		return nil, config.ErrNoSearchKey
	}
	if err := normalize(&req); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &out, nil
}

// Run executes req for a model tool call and returns the text handed back
// to the model. Without an API key the model is told to fall back on its own
// knowledge.
func (c *Client) Run(ctx context.Context, req Request) (string, error) {
	if !c.Enabled() {
		return Unavailable(req.Query), nil
	}
	resp, err := c.Search(ctx, req)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("encode search results: %w", err)
	}
	return string(data), nil
}

// Unavailable is the tool output when search is not configured.
func Unavailable(query string) string {
	return fmt.Sprintf("[Web search unavailable — TAVILY_API_KEY not set] Query was: %s. "+
		"Provide analysis based on your training data instead.", query)
}

func normalize(req *Request) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return fmt.Errorf("search query is empty")
	}
	if req.Topic == "" {
		req.Topic = TopicGeneral
	}
	if !req.Topic.Valid() {
		return fmt.Errorf("invalid search topic %q: want general, news or finance", req.Topic)
	}
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}
	if req.MaxResults > maxResultsLimit {
		req.MaxResults = maxResultsLimit
	}
	return nil
}
