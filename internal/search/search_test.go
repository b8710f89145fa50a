package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ShayCichocki/validator/internal/config"
)

func newTestClient(t *testing.T, key string, h http.HandlerFunc) *Client {
	t.Helper()
	t.Setenv(config.EnvSearchAPIKey, "")

	cfg := config.Default()
	cfg.Search.APIKey = key
	if h != nil {
		srv := httptest.NewServer(h)
		t.Cleanup(srv.Close)
		cfg.Search.BaseURL = srv.URL
	}
	return New(cfg)
}

func TestRun_NoKey(t *testing.T) {
	c := newTestClient(t, "", nil)
	if c.Enabled() {
		t.Fatal("Enabled() = true without a key")
	}

	got, err := c.Run(context.Background(), Request{Query: "drone delivery market"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := "[Web search unavailable — TAVILY_API_KEY not set] Query was: drone delivery market. " +
		"Provide analysis based on your training data instead."
	if got != want {
		t.Errorf("Run() = %q, want %q", got, want)
	}

	if _, err := c.Search(context.Background(), Request{Query: "x"}); !errors.Is(err, config.ErrNoSearchKey) {
		t.Errorf("Search() error = %v, want ErrNoSearchKey", err)
	}
}

func TestSearch_SendsRequest(t *testing.T) {
	var got Request
	var auth, agent string
	c := newTestClient(t, "tvly-test", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/search" {
			t.Errorf("request = %s %s, want POST /search", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		agent = r.Header.Get("User-Agent")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"query":"pet insurance TAM","results":[{"title":"Report","url":"https://example.com","content":"$10B","score":0.9}],"response_time":0.4}`))
	})

	resp, err := c.Search(context.Background(), Request{Query: "  pet insurance TAM ", Topic: TopicFinance})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if auth != "Bearer tvly-test" {
		t.Errorf("Authorization = %q", auth)
	}
	if !strings.HasPrefix(agent, "validator/") {
		t.Errorf("User-Agent = %q, want validator/ prefix", agent)
	}
	if got.Query != "pet insurance TAM" || got.MaxResults != DefaultMaxResults || got.Topic != TopicFinance {
		t.Errorf("request body = %+v", got)
	}
	if len(resp.Results) != 1 || resp.Results[0].Content != "$10B" {
		t.Errorf("Results = %+v", resp.Results)
	}
}

func TestRun_ReturnsJSON(t *testing.T) {
	c := newTestClient(t, "tvly-test", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":"q","results":[{"title":"A","url":"u","content":"c","score":1}]}`))
	})

	out, err := c.Run(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	var resp Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("Run output is not JSON: %v", err)
	}
	if resp.Results[0].Title != "A" {
		t.Errorf("Title = %q, want A", resp.Results[0].Title)
	}
}

func TestSearch_Errors(t *testing.T) {
	c := newTestClient(t, "tvly-test", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	})

	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"empty query", Request{Query: "  "}, "empty"},
		{"bad topic", Request{Query: "q", Topic: "sports"}, "invalid search topic"},
		{"api error", Request{Query: "q"}, "401"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Search(context.Background(), tt.req)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Search() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestNormalize_ClampsResults(t *testing.T) {
	req := Request{Query: "q", MaxResults: 500}
	if err := normalize(&req); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if req.MaxResults != maxResultsLimit {
		t.Errorf("MaxResults = %d, want %d", req.MaxResults, maxResultsLimit)
	}
	if req.Topic != TopicGeneral {
		t.Errorf("Topic = %q, want general", req.Topic)
	}
}
