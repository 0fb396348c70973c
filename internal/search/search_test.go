package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type mockProvider struct {
	name    string
	results []Result
	err     error
	gotOpts Options
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Search(_ context.Context, query string, opts Options) ([]Result, error) {
	m.gotOpts = opts
	return m.results, m.err
}

func TestManager_SearchUsesPrimary(t *testing.T) {
	mgr := NewManager("mock")
	mock := &mockProvider{
		name:    "mock",
		results: []Result{{Title: "Banana nutrition", URL: "https://example.com", Snippet: "422mg potassium"}},
	}
	mgr.Register(mock)

	results, err := mgr.Search(context.Background(), "banana potassium", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Title != "Banana nutrition" {
		t.Errorf("results = %+v", results)
	}
}

func TestManager_UnconfiguredProvider(t *testing.T) {
	mgr := NewManager("brave")

	_, err := mgr.Search(context.Background(), "anything", Options{})
	if err == nil {
		t.Fatal("Search() error = nil, want provider-not-configured error")
	}
}

func TestManager_ClampsCount(t *testing.T) {
	mock := &mockProvider{name: "mock"}
	mgr := NewManager("mock")
	mgr.Register(mock)

	if _, err := mgr.Search(context.Background(), "q", Options{Count: 50}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if mock.gotOpts.Count != MaxResults {
		t.Errorf("Count = %d, want %d", mock.gotOpts.Count, MaxResults)
	}
}

func TestSearXNG_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("format = %q, want json", got)
		}
		resp := searxngResponse{}
		for i := range 8 {
			resp.Results = append(resp.Results, struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Content string `json:"content"`
			}{
				Title:   fmt.Sprintf("Result %d", i+1),
				URL:     fmt.Sprintf("https://example.com/%d", i+1),
				Content: "snippet",
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewSearXNG(srv.URL)
	results, err := p.Search(context.Background(), "chicken breast protein", Options{Count: 3})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Errorf("len(results) = %d, want 3 (bounded)", len(results))
	}
}

func TestSearXNG_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewSearXNG(srv.URL)
	_, err := p.Search(context.Background(), "q", Options{})
	if err == nil {
		t.Fatal("Search() error = nil, want HTTP error")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %v, want mention of status 429", err)
	}
}

func TestFormatResults(t *testing.T) {
	out := FormatResults([]Result{
		{Title: "First", URL: "https://a.com", Snippet: "Snippet A"},
		{Title: "Second", URL: "https://b.com"},
	})
	if !strings.Contains(out, "1. First") || !strings.Contains(out, "2. Second") {
		t.Errorf("output missing numbered entries:\n%s", out)
	}
	if !strings.Contains(out, "Snippet A") {
		t.Errorf("output missing snippet:\n%s", out)
	}
}

func TestFormatResultsEmpty(t *testing.T) {
	if out := FormatResults(nil); out != "No results found." {
		t.Errorf("FormatResults(nil) = %q, want 'No results found.'", out)
	}
}
