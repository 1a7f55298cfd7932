package newsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/sports-feed/internal/platform/resilience"
	"github.com/riskibarqy/sports-feed/internal/usecase"
)

func TestFetchArticles_MapsResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/everything" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "tennis" || q.Get("sortBy") != "publishedAt" || q.Get("language") != "en" || q.Get("pageSize") != "20" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("X-Api-Key") != "news-key" {
			t.Errorf("missing api key header")
		}
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":2,"articles":[
			{"source":{"id":null,"name":"BBC Sport"},"title":"Final preview","description":"d","url":"https://news.example/a","urlToImage":"https://img.example/a.jpg","publishedAt":"2026-10-18T09:30:00Z","content":"c"},
			{"source":{"name":"Wire"},"title":"No date","url":"https://news.example/b","publishedAt":""}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "news-key"})
	items, err := client.FetchArticles(context.Background(), usecase.NewsQuery{Category: "tennis"})
	if err != nil {
		t.Fatalf("fetch articles: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(items))
	}
	first := items[0]
	if first.Title != "Final preview" || first.Source != "BBC Sport" || first.ImageURL != "https://img.example/a.jpg" {
		t.Fatalf("unexpected article: %+v", first)
	}
	if first.PublishedAt == nil || !first.PublishedAt.Equal(time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected published at: %v", first.PublishedAt)
	}
	if items[1].PublishedAt != nil {
		t.Fatalf("expected nil published at for empty value")
	}
}

func TestFetchArticles_ErrorStatusIsFetchFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"Your API key news-key is invalid"}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "news-key"})
	_, err := client.FetchArticles(context.Background(), usecase.NewsQuery{Category: "football"})
	if !errors.Is(err, usecase.ErrUpstreamFetch) {
		t.Fatalf("expected fetch failure, got %v", err)
	}
	if strings.Contains(err.Error(), "news-key") {
		t.Fatalf("api key leaked: %v", err)
	}
}

func TestFetchArticles_MalformedBodyIsSchemaFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","articles":{}}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "news-key"})
	_, err := client.FetchArticles(context.Background(), usecase.NewsQuery{Category: "football"})
	if !errors.Is(err, usecase.ErrUpstreamSchema) {
		t.Fatalf("expected schema failure, got %v", err)
	}
}

func TestFetchArticles_BreakerOpensOnServerErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:        srv.URL,
		APIKey:         "news-key",
		CircuitBreaker: resilience.BreakerConfig{Enabled: true, FailureThreshold: 2, OpenTimeout: time.Minute},
	})

	for i := 0; i < 3; i++ {
		_, err := client.FetchArticles(context.Background(), usecase.NewsQuery{Category: "football"})
		if !errors.Is(err, usecase.ErrUpstreamFetch) {
			t.Fatalf("attempt %d: expected fetch failure, got %v", i, err)
		}
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected breaker to stop the third call, server saw %d", got)
	}
}
