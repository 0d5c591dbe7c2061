package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfiguredEngines(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected []string
	}{
		{
			name:     "none configured",
			cfg:      Config{},
			expected: nil,
		},
		{
			name:     "serper only",
			cfg:      Config{SerperAPIKey: "k"},
			expected: []string{EngineSerper},
		},
		{
			name:     "google needs both key and cx",
			cfg:      Config{GoogleCSEKey: "k"},
			expected: nil,
		},
		{
			name: "all configured",
			cfg: Config{
				SerperAPIKey: "k", TavilyAPIKey: "k",
				GoogleCSEKey: "k", GoogleCSEID: "cx", BingAPIKey: "k",
			},
			expected: []string{EngineSerper, EngineTavily, EngineGoogle, EngineBing},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.cfg)
			assert.Equal(t, tt.expected, svc.ConfiguredEngines())
			assert.Equal(t, len(tt.expected) > 0, svc.IsConfigured())
		})
	}
}

func TestEngineOrderBySearchType(t *testing.T) {
	svc := NewService(Config{
		SerperAPIKey: "k", TavilyAPIKey: "k",
		GoogleCSEKey: "k", GoogleCSEID: "cx", BingAPIKey: "k",
	})

	assert.Equal(t, []string{EngineSerper, EngineTavily, EngineGoogle, EngineBing},
		svc.engineOrder(TypeGeneral))
	assert.Equal(t, []string{EngineTavily, EngineSerper, EngineGoogle, EngineBing},
		svc.engineOrder(TypeAIContext))
	assert.Equal(t, []string{EngineBing, EngineSerper, EngineTavily, EngineGoogle},
		svc.engineOrder(TypeNews))
}

func TestSearchSerper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		w.Write([]byte(`{"organic":[
			{"title":"Go","link":"https://go.dev","snippet":"The Go language","position":1},
			{"title":"Docs","link":"https://go.dev/doc","snippet":"Documentation","position":2}
		]}`))
	}))
	defer server.Close()

	svc := NewService(Config{SerperAPIKey: "secret"})
	svc.serperURL = server.URL

	results, err := svc.Search(context.Background(), "golang", TypeGeneral)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Go", results[0].Title)
	assert.Equal(t, EngineSerper, results[0].Source)
	assert.Equal(t, 1, results[0].Position)
}

func TestSearchTavilyIncludesAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answer":"Go is a programming language.","results":[
			{"title":"Go","url":"https://go.dev","content":"The Go language"}
		]}`))
	}))
	defer server.Close()

	svc := NewService(Config{TavilyAPIKey: "secret"})
	svc.tavilyURL = server.URL

	results, err := svc.Search(context.Background(), "what is golang", TypeAIContext)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Answer", results[0].Title)
	assert.Equal(t, "Go is a programming language.", results[0].Snippet)
	assert.Equal(t, EngineTavily, results[1].Source)
}

func TestSearchBing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "golang news", r.URL.Query().Get("q"))
		w.Write([]byte(`{"webPages":{"value":[
			{"name":"Go 1.24 released","url":"https://go.dev/blog","snippet":"Release notes"}
		]}}`))
	}))
	defer server.Close()

	svc := NewService(Config{BingAPIKey: "secret"})
	svc.bingURL = server.URL

	results, err := svc.Search(context.Background(), "golang news", TypeNews)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Go 1.24 released", results[0].Title)
}

func TestSearchFallsBackOnFailure(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"title":"Result","link":"https://example.com","snippet":"found"}]}`))
	}))
	defer working.Close()

	svc := NewService(Config{
		SerperAPIKey: "k",
		GoogleCSEKey: "k", GoogleCSEID: "cx",
	})
	svc.serperURL = broken.URL
	svc.googleURL = working.URL

	results, err := svc.Search(context.Background(), "anything", TypeGeneral)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, EngineGoogle, results[0].Source)
}

func TestSearchAllEnginesFail(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer broken.Close()

	svc := NewService(Config{SerperAPIKey: "k"})
	svc.serperURL = broken.URL

	_, err := svc.Search(context.Background(), "anything", TypeGeneral)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all search engines failed")
}

func TestSearchNoEngines(t *testing.T) {
	svc := NewService(Config{})
	_, err := svc.Search(context.Background(), "anything", TypeGeneral)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no search engine configured")
}

func TestSearchTruncatesToMaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic":[
			{"title":"1","link":"a","snippet":"s"},
			{"title":"2","link":"b","snippet":"s"},
			{"title":"3","link":"c","snippet":"s"}
		]}`))
	}))
	defer server.Close()

	svc := NewService(Config{SerperAPIKey: "k", MaxResults: 2})
	svc.serperURL = server.URL

	results, err := svc.Search(context.Background(), "q", TypeGeneral)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
