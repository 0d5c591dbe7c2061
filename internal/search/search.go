// Package search provides web search over several engine APIs with
// engine selection by search type and fallback on failure.
package search

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Search types callers can ask for. The type picks the preferred engine.
const (
	TypeGeneral   = "general"
	TypeNews      = "news"
	TypeAIContext = "ai_context"
)

// Engine identifiers.
const (
	EngineSerper = "serper"
	EngineTavily = "tavily"
	EngineGoogle = "google"
	EngineBing   = "bing"
)

// Result is a normalized search hit.
type Result struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Source   string `json:"source"`
	Position int    `json:"position"`
}

// Config holds the engine API keys. Engines without a key are skipped.
type Config struct {
	SerperAPIKey string
	TavilyAPIKey string
	GoogleCSEKey string
	GoogleCSEID  string
	BingAPIKey   string
	MaxResults   int
	Timeout      time.Duration
}

// Service searches the web through whichever engines are configured.
type Service struct {
	cfg        Config
	httpClient *http.Client

	// endpoint overrides for tests
	serperURL string
	tavilyURL string
	googleURL string
	bingURL   string
}

func NewService(cfg Config) *Service {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Service{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		serperURL:  serperAPIURL,
		tavilyURL:  tavilyAPIURL,
		googleURL:  googleAPIURL,
		bingURL:    bingAPIURL,
	}
}

// IsConfigured reports whether at least one engine has an API key.
func (s *Service) IsConfigured() bool {
	return len(s.ConfiguredEngines()) > 0
}

// ConfiguredEngines lists the engines that have credentials, in fallback order.
func (s *Service) ConfiguredEngines() []string {
	var engines []string
	if s.cfg.SerperAPIKey != "" {
		engines = append(engines, EngineSerper)
	}
	if s.cfg.TavilyAPIKey != "" {
		engines = append(engines, EngineTavily)
	}
	if s.cfg.GoogleCSEKey != "" && s.cfg.GoogleCSEID != "" {
		engines = append(engines, EngineGoogle)
	}
	if s.cfg.BingAPIKey != "" {
		engines = append(engines, EngineBing)
	}
	return engines
}

// Search runs the query on the preferred engine for the search type and
// falls back through the remaining configured engines on failure.
func (s *Service) Search(ctx context.Context, query, searchType string) ([]Result, error) {
	engines := s.engineOrder(searchType)
	if len(engines) == 0 {
		return nil, fmt.Errorf("no search engine configured")
	}

	var lastErr error
	for _, engine := range engines {
		results, err := s.searchEngine(ctx, engine, query)
		if err != nil {
			lastErr = err
			continue
		}
		if len(results) > s.cfg.MaxResults {
			results = results[:s.cfg.MaxResults]
		}
		return results, nil
	}

	return nil, fmt.Errorf("all search engines failed: %w", lastErr)
}

// engineOrder returns the configured engines with the preferred engine for
// the search type moved to the front.
func (s *Service) engineOrder(searchType string) []string {
	engines := s.ConfiguredEngines()

	var preferred string
	switch searchType {
	case TypeAIContext:
		preferred = EngineTavily
	case TypeNews:
		preferred = EngineBing
	default:
		preferred = EngineSerper
	}

	for i, engine := range engines {
		if engine == preferred && i > 0 {
			ordered := make([]string, 0, len(engines))
			ordered = append(ordered, engine)
			ordered = append(ordered, engines[:i]...)
			ordered = append(ordered, engines[i+1:]...)
			return ordered
		}
	}
	return engines
}

func (s *Service) searchEngine(ctx context.Context, engine, query string) ([]Result, error) {
	switch engine {
	case EngineSerper:
		return s.searchSerper(ctx, query)
	case EngineTavily:
		return s.searchTavily(ctx, query)
	case EngineGoogle:
		return s.searchGoogle(ctx, query)
	case EngineBing:
		return s.searchBing(ctx, query)
	default:
		return nil, fmt.Errorf("unknown search engine: %s", engine)
	}
}
