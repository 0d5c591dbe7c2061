package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const (
	serperAPIURL = "https://google.serper.dev/search"
	tavilyAPIURL = "https://api.tavily.com/search"
	googleAPIURL = "https://www.googleapis.com/customsearch/v1"
	bingAPIURL   = "https://api.bing.microsoft.com/v7.0/search"
)

func (s *Service) searchSerper(ctx context.Context, query string) ([]Result, error) {
	payload := map[string]any{
		"q":   query,
		"num": s.cfg.MaxResults,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal serper request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.serperURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create serper request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.cfg.SerperAPIKey)

	respBody, err := s.doRequest(req, EngineSerper)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Organic []struct {
			Title    string `json:"title"`
			Link     string `json:"link"`
			Snippet  string `json:"snippet"`
			Position int    `json:"position"`
		} `json:"organic"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse serper response: %w", err)
	}

	results := make([]Result, 0, len(resp.Organic))
	for i, item := range resp.Organic {
		position := item.Position
		if position == 0 {
			position = i + 1
		}
		results = append(results, Result{
			Title:    item.Title,
			Link:     item.Link,
			Snippet:  item.Snippet,
			Source:   EngineSerper,
			Position: position,
		})
	}
	return results, nil
}

func (s *Service) searchTavily(ctx context.Context, query string) ([]Result, error) {
	payload := map[string]any{
		"api_key":        s.cfg.TavilyAPIKey,
		"query":          query,
		"search_depth":   "basic",
		"include_answer": true,
		"max_results":    s.cfg.MaxResults,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.tavilyURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := s.doRequest(req, EngineTavily)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Answer  string `json:"answer"`
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse tavily response: %w", err)
	}

	var results []Result
	if resp.Answer != "" {
		// Tavily's synthesized answer leads the result list
		results = append(results, Result{
			Title:    "Answer",
			Snippet:  resp.Answer,
			Source:   EngineTavily,
			Position: 0,
		})
	}
	for i, item := range resp.Results {
		results = append(results, Result{
			Title:    item.Title,
			Link:     item.URL,
			Snippet:  item.Content,
			Source:   EngineTavily,
			Position: i + 1,
		})
	}
	return results, nil
}

func (s *Service) searchGoogle(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("key", s.cfg.GoogleCSEKey)
	params.Set("cx", s.cfg.GoogleCSEID)
	params.Set("q", query)
	params.Set("num", fmt.Sprintf("%d", s.cfg.MaxResults))

	req, err := http.NewRequestWithContext(ctx, "GET", s.googleURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create google request: %w", err)
	}

	respBody, err := s.doRequest(req, EngineGoogle)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse google response: %w", err)
	}

	results := make([]Result, 0, len(resp.Items))
	for i, item := range resp.Items {
		results = append(results, Result{
			Title:    item.Title,
			Link:     item.Link,
			Snippet:  item.Snippet,
			Source:   EngineGoogle,
			Position: i + 1,
		})
	}
	return results, nil
}

func (s *Service) searchBing(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", fmt.Sprintf("%d", s.cfg.MaxResults))

	req, err := http.NewRequestWithContext(ctx, "GET", s.bingURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create bing request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.cfg.BingAPIKey)

	respBody, err := s.doRequest(req, EngineBing)
	if err != nil {
		return nil, err
	}

	var resp struct {
		WebPages struct {
			Value []struct {
				Name    string `json:"name"`
				URL     string `json:"url"`
				Snippet string `json:"snippet"`
			} `json:"value"`
		} `json:"webPages"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse bing response: %w", err)
	}

	results := make([]Result, 0, len(resp.WebPages.Value))
	for i, item := range resp.WebPages.Value {
		results = append(results, Result{
			Title:    item.Name,
			Link:     item.URL,
			Snippet:  item.Snippet,
			Source:   EngineBing,
			Position: i + 1,
		})
	}
	return results, nil
}

func (s *Service) doRequest(req *http.Request, engine string) ([]byte, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", engine, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", engine, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error (status %d): %s", engine, resp.StatusCode, string(body))
	}

	return body, nil
}
