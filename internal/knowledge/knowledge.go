// Package knowledge searches a directory of plain-text documents and
// ranks them by query term frequency.
package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru"
)

const (
	defaultCacheSize = 128
	previewLength    = 240
	minTermLength    = 3
)

// Result is one matching document.
type Result struct {
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview"`
}

// Store searches .txt and .md files under a directory. Query results are
// cached, so repeated lookups during a busy inbox don't reread the corpus.
type Store struct {
	dir   string
	cache *lru.Cache
}

func NewStore(dir string) (*Store, error) {
	cache, err := lru.New(defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create knowledge cache: %w", err)
	}
	return &Store{dir: dir, cache: cache}, nil
}

// IsConfigured reports whether the knowledge directory exists.
func (s *Store) IsConfigured() bool {
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}

// Search returns the documents most relevant to the query, best first.
func (s *Store) Search(query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 3
	}

	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	cacheKey := fmt.Sprintf("%s|%d", strings.Join(terms, " "), limit)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.([]Result), nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge dir: %w", err)
	}

	var results []Result
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}

		content, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}

		score, firstMatch := scoreDocument(string(content), terms)
		if score <= 0 {
			continue
		}

		results = append(results, Result{
			Source:  entry.Name(),
			Score:   score,
			Preview: preview(string(content), firstMatch),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	s.cache.Add(cacheKey, results)
	return results, nil
}

// queryTerms lowercases the query and drops terms too short to be selective.
func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	var terms []string
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()")
		if len(f) >= minTermLength {
			terms = append(terms, f)
		}
	}
	return terms
}

// scoreDocument counts term occurrences, normalized by document length so
// short focused documents are not drowned out by long ones.
func scoreDocument(content string, terms []string) (float64, int) {
	lowered := strings.ToLower(content)

	total := 0
	firstMatch := -1
	for _, term := range terms {
		count := strings.Count(lowered, term)
		if count > 0 {
			total += count
			if idx := strings.Index(lowered, term); firstMatch == -1 || idx < firstMatch {
				firstMatch = idx
			}
		}
	}
	if total == 0 {
		return 0, -1
	}

	words := len(strings.Fields(content))
	if words == 0 {
		words = 1
	}
	return float64(total) / float64(words) * 100, firstMatch
}

// preview returns a snippet around the first match, cut on rune boundaries.
func preview(content string, firstMatch int) string {
	start := 0
	if firstMatch > 80 {
		start = runeStart(content, firstMatch-80)
	}
	end := start + previewLength
	if end >= len(content) {
		end = len(content)
	} else {
		end = runeStart(content, end)
	}

	snippet := strings.TrimSpace(content[start:end])
	snippet = strings.ReplaceAll(snippet, "\n", " ")
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet += "..."
	}
	return snippet
}

// runeStart moves idx back to the start of the UTF-8 rune it lands in.
func runeStart(s string, idx int) int {
	for idx > 0 && !utf8.RuneStart(s[idx]) {
		idx--
	}
	return idx
}
