package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, files map[string]string) *Store {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	store, err := NewStore(dir)
	require.NoError(t, err)
	return store
}

func TestSearchRanksByRelevance(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"pricing.md":  "Pricing guide. The enterprise tier pricing starts at $500 per month. Pricing is annual.",
		"onboard.txt": "Onboarding steps for new customers. Mention pricing once.",
		"random.txt":  "Nothing relevant here at all.",
	})

	results, err := store.Search("enterprise pricing", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "pricing.md", results[0].Source)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Contains(t, results[0].Preview, "enterprise tier")
}

func TestSearchIgnoresOtherExtensions(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"notes.md":  "refund policy details",
		"data.json": "refund refund refund",
	})

	results, err := store.Search("refund", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "notes.md", results[0].Source)
}

func TestSearchLimit(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"a.md": "shipping info",
		"b.md": "shipping info",
		"c.md": "shipping info",
	})

	results, err := store.Search("shipping", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchNoMatch(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"a.md": "nothing useful",
	})

	results, err := store.Search("quantum computing", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchShortTermsDropped(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"a.md": "it is an od",
	})

	// All terms under the minimum length, so nothing to search for
	results, err := store.Search("it is an", 5)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestSearchPreviewKeepsRuneBoundaries(t *testing.T) {
	// Multi-byte text around the match window forces the preview cut
	// points onto continuation bytes unless they are adjusted.
	content := strings.Repeat("é", 200) + " shipping " + strings.Repeat("ü", 200)
	store := newTestStore(t, map[string]string{"intl.md": content})

	results, err := store.Search("shipping", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, utf8.ValidString(results[0].Preview))
}

func TestSearchUsesCache(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("billing details"), 0o644))

	store, err := NewStore(dir)
	require.NoError(t, err)

	first, err := store.Search("billing", 5)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Removing the file doesn't change cached results
	require.NoError(t, os.Remove(filepath.Join(dir, "a.md")))

	second, err := store.Search("billing", 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIsConfigured(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	assert.True(t, store.IsConfigured())

	missing, err := NewStore("/nonexistent/knowledge")
	require.NoError(t, err)
	assert.False(t, missing.IsConfigured())
}
