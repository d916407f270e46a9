package urlnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStripsFragmentAndTrailingSlash(t *testing.T) {
	got, err := Normalize("HTTPS://Example.com/docs/guide/#section-1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/docs/guide", got)
}

func TestNormalizeKeepsRootSlash(t *testing.T) {
	got, err := Normalize("https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", got)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	once, err := Normalize("https://Example.com/a/b/?z=1&a=2#frag")
	require.NoError(t, err)
	twice, err := Normalize(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestNormalizeSortsQueryParams(t *testing.T) {
	got, err := Normalize("https://example.com/search?b=2&a=1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/search?a=1&b=2", got)
}

func TestNormalizeRejectsRelative(t *testing.T) {
	_, err := Normalize("/docs/guide")
	require.Error(t, err)
}

func TestIsBinary(t *testing.T) {
	assert.True(t, IsBinary("https://example.com/logo.png"))
	assert.True(t, IsBinary("https://example.com/archive.tar.gz"))
	assert.False(t, IsBinary("https://example.com/docs/guide"))
	assert.False(t, IsBinary("https://example.com/docs/guide.html"))
}

func TestResolve(t *testing.T) {
	got, err := Resolve("https://example.com/docs/guide", "../other")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/other", got)
}

func TestSameHost(t *testing.T) {
	assert.True(t, SameHost("https://example.com/a", "https://example.com/b"))
	assert.False(t, SameHost("https://example.com/a", "https://other.com/b"))
}
