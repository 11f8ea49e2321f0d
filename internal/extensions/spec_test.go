package extensions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSpecRegistryReference(t *testing.T) {
	spec, err := ResolveSpec("fof/polls:*")
	require.NoError(t, err)

	assert.True(t, spec.FromRegistry())
	assert.Equal(t, "fof/polls:*", spec.Registry)
	assert.Empty(t, spec.URL)
	assert.Equal(t, "fof-polls", ExtensionID(spec))
}

func TestResolveSpecPlainURL(t *testing.T) {
	spec, err := ResolveSpec("https://example.com/downloads/my-theme.zip")
	require.NoError(t, err)

	assert.False(t, spec.FromRegistry())
	assert.Equal(t, "https://example.com/downloads/my-theme.zip", spec.URL)
	assert.Equal(t, "my-theme", spec.Directory)
	assert.False(t, spec.Wrapped)
}

func TestResolveSpecExtractsQueryParams(t *testing.T) {
	spec, err := ResolveSpec("https://example.com/pkg.zip?directory=custom-name&token=s3cret")
	require.NoError(t, err)

	assert.Equal(t, "custom-name", spec.Directory)
	assert.Equal(t, "s3cret", spec.Token)
	assert.Equal(t, "https://example.com/pkg.zip", spec.URL)
}

func TestResolveSpecQueryParamsOrderIndependent(t *testing.T) {
	a, err := ResolveSpec("https://example.com/pkg.zip?directory=x&token=y")
	require.NoError(t, err)
	b, err := ResolveSpec("https://example.com/pkg.zip?token=y&directory=x")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestResolveSpecRewritesGithubArchiveWithToken(t *testing.T) {
	spec, err := ResolveSpec("https://github.com/acme/forum-theme/archive/refs/heads/main.zip?token=tkn")
	require.NoError(t, err)

	assert.Equal(t, "https://api.github.com/repos/acme/forum-theme/zipball/main", spec.URL)
	assert.Equal(t, "tkn", spec.Token)
	assert.Equal(t, "forum-theme", spec.Directory)
	assert.True(t, spec.Wrapped, "API zipballs nest content under a wrapper folder")
}

func TestResolveSpecGithubArchiveWithoutTokenStaysPut(t *testing.T) {
	spec, err := ResolveSpec("https://github.com/acme/forum-theme/archive/v1.2.zip")
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/acme/forum-theme/archive/v1.2.zip", spec.URL)
	assert.False(t, spec.Wrapped)
}

func TestResolveSpecDirectAPIZipballIsWrapped(t *testing.T) {
	spec, err := ResolveSpec("https://api.github.com/repos/acme/forum-theme/zipball/main?directory=theme")
	require.NoError(t, err)

	assert.True(t, spec.Wrapped)
	assert.Equal(t, "theme", spec.Directory)
}

func TestResolveSpecRejectsGarbage(t *testing.T) {
	for _, line := range []string{
		"",
		"   ",
		"not-a-spec",
		"vendor/name", // missing constraint
		"ftp://example.com/pkg.zip",
		"://bad",
	} {
		_, err := ResolveSpec(line)
		assert.Error(t, err, "line %q", line)
	}
}
