package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleManifest = `
name: example
version: 0.1.0
dependencies:
  - name: collections
    version: "^1.2"
    source: "./vendor/collections"
features: []
build:
  entry: main.nova
`

func TestParseDecodesAFullManifest(t *testing.T) {
	m, err := Parse([]byte(sampleManifest), "nova.yaml")
	require.NoError(t, err)

	require.Equal(t, "example", m.Name)
	require.Equal(t, "0.1.0", m.Version)
	require.Len(t, m.Dependencies, 1)
	require.Equal(t, "collections", m.Dependencies[0].Name)
	require.True(t, m.Dependencies[0].IsLocal())
	require.Equal(t, "main.nova", m.Build.Entry)
}

func TestParseDefaultsTheBuildEntryWhenOmitted(t *testing.T) {
	m, err := Parse([]byte("name: example\nversion: 0.1.0\n"), "nova.yaml")
	require.NoError(t, err)
	require.Equal(t, "main.nova", m.Build.Entry)
}

func TestParseRejectsAManifestMissingAName(t *testing.T) {
	_, err := Parse([]byte("version: 0.1.0\n"), "nova.yaml")
	require.Error(t, err)
}

func TestParseRejectsADependencyWithNeitherVersionNorSource(t *testing.T) {
	bad := "name: example\nversion: 0.1.0\ndependencies:\n  - name: collections\n"
	_, err := Parse([]byte(bad), "nova.yaml")
	require.Error(t, err)
}
