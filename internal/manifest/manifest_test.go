package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"dashboard-bootstrap/internal/manifest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultManifest(t *testing.T) {
	m, err := manifest.Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"python3", "python3-pip", "git", "aws-cli"}, m.Packages)
	require.Len(t, m.Artifacts, 2)
	assert.Equal(t, "app.py", m.Artifacts[0].Key)
	assert.Equal(t, "StudentPerformanceFactors.csv", m.Artifacts[1].Key)
	assert.Equal(t, "csv", m.Artifacts[1].Verify)
	assert.Equal(t, manifest.OnFailureAbort, m.Artifacts[0].OnFailure)
	assert.Equal(t, manifest.OnFailureContinue, m.Artifacts[1].OnFailure)
	assert.Contains(t, m.Requirements, "streamlit==1.32.0")
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := manifest.Parse([]byte("packages: [git]\nunknown: 1\n"))
	assert.Error(t, err)
}

func TestParseRejectsDuplicateArtifacts(t *testing.T) {
	data := `
artifacts:
  - {name: a, key: k1, dest: d1}
  - {name: a, key: k2, dest: d2}
`
	_, err := manifest.Parse([]byte(data))
	assert.ErrorContains(t, err, "duplicate artifact name")
}

func TestParseRejectsBadVerifyMode(t *testing.T) {
	_, err := manifest.Parse([]byte("artifacts:\n  - {name: a, key: k, dest: d, verify: sha}\n"))
	assert.ErrorContains(t, err, "unknown verify mode")
}

func TestParseRejectsBadFailurePolicy(t *testing.T) {
	_, err := manifest.Parse([]byte("artifacts:\n  - {name: a, key: k, dest: d, on_failure: ignore}\n"))
	assert.ErrorContains(t, err, "unknown on_failure")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("packages: [git]\nrequirements: [requests==2.31.0]\n"), 0644))

	m, err := manifest.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"git"}, m.Packages)
	assert.Equal(t, []string{"requests==2.31.0"}, m.Requirements)
	assert.Empty(t, m.Artifacts)
}
