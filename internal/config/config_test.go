package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRequiresDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")
	_, err := Init("")
	assert.ErrorIs(t, err, ErrDatabaseURLMissing)
}

func TestInitAppliesDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite3://file:test?mode=memory")
	t.Setenv("DEFAULT_THRESHOLD", "42.5")

	k, err := Init("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite3://file:test?mode=memory", k.DatabaseURL)
	assert.Equal(t, 42.5, k.DefaultThreshold)
	assert.Equal(t, "https://data.transportation.gov", k.ExternalAPIBase)
}

func TestInitAppliesOverlayFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite3://file:test2?mode=memory")

	dir := t.TempDir()
	overlay := filepath.Join(dir, "overlay.json")
	require.NoError(t, os.WriteFile(overlay, []byte(`{"default_threshold": 15.0, "s3_bucket": "chameleon-reports"}`), 0o644))

	k, err := Init(overlay)
	require.NoError(t, err)
	assert.Equal(t, 15.0, k.DefaultThreshold)
	assert.Equal(t, "chameleon-reports", k.S3Bucket)
}

func TestInitRejectsInvalidOverlay(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite3://file:test3?mode=memory")

	dir := t.TempDir()
	overlay := filepath.Join(dir, "overlay.json")
	require.NoError(t, os.WriteFile(overlay, []byte(`{"default_threshold": "not-a-number"}`), 0o644))

	_, err := Init(overlay)
	assert.Error(t, err)
}
