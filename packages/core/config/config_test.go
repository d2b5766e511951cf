package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitsend/packages/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.True(t, c.IsDefault())
	assert.True(t, c.GetFollowRedirects())
	assert.True(t, c.GetValidateSSL())
	assert.True(t, c.GetCompression())
	assert.False(t, c.GetNoColor())
	assert.Equal(t, filepath.Join(c.DataDir, "responses"), c.ResponsesPath())
	assert.Equal(t, filepath.Join(c.DataDir, "hitsend.db"), c.DatabasePath())
	assert.Zero(t, c.TimeoutDuration())
	assert.Nil(t, c.ProxySetting())
}

func TestNilBoolsUseDefaults(t *testing.T) {
	c := &Config{}
	assert.True(t, c.GetFollowRedirects())
	assert.True(t, c.GetValidateSSL())
	assert.True(t, c.GetCompression())
	assert.False(t, c.GetNoColor())
}

func TestLoadConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".hitsend.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"dataDir": "/tmp/hs",
		"timeout": 1500,
		"validateSSL": false,
		"userAgent": "custom/1.0"
	}`), 0644))

	c, err := FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/hs", c.DataDir)
	assert.Equal(t, 1500*time.Millisecond, c.TimeoutDuration())
	assert.False(t, c.GetValidateSSL())
	assert.True(t, c.GetFollowRedirects())
	assert.Equal(t, "custom/1.0", c.UserAgent)
	assert.Equal(t, DefaultWorkspace, c.Workspace)
	assert.Equal(t, "/tmp/hs/responses", c.ResponsesPath())
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("responsesDir: /var/hs/bodies\nfollowRedirects: false\nproxy: http://proxy:3128\n"), 0644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/hs/bodies", c.ResponsesPath())
	assert.False(t, c.GetFollowRedirects())
	assert.Equal(t, &models.ProxySetting{Type: models.ProxyEnabled, HTTP: "http://proxy:3128", HTTPS: "http://proxy:3128"}, c.ProxySetting())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestFindAndLoadConfig_NoFile(t *testing.T) {
	c, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.True(t, c.IsDefault())
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	merged := base.Merge(&Config{
		Timeout:     250,
		ValidateSSL: BoolPtr(false),
		LogLevel:    "debug",
	})

	assert.Equal(t, 250, merged.Timeout)
	assert.False(t, merged.GetValidateSSL())
	assert.True(t, merged.GetFollowRedirects())
	assert.Equal(t, "debug", merged.LogLevel)
	assert.Equal(t, base.DataDir, merged.DataDir)

	// The receiver is not modified.
	assert.True(t, base.GetValidateSSL())
	assert.Same(t, base, base.Merge(nil))
}

func TestFromEnv(t *testing.T) {
	vars := map[string]string{
		"HITSEND_DATA_DIR":         "/data",
		"HITSEND_TIMEOUT":          "900",
		"HITSEND_VALIDATE_SSL":     "no",
		"HITSEND_FOLLOW_REDIRECTS": "maybe",
		"HITSEND_PROXY":            "off",
	}
	c := FromEnv(func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	})

	assert.Equal(t, "/data", c.DataDir)
	assert.Equal(t, 900, c.Timeout)
	require.NotNil(t, c.ValidateSSL)
	assert.False(t, *c.ValidateSSL)
	assert.Nil(t, c.FollowRedirects)
	assert.Equal(t, &models.ProxySetting{Type: models.ProxyDisabled}, c.ProxySetting())
}

func TestSaveConfig(t *testing.T) {
	dir := t.TempDir()
	c := DefaultConfig().Merge(&Config{Timeout: 42})

	for _, name := range []string{"out.json", "out.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, c.SaveConfig(path))

		loaded, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 42, loaded.Timeout)
		assert.Equal(t, c.DataDir, loaded.DataDir)
	}
}
