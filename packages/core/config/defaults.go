package config

import (
	"os"
	"path/filepath"
)

// DefaultWorkspace is the workspace id used when none is configured.
const DefaultWorkspace = "wk_default"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		DataDir:         DefaultDataDir(),
		Workspace:       DefaultWorkspace,
		UserAgent:       "hitsend",
		LogLevel:        "info",
		Timeout:         0,
		MaxRedirects:    10,
		FollowRedirects: BoolPtr(true),
		ValidateSSL:     BoolPtr(true),
		Compression:     BoolPtr(true),
		NoColor:         BoolPtr(false),
	}
}

// DefaultDataDir is ~/.hitsend, or .hitsend when the home directory is
// unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".hitsend"
	}
	return filepath.Join(home, ".hitsend")
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	d := DefaultConfig()
	return c.DataDir == d.DataDir &&
		c.ResponsesDir == d.ResponsesDir &&
		c.Database == d.Database &&
		c.Workspace == d.Workspace &&
		c.UserAgent == d.UserAgent &&
		c.LogLevel == d.LogLevel &&
		c.Timeout == d.Timeout &&
		c.MaxRedirects == d.MaxRedirects &&
		c.GetFollowRedirects() == d.GetFollowRedirects() &&
		c.GetValidateSSL() == d.GetValidateSSL() &&
		c.GetCompression() == d.GetCompression() &&
		c.Proxy == d.Proxy &&
		c.GetNoColor() == d.GetNoColor()
}
