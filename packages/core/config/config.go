package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitsend/packages/models"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk and environment configuration. Pointer fields
// distinguish unset from false so layers can be merged.
type Config struct {
	DataDir         string `json:"dataDir,omitempty" yaml:"dataDir,omitempty"`
	ResponsesDir    string `json:"responsesDir,omitempty" yaml:"responsesDir,omitempty"`
	Database        string `json:"database,omitempty" yaml:"database,omitempty"`
	Workspace       string `json:"workspace,omitempty" yaml:"workspace,omitempty"`
	UserAgent       string `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	LogLevel        string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	Timeout         int    `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds, 0 means none
	MaxRedirects    int    `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	FollowRedirects *bool  `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	ValidateSSL     *bool  `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Compression     *bool  `json:"compression,omitempty" yaml:"compression,omitempty"`
	// Proxy is a proxy URL used for both schemes, or "off" to disable
	// proxying. Empty leaves the decision to the stored settings.
	Proxy   string `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	NoColor *bool  `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

func BoolPtr(b bool) *bool {
	return &b
}

func boolOr(b *bool, fallback bool) bool {
	if b != nil {
		return *b
	}
	return fallback
}

func (c *Config) GetFollowRedirects() bool {
	return boolOr(c.FollowRedirects, true)
}

func (c *Config) GetValidateSSL() bool {
	return boolOr(c.ValidateSSL, true)
}

func (c *Config) GetCompression() bool {
	return boolOr(c.Compression, true)
}

// GetNoColor defaults to false; the other Get* helpers default to true.
func (c *Config) GetNoColor() bool {
	return boolOr(c.NoColor, false)
}

// TimeoutDuration returns Timeout as a duration.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// ResponsesPath is where response bodies are written.
func (c *Config) ResponsesPath() string {
	if c.ResponsesDir != "" {
		return c.ResponsesDir
	}
	return filepath.Join(c.DataDir, "responses")
}

// DatabasePath is the SQLite database location.
func (c *Config) DatabasePath() string {
	if c.Database != "" {
		return c.Database
	}
	return filepath.Join(c.DataDir, "hitsend.db")
}

// ProxySetting converts Proxy into a stored proxy setting, or nil when no
// proxy is configured.
func (c *Config) ProxySetting() *models.ProxySetting {
	switch strings.ToLower(c.Proxy) {
	case "":
		return nil
	case "off", "none", "disabled":
		return &models.ProxySetting{Type: models.ProxyDisabled}
	}
	return &models.ProxySetting{Type: models.ProxyEnabled, HTTP: c.Proxy, HTTPS: c.Proxy}
}

// ConfigFilenames are probed in order when no --config path is given.
var ConfigFilenames = []string{
	".hitsend.json",
	"hitsend.config.json",
	".hitsend.yaml",
	".hitsend.yml",
}

// LoadConfig reads path, or the first of ConfigFilenames found in the
// working directory. Missing files yield the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return FindAndLoadConfig(".")
	}
	return readFile(path)
}

func FindAndLoadConfig(dir string) (*Config, error) {
	for _, name := range ConfigFilenames {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return readFile(candidate)
		}
	}
	return DefaultConfig(), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func readFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file Config
	if isYAML(path) {
		err = yaml.Unmarshal(raw, &file)
	} else {
		err = json.Unmarshal(raw, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return DefaultConfig().Merge(&file), nil
}

// FromEnv reads HITSEND_* overrides through lookup. Unset or unparsable
// values are left empty so Merge ignores them.
func FromEnv(lookup func(string) (string, bool)) *Config {
	c := &Config{}
	str := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	boolean := func(key string) *bool {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			return BoolPtr(true)
		case "false", "0", "no":
			return BoolPtr(false)
		}
		return nil
	}
	integer := func(key string) int {
		i, _ := strconv.Atoi(str(key))
		return i
	}

	c.DataDir = str("HITSEND_DATA_DIR")
	c.ResponsesDir = str("HITSEND_RESPONSES_DIR")
	c.Database = str("HITSEND_DB")
	c.Workspace = str("HITSEND_WORKSPACE")
	c.UserAgent = str("HITSEND_USER_AGENT")
	c.LogLevel = str("HITSEND_LOG_LEVEL")
	c.Proxy = str("HITSEND_PROXY")
	c.Timeout = integer("HITSEND_TIMEOUT")
	c.FollowRedirects = boolean("HITSEND_FOLLOW_REDIRECTS")
	c.ValidateSSL = boolean("HITSEND_VALIDATE_SSL")
	c.NoColor = boolean("HITSEND_NO_COLOR")
	return c
}

// Merge returns a copy of c overlaid with the set fields of other.
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}
	result := *c

	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&result.DataDir, other.DataDir)
	setString(&result.ResponsesDir, other.ResponsesDir)
	setString(&result.Database, other.Database)
	setString(&result.Workspace, other.Workspace)
	setString(&result.UserAgent, other.UserAgent)
	setString(&result.LogLevel, other.LogLevel)
	setString(&result.Proxy, other.Proxy)

	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}

	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Compression != nil {
		result.Compression = other.Compression
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	return &result
}

// SaveConfig writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
