package http

import (
	"testing"

	"github.com/abdul-hamid-achik/hitsend/packages/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureScheme(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"http://example.com", "http://example.com"},
		{"https://example.com", "https://example.com"},
		{"example.com/a", "http://example.com/a"},
		{"localhost:8080", "http://localhost:8080"},
		{"myapp.dev/api", "https://myapp.dev/api"},
		{"site.app", "https://site.app"},
		{"docs.page:8443/x", "https://docs.page:8443/x"},
		{"devserver.com", "http://devserver.com"},
		{"EXAMPLE.DEV", "https://EXAMPLE.DEV"},
		{"Site.App/x", "https://Site.App/x"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, EnsureScheme(tt.input))
		})
	}
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid http", "http://example.com/path?q=1", false},
		{"valid https with port", "https://localhost:8443", false},
		{"missing host", "http://", true},
		{"bad port", "http://example.com:port", true},
		{"unsupported scheme", "ftp://example.com", true},
		{"relative", "/just/a/path", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "Failed to parse URL")
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, u.Host)
		})
	}
}

func TestAppendQuery(t *testing.T) {
	u, err := ParseURL("http://example.com/search?existing=1")
	require.NoError(t, err)

	AppendQuery(u, []models.HttpUrlParameter{
		{Enabled: true, Name: "q", Value: "a b"},
		{Enabled: false, Name: "skip", Value: "x"},
		{Enabled: true, Name: "", Value: "unnamed"},
		{Enabled: true, Name: "q", Value: "&"},
	})

	assert.Equal(t, "http://example.com/search?existing=1&q=a+b&q=%26", u.String())
}

func TestBuildHeaders(t *testing.T) {
	h := BuildHeaders("", []models.HttpRequestHeader{
		{Enabled: true, Name: "X-One", Value: "1"},
		{Enabled: false, Name: "X-Off", Value: "off"},
		{Enabled: true, Name: "Accept", Value: "application/json"},
		{Enabled: true, Name: "Bad Name", Value: "x"},
		{Enabled: true, Name: "X-Bad-Value", Value: "line\nbreak"},
	}, zerolog.Nop())

	assert.Equal(t, DefaultUserAgent, h.Get("User-Agent"))
	assert.Equal(t, "application/json", h.Get("Accept"))
	assert.Equal(t, "1", h.Get("X-One"))
	assert.Empty(t, h.Get("X-Off"))
	assert.Empty(t, h.Get("X-Bad-Value"))
	assert.Len(t, h, 3)

	assert.Equal(t, "custom/1.0", BuildHeaders("custom/1.0", nil, zerolog.Nop()).Get("User-Agent"))
}

func TestValidMethod(t *testing.T) {
	assert.True(t, ValidMethod("GET"))
	assert.True(t, ValidMethod("PURGE"))
	assert.False(t, ValidMethod(""))
	assert.False(t, ValidMethod("GE T"))
}

func TestFlattenHeaders(t *testing.T) {
	h := map[string][]string{
		"X-B":        {"2"},
		"Set-Cookie": {"a=1", "b=2"},
	}
	assert.Equal(t, []models.HttpResponseHeader{
		{Name: "set-cookie", Value: "a=1"},
		{Name: "set-cookie", Value: "b=2"},
		{Name: "x-b", Value: "2"},
	}, FlattenHeaders(h))
}
