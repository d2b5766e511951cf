package env

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/hitsend/packages/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDotEnv(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[string]string
	}{
		{"simple", "API_KEY=secret123", map[string]string{"API_KEY": "secret123"}},
		{"export prefix", "export TOKEN=abc", map[string]string{"TOKEN": "abc"}},
		{"whitespace trimmed", "  API_KEY  =  secret  ", map[string]string{"API_KEY": "secret"}},
		{"value with equals", "DSN=postgres://u:p@host/db?ssl=true", map[string]string{"DSN": "postgres://u:p@host/db?ssl=true"}},
		{"empty value", "EMPTY=", map[string]string{"EMPTY": ""}},
		{"comments and blanks", "# comment\n\nA=1\n  # indented\nB=2", map[string]string{"A": "1", "B": "2"}},
		{"inline comment", "HOST=localhost # dev box", map[string]string{"HOST": "localhost"}},
		{"hash without space", "COLOR=#ff0000", map[string]string{"COLOR": "#ff0000"}},
		{"double quoted", `MSG="hello # world"`, map[string]string{"MSG": "hello # world"}},
		{"double quoted escapes", `MSG="a\nb\t\"c\"\\"`, map[string]string{"MSG": "a\nb\t\"c\"\\"}},
		{"single quoted literal", `RAW='a\n${X}'`, map[string]string{"RAW": `a\n${X}`}},
		{"quoted with trailing comment", `Q="v" # note`, map[string]string{"Q": "v"}},
		{"expands earlier keys", "HOST=api.local\nURL=https://${HOST}/v1\nQ=\"${HOST}:8080\"", map[string]string{
			"HOST": "api.local", "URL": "https://api.local/v1", "Q": "api.local:8080",
		}},
		{"unknown reference is empty", "URL=${MISSING}/x", map[string]string{"URL": "/x"}},
		{"dotted keys", "app.port=8080", map[string]string{"app.port": "8080"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := parseDotEnv(strings.NewReader(tt.content))
			require.NoError(t, err)

			got := make(map[string]string)
			for _, v := range env.Variables {
				assert.True(t, v.Enabled)
				got[v.Name] = v.Value
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDotEnv_RepeatedKey(t *testing.T) {
	env, err := parseDotEnv(strings.NewReader("A=1\nB=2\nA=3"))
	require.NoError(t, err)
	assert.Equal(t, []models.EnvironmentVariable{
		{Enabled: true, Name: "A", Value: "3"},
		{Enabled: true, Name: "B", Value: "2"},
	}, env.Variables)
}

func TestParseDotEnv_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing equals", "A=1\nJUSTAKEY", "line 2: expected KEY=value"},
		{"bad key", "1BAD=x", `line 1: invalid key "1BAD"`},
		{"empty key", "=x", `invalid key ""`},
		{"unterminated double", `A="open`, "unterminated double quote"},
		{"unterminated single", `A='open`, "unterminated single quote"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDotEnv(strings.NewReader(tt.content))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env.staging")
	require.NoError(t, os.WriteFile(path, []byte("BASE=https://staging.example.com\nTOKEN='t0k'\n"), 0644))

	env, err := LoadDotEnv(path)
	require.NoError(t, err)
	assert.Equal(t, ".env.staging", env.Name)
	assert.Equal(t, map[string]any{"BASE": "https://staging.example.com", "TOKEN": "t0k"}, env.Values())

	_, err = LoadDotEnv(filepath.Join(dir, "missing.env"))
	assert.ErrorContains(t, err, "cannot open env file")

	bad := filepath.Join(dir, "bad.env")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0644))
	_, err = LoadDotEnv(bad)
	assert.ErrorContains(t, err, bad+": line 1")
}
