package env

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/hitsend/packages/models"
)

var (
	dotEnvKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)
	dotEnvRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.-]*)\}`)
)

// LoadDotEnv reads a .env file into an environment named after the file.
func LoadDotEnv(path string) (models.Environment, error) {
	file, err := os.Open(path)
	if err != nil {
		return models.Environment{}, fmt.Errorf("cannot open env file: %w", err)
	}
	defer file.Close()

	env, err := parseDotEnv(file)
	if err != nil {
		return env, fmt.Errorf("%s: %w", path, err)
	}
	env.Name = filepath.Base(path)
	return env, nil
}

// parseDotEnv accepts KEY=value lines with an optional "export " prefix.
// Double quoted values understand \n, \t, \" and \; single quoted values
// are literal; unquoted values end at " #". ${KEY} expands keys defined
// earlier in the file, never the process environment. A repeated key keeps
// its first position and takes the last value.
func parseDotEnv(r io.Reader) (models.Environment, error) {
	var env models.Environment
	index := make(map[string]int)
	seen := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, raw, ok := strings.Cut(line, "=")
		if !ok {
			return env, fmt.Errorf("line %d: expected KEY=value", n)
		}
		key = strings.TrimSpace(key)
		if !dotEnvKey.MatchString(key) {
			return env, fmt.Errorf("line %d: invalid key %q", n, key)
		}

		value, expand, err := dotEnvValue(strings.TrimSpace(raw))
		if err != nil {
			return env, fmt.Errorf("line %d: %w", n, err)
		}
		if expand {
			value = dotEnvRef.ReplaceAllStringFunc(value, func(ref string) string {
				return seen[ref[2:len(ref)-1]]
			})
		}
		seen[key] = value

		if i, ok := index[key]; ok {
			env.Variables[i].Value = value
			continue
		}
		index[key] = len(env.Variables)
		env.Variables = append(env.Variables, models.EnvironmentVariable{Enabled: true, Name: key, Value: value})
	}
	return env, scanner.Err()
}

// dotEnvValue unquotes raw and reports whether ${} references apply.
func dotEnvValue(raw string) (string, bool, error) {
	if raw == "" {
		return "", false, nil
	}

	switch quote := raw[0]; quote {
	case '\'':
		end := strings.IndexByte(raw[1:], '\'')
		if end < 0 {
			return "", false, fmt.Errorf("unterminated single quote")
		}
		return raw[1 : end+1], false, nil

	case '"':
		var b strings.Builder
		for i := 1; i < len(raw); i++ {
			c := raw[i]
			switch {
			case c == '"':
				return b.String(), true, nil
			case c == '\\' && i+1 < len(raw):
				i++
				switch raw[i] {
				case 'n':
					b.WriteByte('\n')
				case 't':
					b.WriteByte('\t')
				case 'r':
					b.WriteByte('\r')
				default:
					b.WriteByte(raw[i])
				}
			default:
				b.WriteByte(c)
			}
		}
		return "", false, fmt.Errorf("unterminated double quote")
	}

	if i := strings.Index(raw, " #"); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	return raw, true, nil
}
