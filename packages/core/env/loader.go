package env

import (
	"os"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/hitsend/packages/models"
)

// Variables merges the enabled variables of envs; later environments win.
func Variables(envs ...*models.Environment) map[string]any {
	result := make(map[string]any)
	for _, e := range envs {
		for k, v := range e.Values() {
			result[k] = v
		}
	}
	return result
}

// FromProcess builds an environment from process variables starting with
// prefix, with the prefix removed. An empty prefix takes every variable.
func FromProcess(prefix string) models.Environment {
	env := models.Environment{Name: "process"}
	var names []string
	values := make(map[string]string)
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if prefix != "" {
			if len(key) <= len(prefix) || !strings.HasPrefix(key, prefix) {
				continue
			}
			key = key[len(prefix):]
		}
		if _, seen := values[key]; !seen {
			names = append(names, key)
		}
		values[key] = value
	}
	sort.Strings(names)
	for _, name := range names {
		env.Variables = append(env.Variables, models.EnvironmentVariable{Enabled: true, Name: name, Value: values[name]})
	}
	return env
}
