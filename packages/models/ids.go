package models

import (
	"strings"

	"github.com/google/uuid"
)

// Record id prefixes.
const (
	PrefixSettings    = "st"
	PrefixWorkspace   = "wk"
	PrefixEnvironment = "ev"
	PrefixCookieJar   = "cj"
	PrefixRequest     = "rq"
	PrefixResponse    = "rs"
)

// NewID returns a random id such as "rs_3f2b9c0a1d8e4b7f9a6c5d4e3f2a1b0c".
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
