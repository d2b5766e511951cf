package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Built-in authentication type names.
const (
	KindBasic  = "basic"
	KindBearer = "bearer"
	KindAPIKey = "apikey"
	KindOAuth2 = "oauth2"
)

// Provider computes the headers for one authentication type.
type Provider func(ctx context.Context, req Request) (*Result, error)

// Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns a registry with the built-in providers registered.
func NewRegistry() *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	r.Register(KindBasic, Basic)
	r.Register(KindBearer, Bearer)
	r.Register(KindAPIKey, APIKey)
	r.Register(KindOAuth2, NewOAuth2(&http.Client{Timeout: 30 * time.Second}).Provide)
	return r
}

func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Kinds lists the registered authentication types.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.providers))
	for k := range r.providers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func (r *Registry) CallHTTPAuthentication(ctx context.Context, name string, req Request) (*Result, error) {
	r.mu.RLock()
	p, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, name)
	}
	return p(ctx, req)
}

// Basic sets Authorization from the username and password values.
func Basic(_ context.Context, req Request) (*Result, error) {
	user := stringValue(req.Values, "username")
	pass := stringValue(req.Values, "password")
	token := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
	return single("Authorization", "Basic "+token), nil
}

// Bearer sets Authorization from the token value. An optional prefix value
// replaces the "Bearer" scheme.
func Bearer(_ context.Context, req Request) (*Result, error) {
	prefix := stringValue(req.Values, "prefix")
	if prefix == "" {
		prefix = "Bearer"
	}
	return single("Authorization", prefix+" "+stringValue(req.Values, "token")), nil
}

// APIKey sets the header named by the key value to the value value.
// Key defaults to X-API-Key.
func APIKey(_ context.Context, req Request) (*Result, error) {
	key := stringValue(req.Values, "key")
	if key == "" {
		key = "X-API-Key"
	}
	return single(key, stringValue(req.Values, "value")), nil
}

func single(name, value string) *Result {
	return &Result{SetHeaders: []Header{{Name: name, Value: value}}}
}

// stringValue reads a string value, treating a missing or non-string value
// as empty.
func stringValue(values map[string]any, key string) string {
	s, _ := values[key].(string)
	return s
}
