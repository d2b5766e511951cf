// Package auth applies pluggable request authentication.
//
// An Authenticator receives a description of the outbound request and returns
// headers to set on it. Registry is the built-in Authenticator, mapping
// authentication type names to providers.
package auth

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/net/http/httpguts"
)

// ErrUnknownKind is returned for an authentication type with no provider.
var ErrUnknownKind = errors.New("unknown authentication type")

type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Request is what an authenticator sees of the outbound request.
type Request struct {
	ContextID string         `json:"contextId"`
	Values    map[string]any `json:"values"`
	URL       string         `json:"url"`
	Method    string         `json:"method"`
	Headers   []Header       `json:"headers"`
}

type Result struct {
	SetHeaders []Header `json:"setHeaders"`
}

type Authenticator interface {
	CallHTTPAuthentication(ctx context.Context, name string, req Request) (*Result, error)
}

// ContextID derives the stable authentication context for a request id.
func ContextID(requestID string) string {
	sum := md5.Sum([]byte(requestID))
	return hex.EncodeToString(sum[:])
}

// Apply runs the authenticator for kind and sets the returned headers on req,
// replacing same-named headers. Invalid returned headers are logged and
// skipped.
func Apply(ctx context.Context, a Authenticator, req *http.Request, requestID, kind string, values map[string]any, logger zerolog.Logger) error {
	if a == nil {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	in := Request{
		ContextID: ContextID(requestID),
		Values:    values,
		URL:       req.URL.String(),
		Method:    req.Method,
		Headers:   headerList(req.Header),
	}

	res, err := a.CallHTTPAuthentication(ctx, kind, in)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}

	for _, h := range res.SetHeaders {
		if !httpguts.ValidHeaderFieldName(h.Name) {
			logger.Error().Str("header", h.Name).Str("auth", kind).Msg("invalid auth header name")
			continue
		}
		if !httpguts.ValidHeaderFieldValue(h.Value) {
			logger.Error().Str("header", h.Name).Str("auth", kind).Msg("invalid auth header value")
			continue
		}
		req.Header.Set(h.Name, h.Value)
	}
	return nil
}

func headerList(h http.Header) []Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Header, 0, len(names))
	for _, name := range names {
		for _, v := range h[name] {
			out = append(out, Header{Name: name, Value: v})
		}
	}
	return out
}
