package http

import (
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"

	"github.com/abdul-hamid-achik/hitsend/packages/models"
	"github.com/rs/zerolog"
	"golang.org/x/net/http/httpguts"
)

// Default request headers, applied before the request's own headers.
const (
	DefaultAccept    = "*/*"
	DefaultUserAgent = "hitsend"
)

// httpsTLDs are hosts that only serve over HTTPS (HSTS preloaded TLDs).
var httpsTLDs = []string{".app", ".dev", ".page"}

// EnsureScheme prefixes a scheme when rawURL has none: https for hosts under
// an HTTPS-only TLD, http otherwise.
func EnsureScheme(rawURL string) string {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return rawURL
	}

	if u, err := neturl.Parse("http://" + rawURL); err == nil {
		host := strings.ToLower(u.Hostname())
		for _, tld := range httpsTLDs {
			if strings.HasSuffix(host, tld) {
				return "https://" + rawURL
			}
		}
	}

	return "http://" + rawURL
}

// ParseURL validates rawURL with a strict and a permissive parse, both of
// which must succeed, and requires a host.
func ParseURL(rawURL string) (*neturl.URL, error) {
	if _, err := neturl.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("Failed to parse URL %q: %v", rawURL, err)
	}
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("Failed to parse URL %q: %v", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("Failed to parse URL %q: unsupported scheme %q", rawURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("Failed to parse URL %q: URL must have a host", rawURL)
	}
	return u, nil
}

// AppendQuery appends the enabled, named params to u in order, after any
// query already present in the URL.
func AppendQuery(u *neturl.URL, params []models.HttpUrlParameter) {
	var b strings.Builder
	b.WriteString(u.RawQuery)
	for _, p := range params {
		if !p.Enabled || p.Name == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(neturl.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(neturl.QueryEscape(p.Value))
	}
	u.RawQuery = b.String()
}

// BuildHeaders returns the default headers overlaid with the enabled request
// headers. Later entries replace earlier ones with the same name. Invalid
// names or values are logged and skipped.
func BuildHeaders(userAgent string, headers []models.HttpRequestHeader, logger zerolog.Logger) http.Header {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	h := make(http.Header)
	h.Set("User-Agent", userAgent)
	h.Set("Accept", DefaultAccept)

	for _, header := range headers {
		if !header.Enabled || header.Name == "" {
			continue
		}
		if !httpguts.ValidHeaderFieldName(header.Name) {
			logger.Error().Str("header", header.Name).Msg("invalid header name")
			continue
		}
		if !httpguts.ValidHeaderFieldValue(header.Value) {
			logger.Error().Str("header", header.Name).Msg("invalid header value")
			continue
		}
		h.Set(header.Name, header.Value)
	}

	return h
}

// ValidMethod reports whether method is a valid HTTP method token.
func ValidMethod(method string) bool {
	return method != "" && strings.IndexFunc(method, func(r rune) bool {
		return !httpguts.IsTokenRune(r)
	}) == -1
}

// FlattenHeaders converts h into stored name/value pairs, one per value,
// sorted by name for stable output.
func FlattenHeaders(h http.Header) []models.HttpResponseHeader {
	out := make([]models.HttpResponseHeader, 0, len(h))
	for _, name := range sortedKeys(h) {
		for _, v := range h[name] {
			out = append(out, models.HttpResponseHeader{Name: strings.ToLower(name), Value: v})
		}
	}
	return out
}
