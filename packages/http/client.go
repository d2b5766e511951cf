package http

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptrace"
	neturl "net/url"
	"sort"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitsend/packages/cookies"
	"github.com/abdul-hamid-achik/hitsend/packages/models"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

const (
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
	// DefaultTLSHandshakeTimeout bounds the TLS handshake
	DefaultTLSHandshakeTimeout = 10 * time.Second
)

// ErrConfig marks failures building the client.
var ErrConfig = errors.New("invalid transport configuration")

// Policy is the transport policy for one send.
type Policy struct {
	FollowRedirects      bool
	ValidateCertificates bool
	Proxy                *models.ProxySetting
	// Timeout bounds the whole exchange including the body. Zero means none.
	Timeout time.Duration
}

// PolicyFromSettings combines workspace and install-wide settings.
func PolicyFromSettings(ws models.Workspace, settings models.Settings) Policy {
	p := Policy{
		FollowRedirects:      ws.SettingFollowRedirects,
		ValidateCertificates: ws.SettingValidateCertificates,
		Proxy:                settings.Proxy,
	}
	if ws.SettingRequestTimeout > 0 {
		p.Timeout = time.Duration(ws.SettingRequestTimeout) * time.Millisecond
	}
	return p
}

// Client is immutable after NewClient and safe to share between goroutines.
type Client struct {
	httpClient   *http.Client
	cookies      *cookies.Store
	maxRedirects int
	compression  bool
	logger       zerolog.Logger
}

type ClientOption func(*Client)

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

// WithCompression toggles Accept-Encoding negotiation and decoding.
func WithCompression(enabled bool) ClientOption {
	return func(c *Client) {
		c.compression = enabled
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient builds a client for policy. When jar is not nil its cookies seed
// the client's cookie store, and responses update that store.
func NewClient(policy Policy, jar *models.CookieJar, opts ...ClientOption) (*Client, error) {
	c := &Client{
		maxRedirects: DefaultMaxRedirects,
		compression:  true,
		logger:       zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	transport := &http.Transport{
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		TLSHandshakeTimeout: DefaultTLSHandshakeTimeout,
		DisableCompression:  true,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
	}

	// Configure TLS verification
	if !policy.ValidateCertificates {
		transport.TLSClientConfig.InsecureSkipVerify = true
	}

	proxy, err := proxyFunc(policy.Proxy)
	if err != nil {
		return nil, err
	}
	transport.Proxy = proxy
	if policy.Proxy.IsEnabled() {
		c.logger.Debug().Str("http", policy.Proxy.HTTP).Str("https", policy.Proxy.HTTPS).
			Bool("auth", policy.Proxy.Auth != nil).Msg("using proxy")
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("%w: http2: %v", ErrConfig, err)
	}

	var rt http.RoundTripper = transport
	if c.compression {
		rt = &decodingTransport{base: transport}
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !policy.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= c.maxRedirects {
			return fmt.Errorf("stopped after %d redirects", c.maxRedirects)
		}
		return nil
	}

	c.httpClient = &http.Client{
		Transport:     rt,
		Timeout:       policy.Timeout,
		CheckRedirect: redirectPolicy,
	}

	if jar != nil {
		store, err := cookies.FromJar(*jar)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		c.cookies = store
		c.httpClient.Jar = store
	}

	return c, nil
}

// Response is an http.Response plus connection details.
type Response struct {
	*http.Response
	RemoteAddr string
}

// Version returns the negotiated protocol the way it is stored on a response.
func (r *Response) Version() string {
	switch {
	case r.ProtoMajor == 0 && r.ProtoMinor == 9:
		return "HTTP/0.9"
	case r.ProtoMajor == 1 && r.ProtoMinor == 0:
		return "HTTP/1.0"
	case r.ProtoMajor == 1 && r.ProtoMinor == 1:
		return "HTTP/1.1"
	case r.ProtoMajor == 2:
		return "HTTP/2"
	case r.ProtoMajor == 3:
		return "HTTP/3"
	}
	return ""
}

// Do sends req. The caller owns and must close the response body.
func (c *Client) Do(req *http.Request) (*Response, error) {
	var (
		mu     sync.Mutex
		remote string
	)
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Conn == nil {
				return
			}
			mu.Lock()
			remote = info.Conn.RemoteAddr().String()
			mu.Unlock()
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return &Response{Response: resp, RemoteAddr: remote}, nil
}

// HasCookies reports whether a cookie jar is attached.
func (c *Client) HasCookies() bool {
	return c.cookies != nil
}

// Cookies exports the cookie store, or nil when no jar is attached.
func (c *Client) Cookies() []models.Cookie {
	if c.cookies == nil {
		return nil
	}
	return c.cookies.Export()
}

func proxyFunc(setting *models.ProxySetting) (func(*http.Request) (*neturl.URL, error), error) {
	switch {
	case setting == nil:
		return http.ProxyFromEnvironment, nil
	case setting.IsDisabled():
		return nil, nil
	case !setting.IsEnabled():
		return nil, fmt.Errorf("%w: unknown proxy type %q", ErrConfig, setting.Type)
	}

	httpProxy, err := parseProxyURL(setting.HTTP, setting.Auth)
	if err != nil {
		return nil, err
	}
	httpsProxy, err := parseProxyURL(setting.HTTPS, setting.Auth)
	if err != nil {
		return nil, err
	}

	return func(req *http.Request) (*neturl.URL, error) {
		switch req.URL.Scheme {
		case "http":
			return httpProxy, nil
		case "https":
			return httpsProxy, nil
		}
		return nil, nil
	}, nil
}

// parseProxyURL returns nil for an empty URL, meaning no proxy.
func parseProxyURL(raw string, auth *models.ProxySettingAuth) (*neturl.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := neturl.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: proxy URL %q: %v", ErrConfig, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: proxy URL %q must include a scheme and host", ErrConfig, raw)
	}
	if auth != nil {
		u.User = neturl.UserPassword(auth.User, auth.Password)
	}
	return u, nil
}

func sortedKeys(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
