package http

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	neturl "net/url"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitsend/packages/models"
	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultPolicy() Policy {
	return Policy{FollowRedirects: true, ValidateCertificates: true, Proxy: &models.ProxySetting{Type: models.ProxyDisabled}}
}

func mustGet(t *testing.T, c *Client, url string) *Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/test", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": "hello"}`))
	}))
	defer server.Close()

	client, err := NewClient(defaultPolicy(), nil)
	require.NoError(t, err)

	resp := mustGet(t, client, server.URL+"/test")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(body), "hello")
	assert.Equal(t, "HTTP/1.1", resp.Version())
	assert.Equal(t, server.Listener.Addr().String(), resp.RemoteAddr)
	assert.False(t, client.HasCookies())
	assert.Nil(t, client.Cookies())
}

func TestClient_FollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/final", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(defaultPolicy(), nil)
	require.NoError(t, err)

	resp := mustGet(t, client, server.URL+"/redirect")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "/final", resp.Request.URL.Path)
}

func TestClient_NoFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	policy := defaultPolicy()
	policy.FollowRedirects = false
	client, err := NewClient(policy, nil)
	require.NoError(t, err)

	resp := mustGet(t, client, server.URL+"/redirect")
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/final", resp.Header.Get("Location"))
}

func TestClient_MaxRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	client, err := NewClient(defaultPolicy(), nil, WithMaxRedirects(3))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/", nil)
	require.NoError(t, err)
	_, err = client.Do(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped after 3 redirects")
}

func TestClient_CertificateValidation(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	strict, err := NewClient(defaultPolicy(), nil)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	_, err = strict.Do(req)
	assert.Error(t, err)

	policy := defaultPolicy()
	policy.ValidateCertificates = false
	insecure, err := NewClient(policy, nil)
	require.NoError(t, err)
	resp := mustGet(t, insecure, server.URL)
	assert.Equal(t, 204, resp.StatusCode)
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	policy := defaultPolicy()
	policy.Timeout = 50 * time.Millisecond
	client, err := NewClient(policy, nil)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	_, err = client.Do(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Client.Timeout")
}

func TestClient_ProxyPerScheme(t *testing.T) {
	var proxied []string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied = append(proxied, r.URL.String())
		user, pass, ok := r.BasicAuth()
		if !ok {
			user, pass, ok = parseProxyAuth(r.Header.Get("Proxy-Authorization"))
		}
		assert.True(t, ok)
		assert.Equal(t, "alice", user)
		assert.Equal(t, "secret", pass)
		w.WriteHeader(http.StatusTeapot)
	}))
	defer proxy.Close()

	policy := defaultPolicy()
	policy.Proxy = &models.ProxySetting{
		Type: models.ProxyEnabled,
		HTTP: proxy.URL,
		Auth: &models.ProxySettingAuth{User: "alice", Password: "secret"},
	}
	client, err := NewClient(policy, nil, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	resp := mustGet(t, client, "http://upstream.invalid/path")
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, []string{"http://upstream.invalid/path"}, proxied)
}

func parseProxyAuth(header string) (string, string, bool) {
	r := &http.Request{Header: http.Header{"Authorization": {header}}}
	return r.BasicAuth()
}

func TestProxyFunc(t *testing.T) {
	fn, err := proxyFunc(nil)
	require.NoError(t, err)
	assert.NotNil(t, fn)

	fn, err = proxyFunc(&models.ProxySetting{Type: models.ProxyDisabled})
	require.NoError(t, err)
	assert.Nil(t, fn)

	fn, err = proxyFunc(&models.ProxySetting{Type: models.ProxyEnabled, HTTPS: "http://secure-proxy:8443"})
	require.NoError(t, err)

	httpReq := &http.Request{URL: &neturl.URL{Scheme: "http", Host: "example.com"}}
	u, err := fn(httpReq)
	require.NoError(t, err)
	assert.Nil(t, u)

	httpsReq := &http.Request{URL: &neturl.URL{Scheme: "https", Host: "example.com"}}
	u, err = fn(httpsReq)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "secure-proxy:8443", u.Host)
}

func TestNewClient_InvalidProxy(t *testing.T) {
	tests := []struct {
		name    string
		setting models.ProxySetting
	}{
		{"unknown type", models.ProxySetting{Type: "sometimes"}},
		{"missing scheme", models.ProxySetting{Type: models.ProxyEnabled, HTTP: "proxy.local:8080"}},
		{"bad url", models.ProxySetting{Type: models.ProxyEnabled, HTTPS: "http://[::1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := defaultPolicy()
			policy.Proxy = &tt.setting
			_, err := NewClient(policy, nil)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestClient_CookieJar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session")
		if assert.NoError(t, err) {
			assert.Equal(t, "abc", c.Value)
		}
		http.SetCookie(w, &http.Cookie{Name: "theme", Value: "dark", Path: "/"})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	jar := models.CookieJar{
		Name: "default",
		Cookies: []models.Cookie{
			{RawCookie: "session=abc; Path=/", Domain: "127.0.0.1", HostOnly: true, Path: "/"},
		},
	}
	client, err := NewClient(defaultPolicy(), &jar)
	require.NoError(t, err)
	require.True(t, client.HasCookies())

	mustGet(t, client, server.URL+"/")

	exported := client.Cookies()
	require.Len(t, exported, 2)
	assert.Equal(t, "session=abc; Path=/", exported[0].RawCookie)
	assert.Equal(t, "theme=dark; Path=/", exported[1].RawCookie)
	assert.Equal(t, "127.0.0.1", exported[1].Domain)
	assert.True(t, exported[1].HostOnly)
}

func TestNewClient_BadCookieJar(t *testing.T) {
	jar := models.CookieJar{Name: "broken", Cookies: []models.Cookie{{RawCookie: "=", Domain: "example.com"}}}
	_, err := NewClient(defaultPolicy(), &jar)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestClient_Decompression(t *testing.T) {
	payload := []byte(`{"compressed": true}`)

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write(payload)
	require.NoError(t, gw.Close())

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write(payload)
	require.NoError(t, bw.Close())

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zs := enc.EncodeAll(payload, nil)
	require.NoError(t, enc.Close())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, AcceptEncoding, r.Header.Get("Accept-Encoding"))
		switch r.URL.Path {
		case "/gzip":
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write(gz.Bytes())
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			_, _ = w.Write(br.Bytes())
		case "/zstd":
			w.Header().Set("Content-Encoding", "zstd")
			_, _ = w.Write(zs)
		default:
			_, _ = w.Write(payload)
		}
	}))
	defer server.Close()

	client, err := NewClient(defaultPolicy(), nil)
	require.NoError(t, err)

	for _, path := range []string{"/gzip", "/br", "/zstd", "/plain"} {
		t.Run(path, func(t *testing.T) {
			resp := mustGet(t, client, server.URL+path)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, payload, body)
			assert.Empty(t, resp.Header.Get("Content-Encoding"))
		})
	}
}

func TestClient_CompressionDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Accept-Encoding"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(defaultPolicy(), nil, WithCompression(false))
	require.NoError(t, err)
	mustGet(t, client, server.URL)
}

func TestResponse_Version(t *testing.T) {
	tests := []struct {
		major, minor int
		expected     string
	}{
		{0, 9, "HTTP/0.9"},
		{1, 0, "HTTP/1.0"},
		{1, 1, "HTTP/1.1"},
		{2, 0, "HTTP/2"},
		{3, 0, "HTTP/3"},
		{4, 0, ""},
	}

	for _, tt := range tests {
		r := &Response{Response: &http.Response{ProtoMajor: tt.major, ProtoMinor: tt.minor}}
		assert.Equal(t, tt.expected, r.Version())
	}
}

func TestPolicyFromSettings(t *testing.T) {
	ws := models.Workspace{SettingFollowRedirects: false, SettingValidateCertificates: true, SettingRequestTimeout: 1500}
	proxy := &models.ProxySetting{Type: models.ProxyDisabled}

	p := PolicyFromSettings(ws, models.Settings{Proxy: proxy})
	assert.False(t, p.FollowRedirects)
	assert.True(t, p.ValidateCertificates)
	assert.Equal(t, 1500*time.Millisecond, p.Timeout)
	assert.Same(t, proxy, p.Proxy)

	ws.SettingRequestTimeout = 0
	assert.Zero(t, PolicyFromSettings(ws, models.Settings{}).Timeout)
}
