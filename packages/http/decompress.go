package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// AcceptEncoding is advertised when the request does not set its own.
const AcceptEncoding = "gzip, deflate, br, zstd"

// decodingTransport negotiates compression and decodes the response body.
// Requests that carry their own Accept-Encoding are passed through untouched.
type decodingTransport struct {
	base http.RoundTripper
}

func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") != "" || req.Header.Get("Range") != "" {
		return t.base.RoundTrip(req)
	}

	req = req.Clone(req.Context())
	req.Header.Set("Accept-Encoding", AcceptEncoding)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip", "x-gzip", "deflate", "br", "zstd":
	default:
		return resp, nil
	}
	if req.Method == http.MethodHead || resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotModified {
		return resp, nil
	}

	resp.Body = &decodingBody{encoding: encoding, body: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

// decodingBody opens its decoder on first read so empty bodies do not fail
// while reading a compression header.
type decodingBody struct {
	encoding string
	body     io.ReadCloser
	decoder  io.Reader
	closer   func()
	err      error
}

func (b *decodingBody) Read(p []byte) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	if b.decoder == nil {
		if err := b.open(); err != nil {
			b.err = err
			return 0, err
		}
	}
	return b.decoder.Read(p)
}

func (b *decodingBody) open() error {
	switch b.encoding {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(b.body)
		if err != nil {
			return err
		}
		b.decoder = zr
		b.closer = func() { _ = zr.Close() }
	case "deflate":
		zr, err := zlib.NewReader(b.body)
		if err != nil {
			return err
		}
		b.decoder = zr
		b.closer = func() { _ = zr.Close() }
	case "br":
		b.decoder = brotli.NewReader(b.body)
	case "zstd":
		zr, err := zstd.NewReader(b.body)
		if err != nil {
			return err
		}
		b.decoder = zr
		b.closer = zr.Close
	}
	return nil
}

func (b *decodingBody) Close() error {
	if b.closer != nil {
		b.closer()
	}
	return b.body.Close()
}
