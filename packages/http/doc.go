// Package http builds the outbound HTTP client used for a single send.
//
// It wraps the standard library's http package with:
//   - Workspace redirect policy (up to 10 hops, or none)
//   - Certificate validation that can be switched off per workspace
//   - Per-scheme proxy selection with optional basic auth
//   - A persisted cookie jar attached as the client's cookie store
//   - Transparent gzip, deflate, brotli and zstd decoding
//   - HTTP/2 negotiation and remote address capture
package http
