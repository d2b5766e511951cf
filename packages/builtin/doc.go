// Package builtin provides the template functions available to request
// templates.
//
// Available functions:
//   - uuid(): random UUID v4
//   - timestamp(), timestampMs(): current Unix time
//   - now(), date(layout): current UTC time formatted
//   - random(min, max), randomString(length), randomEmail()
//   - base64(value), base64Decode(value), md5(value), sha256(value)
//   - urlEncode(value), urlDecode(value)
//   - env(name, fallback): process environment variable
//   - jsonPath(document, path): value at a gjson path
//
// Functions are invoked as {{ name(args) }} inside any templated field.
package builtin
