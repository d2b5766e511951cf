// Package body turns a resolved request's body kind and untyped body fields
// into a transport-ready payload.
//
// Parse validates the fields for the declared kind and returns one of the
// concrete Body types (GraphQL, Form, Binary, Multipart, Text or None).
// Payload then produces the bytes and the content type to send.
package body
