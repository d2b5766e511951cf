package body

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
)

// Body kinds as stored on a request.
const (
	KindGraphQL   = "graphql"
	KindForm      = "application/x-www-form-urlencoded"
	KindBinary    = "binary"
	KindMultipart = "multipart/form-data"
)

// ErrRead marks failures reading a file referenced by the body.
var ErrRead = errors.New("body file read failed")

// Payload is the transport-ready body.
type Payload struct {
	Reader        io.Reader
	ContentLength int64
	// ContentType is applied when the request has no Content-Type header,
	// or always when ReplaceContentType is set.
	ContentType        string
	ReplaceContentType bool
}

// Body is a validated request body of one kind.
type Body interface {
	Kind() string
	Payload() (*Payload, error)
}

// Parse dispatches on kind, reading only the fields that kind needs. A nil
// or unknown kind without a "text" field yields None.
func Parse(kind *string, fields map[string]any) (Body, error) {
	if kind == nil {
		return None{}, nil
	}

	raw := []byte("{}")
	if len(fields) > 0 {
		b, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("invalid body fields: %w", err)
		}
		raw = b
	}
	doc := gjson.ParseBytes(raw)

	switch {
	case *kind == KindGraphQL:
		return GraphQL{
			Query:     stringField(doc, "query"),
			Variables: stringField(doc, "variables"),
		}, nil
	case *kind == KindForm && doc.Get("form").Exists():
		return Form{Params: formParams(doc.Get("form"))}, nil
	case *kind == KindBinary && doc.Get("filePath").Exists():
		return Binary{FilePath: stringField(doc, "filePath")}, nil
	case *kind == KindMultipart && doc.Get("form").Exists():
		return Multipart{Parts: multipartParts(doc.Get("form"))}, nil
	case doc.Get("text").Exists():
		return Text{Text: stringField(doc, "text")}, nil
	}

	return None{Declared: *kind}, nil
}

// None sends no body. Declared is the unsupported kind, if any.
type None struct {
	Declared string
}

func (None) Kind() string { return "" }

func (None) Payload() (*Payload, error) { return nil, nil }

// stringField reads key as a string; any other JSON type reads as "".
func stringField(v gjson.Result, key string) string {
	f := v.Get(key)
	if f.Type != gjson.String {
		return ""
	}
	return f.Str
}

// boolField reads key as a bool, falling back when missing or not a bool.
func boolField(v gjson.Result, key string, fallback bool) bool {
	switch v.Get(key).Type {
	case gjson.True:
		return true
	case gjson.False:
		return false
	}
	return fallback
}
