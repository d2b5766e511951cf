package body

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type Text struct {
	Text string
}

func (Text) Kind() string { return "text" }

func (t Text) Payload() (*Payload, error) {
	return bytesPayload([]byte(t.Text), ""), nil
}

// GraphQL serializes to {"query": ..., "variables": ...}. Variables is
// already JSON text and is embedded as is.
type GraphQL struct {
	Query     string
	Variables string
}

func (GraphQL) Kind() string { return KindGraphQL }

func (g GraphQL) Payload() (*Payload, error) {
	query, err := json.Marshal(g.Query)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(`{"query":`)
	b.Write(query)
	if strings.TrimSpace(g.Variables) != "" {
		b.WriteString(`,"variables":`)
		b.WriteString(g.Variables)
	}
	b.WriteString("}")

	return bytesPayload([]byte(b.String()), ""), nil
}

type Binary struct {
	FilePath string
}

func (Binary) Kind() string { return KindBinary }

func (b Binary) Payload() (*Payload, error) {
	data, err := os.ReadFile(b.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return bytesPayload(data, ""), nil
}

func bytesPayload(data []byte, contentType string) *Payload {
	return &Payload{
		Reader:        bytes.NewReader(data),
		ContentLength: int64(len(data)),
		ContentType:   contentType,
	}
}
