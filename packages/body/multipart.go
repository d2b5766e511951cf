package body

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultFileContentType is used for file parts whose type cannot be guessed.
const DefaultFileContentType = "application/octet-stream"

type MultipartPart struct {
	Name        string
	Value       string
	File        string
	ContentType string
	Enabled     bool
}

type Multipart struct {
	Parts []MultipartPart
}

func (Multipart) Kind() string { return KindMultipart }

// Payload builds the multipart body. The content type carries the boundary
// and always replaces a user-set Content-Type.
func (m Multipart) Payload() (*Payload, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, p := range m.Parts {
		if !p.Enabled || p.Name == "" {
			continue
		}

		data := []byte(p.Value)
		if p.File != "" {
			b, err := os.ReadFile(p.File)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrRead, err)
			}
			data = b
		}

		header, err := partHeader(p)
		if err != nil {
			return nil, err
		}

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(data); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	payload := bytesPayload(body.Bytes(), writer.FormDataContentType())
	payload.ReplaceContentType = true
	return payload, nil
}

func partHeader(p MultipartPart) (textproto.MIMEHeader, error) {
	h := make(textproto.MIMEHeader)

	disposition := fmt.Sprintf(`form-data; name="%s"`, escapeQuotes(p.Name))
	if p.File != "" {
		disposition += fmt.Sprintf(`; filename="%s"`, escapeQuotes(filepath.Base(p.File)))
	}
	h.Set("Content-Disposition", disposition)

	switch {
	case p.ContentType != "":
		if _, _, err := mime.ParseMediaType(p.ContentType); err != nil {
			return nil, fmt.Errorf("invalid mime for multi-part entry %q: %w", p.Name, err)
		}
		h.Set("Content-Type", p.ContentType)
	case p.File != "":
		h.Set("Content-Type", GuessContentType(p.File))
	}

	return h, nil
}

// GuessContentType guesses a MIME essence from the file extension, using
// the built-in table first and the system tables after it.
func GuessContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return DefaultFileContentType
	}
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return DefaultFileContentType
	}
	essence, _, err := mime.ParseMediaType(t)
	if err != nil {
		return DefaultFileContentType
	}
	return essence
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func multipartParts(form gjson.Result) []MultipartPart {
	var parts []MultipartPart
	if !form.IsArray() {
		return parts
	}
	for _, item := range form.Array() {
		parts = append(parts, MultipartPart{
			Name:        stringField(item, "name"),
			Value:       stringField(item, "value"),
			File:        stringField(item, "file"),
			ContentType: stringField(item, "contentType"),
			Enabled:     boolField(item, "enabled", true),
		})
	}
	return parts
}
