package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRequestDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"minimal", `{"url": "example.com"}`, ""},
		{"full", `{
			"id": "rq_1", "method": "POST", "url": "https://example.com",
			"headers": [{"name": "Accept", "value": "*/*", "enabled": false}],
			"urlParameters": null,
			"bodyType": "text/plain", "body": {"text": "hi"},
			"authenticationType": null, "authentication": {}
		}`, ""},
		{"missing url", `{"method": "GET"}`, "url is required"},
		{"empty url", `{"url": ""}`, "url"},
		{"bad method", `{"url": "x", "method": "GE T"}`, "method"},
		{"header without name", `{"url": "x", "headers": [{"value": "1"}]}`, "name is required"},
		{"body not object", `{"url": "x", "body": "text"}`, "body"},
		{"not json", `{`, "invalid request document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequestDocument([]byte(tt.doc))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
