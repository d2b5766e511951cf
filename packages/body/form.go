package body

import (
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

type FormParam struct {
	Name    string
	Value   string
	Enabled bool
}

// Form is an urlencoded form. Disabled and blank-named params are skipped.
type Form struct {
	Params []FormParam
}

func (Form) Kind() string { return KindForm }

func (f Form) Payload() (*Payload, error) {
	return bytesPayload([]byte(f.Encode()), KindForm), nil
}

// Encode urlencodes the sendable params, keeping their order.
func (f Form) Encode() string {
	var b strings.Builder
	for _, p := range f.Params {
		if !p.Enabled || p.Name == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

func formParams(form gjson.Result) []FormParam {
	var params []FormParam
	if !form.IsArray() {
		return params
	}
	for _, item := range form.Array() {
		params = append(params, FormParam{
			Name:    stringField(item, "name"),
			Value:   stringField(item, "value"),
			Enabled: boolField(item, "enabled", true),
		})
	}
	return params
}
