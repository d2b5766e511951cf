// Package curl turns curl command lines into stored requests.
package curl

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/hitsend/packages/body"
	"github.com/abdul-hamid-achik/hitsend/packages/models"
)

var ErrNoURL = errors.New("no URL found in curl command")

// Parsed is a curl command reduced to the request it sends plus the
// transport flags hitsend keeps on the workspace instead.
type Parsed struct {
	Request         models.HttpRequest
	Insecure        bool
	FollowRedirects bool
}

// Parse reads one curl command. Line continuations are accepted.
func Parse(cmd string) (*Parsed, error) {
	cmd = strings.ReplaceAll(cmd, "\\\n", " ")
	tokens := tokenize(strings.TrimSpace(cmd))
	if len(tokens) > 0 && tokens[0] == "curl" {
		tokens = tokens[1:]
	}

	p := &Parsed{}
	req := &p.Request
	var (
		method    string
		data      []string
		urlencode []string
		form      []any
		getMode   bool
	)

	value := func(i int) (string, error) {
		if i+1 >= len(tokens) {
			return "", fmt.Errorf("missing value for %s", tokens[i])
		}
		return tokens[i+1], nil
	}

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		switch token {
		case "-X", "--request":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			method = strings.ToUpper(v)
			i++

		case "-H", "--header":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			if name, val, ok := strings.Cut(v, ":"); ok {
				req.Headers = append(req.Headers, header(name, val))
			}
			i++

		case "-d", "--data", "--data-raw", "--data-binary", "--data-ascii":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			data = append(data, v)
			i++

		case "--data-urlencode":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			urlencode = append(urlencode, v)
			i++

		case "-F", "--form":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			form = append(form, formPart(v))
			i++

		case "-u", "--user":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			user, pass, _ := strings.Cut(v, ":")
			kind := "basic"
			req.AuthenticationType = &kind
			req.Authentication = map[string]any{"username": user, "password": pass}
			i++

		case "-A", "--user-agent":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			req.Headers = append(req.Headers, header("User-Agent", v))
			i++

		case "-e", "--referer":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			req.Headers = append(req.Headers, header("Referer", v))
			i++

		case "-b", "--cookie":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			req.Headers = append(req.Headers, header("Cookie", v))
			i++

		case "--url":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			req.URL = v
			i++

		case "-G", "--get":
			getMode = true
		case "-k", "--insecure":
			p.Insecure = true
		case "-L", "--location":
			p.FollowRedirects = true
		case "-I", "--head":
			method = "HEAD"

		default:
			switch {
			case strings.HasPrefix(token, "-"):
				// Unknown flag, skip its value when it clearly has one.
				if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") && !looksLikeURL(tokens[i+1]) {
					i++
				}
			case req.URL == "":
				req.URL = token
			}
		}
	}

	if req.URL == "" {
		return nil, ErrNoURL
	}

	hasBody := len(data) > 0 || len(urlencode) > 0 || len(form) > 0
	ct := contentType(req.Headers)
	switch {
	case getMode && hasBody:
		appendQuery(req, data, urlencode)
	case len(form) > 0:
		kind := body.KindMultipart
		req.BodyType = &kind
		req.Body = map[string]any{"form": form}
	case len(urlencode) > 0 || (len(data) > 0 && ct == body.KindForm):
		kind := body.KindForm
		req.BodyType = &kind
		req.Body = map[string]any{"form": formParams(data, urlencode)}
	case len(data) > 0:
		// curl labels bare -d data as a form without touching it.
		if ct == "" {
			ct = body.KindForm
			req.Headers = append(req.Headers, header("Content-Type", ct))
		}
		kind := "text/plain"
		if ct != body.KindForm {
			kind = ct
		}
		req.BodyType = &kind
		req.Body = map[string]any{"text": strings.Join(data, "&")}
	}

	switch {
	case method != "":
		req.Method = method
	case hasBody && !getMode:
		req.Method = "POST"
	default:
		req.Method = "GET"
	}
	req.Name = generateName(req.URL, req.Method)
	return p, nil
}

func header(name, value string) models.HttpRequestHeader {
	return models.HttpRequestHeader{Enabled: true, Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)}
}

func contentType(headers []models.HttpRequestHeader) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, "Content-Type") {
			ct, _, _ := strings.Cut(h.Value, ";")
			return strings.TrimSpace(strings.ToLower(ct))
		}
	}
	return ""
}

// formParams splits raw "a=1&b=2" data and --data-urlencode values into
// form fields. Raw data is already encoded, urlencode values are not.
func formParams(data, urlencode []string) []any {
	var params []any
	for _, d := range data {
		for _, pair := range strings.Split(d, "&") {
			if pair == "" {
				continue
			}
			name, val, _ := strings.Cut(pair, "=")
			if n, err := url.QueryUnescape(name); err == nil {
				name = n
			}
			if v, err := url.QueryUnescape(val); err == nil {
				val = v
			}
			params = append(params, map[string]any{"name": name, "value": val, "enabled": true})
		}
	}
	for _, u := range urlencode {
		name, val, ok := strings.Cut(u, "=")
		if !ok {
			name, val = "", u
		}
		params = append(params, map[string]any{"name": name, "value": val, "enabled": true})
	}
	return params
}

// formPart reads a -F value: name=value or name=@path[;type=mime].
func formPart(v string) map[string]any {
	name, val, _ := strings.Cut(v, "=")
	part := map[string]any{"name": name, "enabled": true}
	if strings.HasPrefix(val, "@") {
		path, attrs, _ := strings.Cut(val[1:], ";")
		part["file"] = path
		if ct, ok := strings.CutPrefix(attrs, "type="); ok {
			part["contentType"] = ct
		}
		return part
	}
	part["value"] = val
	return part
}

func appendQuery(req *models.HttpRequest, data, urlencode []string) {
	for _, p := range formParams(data, urlencode) {
		m := p.(map[string]any)
		req.URLParameters = append(req.URLParameters, models.HttpUrlParameter{
			Enabled: true,
			Name:    m["name"].(string),
			Value:   m["value"].(string),
		})
	}
}

// tokenize splits a curl command into tokens, respecting quotes.
func tokenize(cmd string) []string {
	var tokens []string
	var current strings.Builder
	inSingleQuote := false
	inDoubleQuote := false
	escaped := false
	started := false

	for _, r := range cmd {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}

		switch r {
		case '\\':
			if inSingleQuote {
				current.WriteRune(r)
			} else {
				escaped = true
			}
		case '\'':
			if !inDoubleQuote {
				inSingleQuote = !inSingleQuote
				started = true
			} else {
				current.WriteRune(r)
			}
		case '"':
			if !inSingleQuote {
				inDoubleQuote = !inDoubleQuote
				started = true
			} else {
				current.WriteRune(r)
			}
		case ' ', '\t', '\n', '\r':
			if inSingleQuote || inDoubleQuote {
				current.WriteRune(r)
			} else if current.Len() > 0 || started {
				tokens = append(tokens, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 || started {
		tokens = append(tokens, current.String())
	}

	return tokens
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "{{")
}

var urlPath = regexp.MustCompile(`^(?:https?://)?[^/?#]+(/[^?#]*)?`)

// generateName builds a name such as "POST /users/1" from the URL.
func generateName(rawURL, method string) string {
	path := "/"
	if m := urlPath.FindStringSubmatch(rawURL); len(m) > 1 && m[1] != "" {
		path = m[1]
	}
	return method + " " + path
}
