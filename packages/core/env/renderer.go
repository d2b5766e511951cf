package env

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/hitsend/packages/builtin"
	"github.com/abdul-hamid-achik/hitsend/packages/models"
	"github.com/rs/zerolog"
)

var (
	// ErrUnresolved is returned for a variable no environment defines.
	ErrUnresolved = errors.New("unresolved variable")
	// ErrRecursion is returned when variables reference each other too deeply.
	ErrRecursion = errors.New("variable recursion too deep")
)

// MaxDepth bounds variable-to-variable expansion.
const MaxDepth = 8

// Renderer is safe for concurrent use.
type Renderer struct {
	funcs   *builtin.Registry
	logger  zerolog.Logger
	lenient bool
}

type Option func(*Renderer)

func WithFunctions(funcs *builtin.Registry) Option {
	return func(r *Renderer) {
		r.funcs = funcs
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// WithLenient keeps unresolved variables as their literal tag and logs a
// warning instead of failing the render.
func WithLenient() Option {
	return func(r *Renderer) {
		r.lenient = true
	}
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		funcs:  builtin.NewRegistry(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render returns a copy of req with every templated string rendered against
// the base environment overlaid by env. Either environment may be nil.
func (r *Renderer) Render(ctx context.Context, req models.HttpRequest, base, env *models.Environment) (models.HttpRequest, error) {
	if err := ctx.Err(); err != nil {
		return req, err
	}

	vars := Variables(base, env)
	out := req
	var err error

	if out.URL, err = r.RenderString(req.URL, vars); err != nil {
		return req, fmt.Errorf("url: %w", err)
	}

	out.Headers = make([]models.HttpRequestHeader, len(req.Headers))
	for i, h := range req.Headers {
		out.Headers[i] = h
		if out.Headers[i].Name, err = r.RenderString(h.Name, vars); err != nil {
			return req, fmt.Errorf("header %q: %w", h.Name, err)
		}
		if out.Headers[i].Value, err = r.RenderString(h.Value, vars); err != nil {
			return req, fmt.Errorf("header %q: %w", h.Name, err)
		}
	}

	out.URLParameters = make([]models.HttpUrlParameter, len(req.URLParameters))
	for i, p := range req.URLParameters {
		out.URLParameters[i] = p
		if out.URLParameters[i].Name, err = r.RenderString(p.Name, vars); err != nil {
			return req, fmt.Errorf("url parameter %q: %w", p.Name, err)
		}
		if out.URLParameters[i].Value, err = r.RenderString(p.Value, vars); err != nil {
			return req, fmt.Errorf("url parameter %q: %w", p.Name, err)
		}
	}

	if out.Body, err = r.renderMap(req.Body, vars); err != nil {
		return req, fmt.Errorf("body: %w", err)
	}
	if out.Authentication, err = r.renderMap(req.Authentication, vars); err != nil {
		return req, fmt.Errorf("authentication: %w", err)
	}

	return out, nil
}

// RenderString renders every tag in input.
func (r *Renderer) RenderString(input string, vars map[string]any) (string, error) {
	return r.render(input, vars, 0)
}

func (r *Renderer) render(input string, vars map[string]any, depth int) (string, error) {
	if !strings.Contains(input, "{{") {
		return input, nil
	}
	if depth > MaxDepth {
		return "", ErrRecursion
	}

	var b strings.Builder
	for _, seg := range scan(input) {
		if !seg.isTag {
			b.WriteString(seg.text)
			continue
		}
		val, err := r.eval(seg.text, vars, depth)
		if errors.Is(err, ErrUnresolved) && r.lenient {
			r.logger.Warn().Str("tag", seg.text).Msg("unresolved template tag")
			b.WriteString(seg.raw)
			continue
		}
		if err != nil {
			return "", err
		}
		b.WriteString(val)
	}
	return b.String(), nil
}

func (r *Renderer) eval(expr string, vars map[string]any, depth int) (string, error) {
	switch {
	case strings.HasPrefix(expr, "$"):
		name := expr[1:]
		if val, ok := os.LookupEnv(name); ok {
			return val, nil
		}
		return "", fmt.Errorf("%w: $%s", ErrUnresolved, name)

	case builtin.IsCall(expr):
		return r.funcs.Call(expr)
	}

	val, ok := vars[expr]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnresolved, expr)
	}
	if s, ok := val.(string); ok {
		return r.render(s, vars, depth+1)
	}
	return fmt.Sprintf("%v", val), nil
}

func (r *Renderer) renderMap(m map[string]any, vars map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		rv, err := r.renderValue(v, vars)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = rv
	}
	return out, nil
}

func (r *Renderer) renderValue(v any, vars map[string]any) (any, error) {
	switch t := v.(type) {
	case string:
		return r.RenderString(t, vars)
	case map[string]any:
		return r.renderMap(t, vars)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			rv, err := r.renderValue(item, vars)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = rv
		}
		return out, nil
	}
	return v, nil
}
