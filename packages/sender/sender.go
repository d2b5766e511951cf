package sender

import (
	"context"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitsend/packages/auth"
	"github.com/abdul-hamid-achik/hitsend/packages/body"
	hhttp "github.com/abdul-hamid-achik/hitsend/packages/http"
	"github.com/abdul-hamid-achik/hitsend/packages/metrics"
	"github.com/abdul-hamid-achik/hitsend/packages/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store is the persistence Send needs.
type Store interface {
	GetSettings(ctx context.Context) (models.Settings, error)
	GetWorkspace(ctx context.Context, id string) (models.Workspace, error)
	GetBaseEnvironment(ctx context.Context, workspaceID string) (models.Environment, error)
	GetHttpResponse(ctx context.Context, id string) (models.HttpResponse, error)
	UpdateHttpResponseIfID(ctx context.Context, resp models.HttpResponse) (models.HttpResponse, error)
	UpsertCookieJar(ctx context.Context, jar models.CookieJar) (models.CookieJar, error)
}

// Renderer resolves the templates of a request against its environments.
type Renderer interface {
	Render(ctx context.Context, req models.HttpRequest, base, env *models.Environment) (models.HttpRequest, error)
}

type Sender struct {
	store         Store
	renderer      Renderer
	authenticator auth.Authenticator
	responsesDir  string
	userAgent     string
	clientOpts    []hhttp.ClientOption
	policy        func(*hhttp.Policy)
	logger        zerolog.Logger
	metrics       *metrics.Metrics
	chunkSize     int
}

type Option func(*Sender)

func WithAuthenticator(a auth.Authenticator) Option {
	return func(s *Sender) {
		s.authenticator = a
	}
}

func WithUserAgent(ua string) Option {
	return func(s *Sender) {
		s.userAgent = ua
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Sender) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sender) {
		s.metrics = m
	}
}

// WithClientOptions passes options to every client Send builds.
func WithClientOptions(opts ...hhttp.ClientOption) Option {
	return func(s *Sender) {
		s.clientOpts = append(s.clientOpts, opts...)
	}
}

// WithPolicy adjusts the transport policy derived from the stored settings,
// for example from command line flags.
func WithPolicy(fn func(*hhttp.Policy)) Option {
	return func(s *Sender) {
		s.policy = fn
	}
}

// DefaultChunkSize is the read size used when streaming a body to disk.
const DefaultChunkSize = 32 * 1024

func New(store Store, renderer Renderer, responsesDir string, opts ...Option) *Sender {
	s := &Sender{
		store:        store,
		renderer:     renderer,
		responsesDir: responsesDir,
		userAgent:    hhttp.DefaultUserAgent,
		logger:       zerolog.Nop(),
		chunkSize:    DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "sender").Logger()
	return s
}

// Send executes unrendered and records the outcome on response, which must
// already exist in the store for its updates to be persisted. The returned
// response is always closed. Only configuration failures are returned as
// errors; every other failure is recorded on the response.
func (s *Sender) Send(ctx context.Context, unrendered models.HttpRequest, response models.HttpResponse, environment *models.Environment, jar *models.CookieJar) (models.HttpResponse, error) {
	started := time.Now()
	storeCtx := context.WithoutCancel(ctx)
	rec := newRecord(response)
	log := s.logger.With().Str("request", unrendered.ID).Str("response", response.ID).Logger()

	s.metrics.Started()
	outcome := metrics.OutcomeError
	defer func() {
		s.metrics.Finished(outcome, time.Since(started))
	}()

	// finish closes the record with err (nil for success) and persists it.
	finish := func(err error) models.HttpResponse {
		elapsed := time.Since(started).Milliseconds()
		if err == nil {
			rec.close(func(r *models.HttpResponse) { r.Elapsed = elapsed })
		} else {
			rec.fail(err.Error(), func(r *models.HttpResponse) { r.Elapsed = elapsed })
		}
		rec.persist(storeCtx, s.store, log)
		final, _ := rec.snapshot()
		outcome = outcomeOf(final)
		return final
	}

	if ctx.Err() != nil {
		return finish(ErrCancelled), nil
	}

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return s.configError(finish, "load settings", err)
	}
	workspace, err := s.store.GetWorkspace(ctx, unrendered.WorkspaceID)
	if err != nil {
		return s.configError(finish, "load workspace", err)
	}
	base, err := s.store.GetBaseEnvironment(ctx, unrendered.WorkspaceID)
	if err != nil {
		return s.configError(finish, "load base environment", err)
	}

	resolved, err := s.renderer.Render(ctx, unrendered, &base, environment)
	if err != nil {
		if ctx.Err() != nil {
			return finish(ErrCancelled), nil
		}
		return finish(wrap(ErrRender, err)), nil
	}

	u, err := hhttp.ParseURL(hhttp.EnsureScheme(resolved.URL))
	if err != nil {
		return finish(wrap(ErrURL, err)), nil
	}

	policy := hhttp.PolicyFromSettings(workspace, settings)
	if s.policy != nil {
		s.policy(&policy)
	}
	client, err := hhttp.NewClient(policy, jar, append([]hhttp.ClientOption{hhttp.WithLogger(log)}, s.clientOpts...)...)
	if err != nil {
		return s.configError(finish, "build client", err)
	}

	hhttp.AppendQuery(u, resolved.URLParameters)
	rec.update(func(r *models.HttpResponse) { r.URL = u.String() })

	req, err := s.buildRequest(ctx, resolved, u, log)
	if err != nil {
		return finish(err), nil
	}

	if kind := authKind(resolved); kind != "" {
		if err := auth.Apply(ctx, s.authenticator, req, unrendered.ID, kind, resolved.Authentication, log); err != nil {
			if ctx.Err() != nil {
				return finish(ErrCancelled), nil
			}
			return finish(wrap(ErrAuth, err)), nil
		}
	}

	resp, err := s.execute(ctx, client, req)
	if err != nil {
		return finish(err), nil
	}

	final := s.receive(ctx, storeCtx, rec, req, resp, started, log)
	outcome = outcomeOf(final)
	s.syncCookies(storeCtx, client, jar, log)
	return final, nil
}

func (s *Sender) configError(finish func(error) models.HttpResponse, step string, err error) (models.HttpResponse, error) {
	err = fmt.Errorf("%w: %s: %w", ErrConfiguration, step, err)
	return finish(err), err
}

func outcomeOf(resp models.HttpResponse) string {
	switch {
	case resp.Error == ErrCancelled.Error() || resp.Error == ephemeralCancelled:
		return metrics.OutcomeCancelled
	case resp.Error != "":
		return metrics.OutcomeError
	}
	return metrics.OutcomeSuccess
}

func authKind(req models.HttpRequest) string {
	if req.AuthenticationType == nil {
		return ""
	}
	kind := *req.AuthenticationType
	if kind == "none" {
		return ""
	}
	return kind
}

// buildRequest assembles headers, body and method. Errors are recorded on
// the response.
func (s *Sender) buildRequest(ctx context.Context, resolved models.HttpRequest, u *neturl.URL, log zerolog.Logger) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(resolved.Method))
	if method == "" {
		method = models.DefaultMethod
	}
	if !hhttp.ValidMethod(method) {
		return nil, wrap(ErrConfiguration, fmt.Errorf("invalid HTTP method %q", resolved.Method))
	}

	header := hhttp.BuildHeaders(s.userAgent, resolved.Headers, log)

	b, err := body.Parse(resolved.BodyType, resolved.Body)
	if err != nil {
		return nil, wrap(ErrBodyRead, err)
	}
	if none, ok := b.(body.None); ok && none.Declared != "" {
		log.Warn().Str("bodyType", none.Declared).Msg("unsupported body type, sending no body")
	}
	payload, err := b.Payload()
	if err != nil {
		return nil, wrap(ErrBodyRead, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, wrap(ErrURL, err)
	}
	req.Header = header
	if host := header.Get("Host"); host != "" {
		req.Host = host
	}

	if payload != nil {
		req.ContentLength = payload.ContentLength
		if payload.ContentLength > 0 {
			req.Body = io.NopCloser(payload.Reader)
		} else {
			req.Body = http.NoBody
		}
		if payload.ContentType != "" && (payload.ReplaceContentType || req.Header.Get("Content-Type") == "") {
			req.Header.Set("Content-Type", payload.ContentType)
		}
	}

	return req, nil
}

type result struct {
	resp *hhttp.Response
	err  error
}

// execute runs the network call, racing it against cancellation. A call
// that loses the race is left to finish on its own and its body discarded.
func (s *Sender) execute(ctx context.Context, client *hhttp.Client, req *http.Request) (*hhttp.Response, error) {
	done := make(chan result, 1)
	go func() {
		resp, err := client.Do(req)
		done <- result{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.resp != nil {
				_ = r.resp.Body.Close()
			}
		}()
		return nil, ErrCancelled
	case r := <-done:
		if ctx.Err() != nil {
			if r.resp != nil {
				_ = r.resp.Body.Close()
			}
			return nil, ErrCancelled
		}
		if r.err != nil {
			return nil, wrap(ErrNetwork, r.err)
		}
		return r.resp, nil
	}
}

// receive records the headers, streams the body and closes the record.
func (s *Sender) receive(ctx, storeCtx context.Context, rec *record, req *http.Request, resp *hhttp.Response, started time.Time, log zerolog.Logger) models.HttpResponse {
	defer resp.Body.Close()

	snap, _ := rec.snapshot()
	bodyPath, err := s.bodyPath(snap.ID)
	if err != nil {
		rec.fail(wrap(ErrStream, err).Error(), nil)
		rec.persist(storeCtx, s.store, log)
		final, _ := rec.snapshot()
		return final
	}

	rec.update(func(r *models.HttpResponse) {
		r.State = models.ResponseConnected
		r.Status = resp.StatusCode
		r.StatusReason = http.StatusText(resp.StatusCode)
		r.Headers = hhttp.FlattenHeaders(resp.Header)
		r.RequestHeaders = hhttp.FlattenHeaders(req.Header)
		r.Version = resp.Version()
		r.RemoteAddr = resp.RemoteAddr
		r.URL = resp.Request.URL.String()
		r.ElapsedHeaders = time.Since(started).Milliseconds()
		r.BodyPath = bodyPath
	})
	rec.persist(storeCtx, s.store, log)
	log.Debug().Int("status", resp.StatusCode).Str("version", resp.Version()).Str("path", bodyPath).Msg("response connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.stream(ctx, storeCtx, rec, resp, bodyPath, started, log)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.cancelStored(storeCtx, rec, started, log)
		<-done
	}
	if !rec.closed() {
		// The stream stopped on cancellation before this select saw it.
		s.cancelStored(storeCtx, rec, started, log)
	}

	final, _ := rec.snapshot()
	return final
}

// cancelStored closes the record after cancellation during the body stream.
// A record the store does not know is reported as ephemeral.
func (s *Sender) cancelStored(storeCtx context.Context, rec *record, started time.Time, log zerolog.Logger) {
	snap, _ := rec.snapshot()
	msg := ErrCancelled.Error()
	if snap.ID == "" {
		msg = ephemeralCancelled
	} else if _, err := s.store.GetHttpResponse(storeCtx, snap.ID); err != nil {
		log.Debug().Err(err).Msg("cancelled response is not stored")
		msg = ephemeralCancelled
	}

	elapsed := time.Since(started).Milliseconds()
	rec.fail(msg, func(r *models.HttpResponse) { r.Elapsed = elapsed })
	rec.persist(storeCtx, s.store, log)
}

func (s *Sender) bodyPath(id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if err := os.MkdirAll(s.responsesDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create responses directory: %w", err)
	}
	return filepath.Join(s.responsesDir, id), nil
}

// syncCookies stores the client's cookies back into jar.
func (s *Sender) syncCookies(storeCtx context.Context, client *hhttp.Client, jar *models.CookieJar, log zerolog.Logger) {
	if jar == nil || !client.HasCookies() {
		return
	}
	jar.Cookies = client.Cookies()
	if _, err := s.store.UpsertCookieJar(storeCtx, *jar); err != nil {
		log.Warn().Err(err).Str("jar", jar.Name).Msg("failed to update cookie jar")
	}
}

// IsCancelled reports whether resp was closed by cancellation.
func IsCancelled(resp models.HttpResponse) bool {
	return outcomeOf(resp) == metrics.OutcomeCancelled
}
