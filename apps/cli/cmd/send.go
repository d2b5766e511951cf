package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/hitsend/packages/auth"
	"github.com/abdul-hamid-achik/hitsend/packages/builtin"
	"github.com/abdul-hamid-achik/hitsend/packages/core/env"
	"github.com/abdul-hamid-achik/hitsend/packages/db"
	hhttp "github.com/abdul-hamid-achik/hitsend/packages/http"
	"github.com/abdul-hamid-achik/hitsend/packages/metrics"
	"github.com/abdul-hamid-achik/hitsend/packages/models"
	"github.com/abdul-hamid-achik/hitsend/packages/sender"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var sendCmd = &cobra.Command{
	Use:   "send <request-file>",
	Short: "Send a request and record the response",
	Long: `Send the request described by a JSON or YAML file. The request is saved
to the workspace, its response body is streamed to the responses
directory and the final response is stored in the database.

Examples:
  hitsend send login.json
  hitsend send users.yaml --env staging --cookie-jar default
  hitsend send users.yaml --env-file .env --body
  hitsend send users.yaml --watch --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: sendCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	envFlag         string
	envFileFlag     string
	envPrefixFlag   string
	cookieJarFlag   string
	insecureFlag    bool
	noFollowFlag    bool
	timeoutFlag     string
	proxyFlag       string
	headersFlag     bool
	bodyFlag        bool
	jsonFlag        bool
	lenientFlag     bool
	watchFlag       bool
	metricsAddrFlag string
	repeatFlag      int
)

func init() {
	sendCmd.Flags().StringVarP(&envFlag, "env", "e", os.Getenv("HITSEND_ENV"), "Environment name or id (env: HITSEND_ENV)")
	sendCmd.Flags().StringVar(&envFileFlag, "env-file", os.Getenv("HITSEND_ENV_FILE"), "Path to .env file layered over the environment (env: HITSEND_ENV_FILE)")
	sendCmd.Flags().StringVar(&envPrefixFlag, "env-prefix", "", "Expose process variables with this prefix as template variables")
	sendCmd.Flags().StringVarP(&cookieJarFlag, "cookie-jar", "j", os.Getenv("HITSEND_COOKIE_JAR"), "Cookie jar name, created when missing (env: HITSEND_COOKIE_JAR)")

	sendCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", false, "Disable SSL certificate validation")
	sendCmd.Flags().BoolVar(&noFollowFlag, "no-follow", false, "Do not follow redirects")
	sendCmd.Flags().StringVar(&timeoutFlag, "timeout", "", "Request timeout (e.g., 30s, 1m)")
	sendCmd.Flags().StringVar(&proxyFlag, "proxy", "", "Proxy URL for both schemes, or \"off\" (env: HITSEND_PROXY)")

	sendCmd.Flags().BoolVarP(&headersFlag, "include", "i", false, "Print response headers")
	sendCmd.Flags().BoolVarP(&bodyFlag, "body", "b", false, "Print the response body")
	sendCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the stored response record as JSON")
	sendCmd.Flags().BoolVar(&lenientFlag, "lenient", false, "Keep unresolved template variables instead of failing")

	sendCmd.Flags().IntVarP(&repeatFlag, "repeat", "r", 1, "Send the request this many times and print a latency summary")
	sendCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch the request file and send again on change")
	sendCmd.Flags().StringVar(&metricsAddrFlag, "metrics-addr", os.Getenv("HITSEND_METRICS_ADDR"), "Serve Prometheus metrics on this address (env: HITSEND_METRICS_ADDR)")
}

func sendCommand(cmd *cobra.Command, args []string) error {
	path := args[0]

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nReceived interrupt, cancelling request...")
			cancel()
		case <-ctx.Done():
		}
	}()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if cmd.Flags().Changed("proxy") {
		a.cfg.Proxy = proxyFlag
	}

	ws, err := a.ensureWorkspace(ctx)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	environment, err := a.loadEnvironment(ctx, ws.ID)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	jar, err := a.loadCookieJar(ctx, ws.ID, cookieJarFlag)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	var m *metrics.Metrics
	if metricsAddrFlag != "" {
		m = metrics.New()
		stop := serveMetrics(a, m, metricsAddrFlag)
		defer stop()
	}

	s, err := a.newSender(m)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	requestID := ""
	run := func() error {
		req, err := loadRequestFile(path, ws.ID)
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}
		if req.ID == "" {
			// Keep one id across watch iterations so history groups them.
			if requestID == "" {
				requestID = models.NewID(models.PrefixRequest)
			}
			req.ID = requestID
		}
		if repeatFlag <= 1 {
			return a.sendOnce(ctx, s, req, environment, jar)
		}
		return a.sendRepeated(ctx, s, req, environment, jar, repeatFlag)
	}

	err = run()
	if !watchFlag {
		return err
	}
	if err != nil && exitCode(err) != ExitRequestFailed {
		return err
	}
	return a.watch(ctx, path, run)
}

// newSender builds a sender from the resolved config and the network flags.
func (a *app) newSender(m *metrics.Metrics) (*sender.Sender, error) {
	var timeout time.Duration
	if timeoutFlag != "" {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", timeoutFlag, err)
		}
		timeout = d
	}
	proxy := a.cfg.ProxySetting()

	renderOpts := []env.Option{env.WithFunctions(builtin.NewRegistry()), env.WithLogger(a.logger)}
	if lenientFlag {
		renderOpts = append(renderOpts, env.WithLenient())
	}

	return sender.New(a.store, env.NewRenderer(renderOpts...), a.cfg.ResponsesPath(),
		sender.WithAuthenticator(auth.NewRegistry()),
		sender.WithUserAgent(a.cfg.UserAgent),
		sender.WithLogger(a.logger),
		sender.WithMetrics(m),
		sender.WithClientOptions(
			hhttp.WithMaxRedirects(a.cfg.MaxRedirects),
			hhttp.WithCompression(a.cfg.GetCompression()),
		),
		sender.WithPolicy(func(p *hhttp.Policy) {
			if insecureFlag {
				p.ValidateCertificates = false
			}
			if noFollowFlag {
				p.FollowRedirects = false
			}
			if timeout > 0 {
				p.Timeout = timeout
			}
			if proxy != nil {
				p.Proxy = proxy
			}
		}),
	), nil
}

// send stores req, creates its response record and executes it.
func (a *app) send(ctx context.Context, s *sender.Sender, req models.HttpRequest, environment *models.Environment, jar *models.CookieJar) (models.HttpResponse, error) {
	req, err := a.store.UpsertHttpRequest(ctx, req)
	if err != nil {
		return models.HttpResponse{}, withExitCode(ExitConfigError, err)
	}
	resp, err := a.store.CreateHttpResponse(ctx, models.NewHttpResponse("", req))
	if err != nil {
		return resp, withExitCode(ExitConfigError, err)
	}

	final, err := s.Send(ctx, req, resp, environment, jar)
	if err != nil {
		return final, withExitCode(ExitConfigError, err)
	}
	return final, nil
}

func (a *app) sendOnce(ctx context.Context, s *sender.Sender, req models.HttpRequest, environment *models.Environment, jar *models.CookieJar) error {
	final, err := a.send(ctx, s, req, environment, jar)
	if err != nil {
		return err
	}

	if jsonFlag {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(final); err != nil {
			return err
		}
	} else if err := printResponse(a.out, final, headersFlag, bodyFlag); err != nil {
		return err
	}

	switch {
	case sender.IsCancelled(final):
		return withExitCode(ExitCancelled, nil)
	case final.Error != "":
		return withExitCode(ExitRequestFailed, nil)
	}
	return nil
}

// sendRepeated sends req n times in sequence, stopping early on
// cancellation, and prints the latency distribution.
func (a *app) sendRepeated(ctx context.Context, s *sender.Sender, req models.HttpRequest, environment *models.Environment, jar *models.CookieJar, n int) error {
	latency := metrics.NewLatency()
	var last models.HttpResponse

	for i := 0; i < n; i++ {
		final, err := a.send(ctx, s, req, environment, jar)
		if err != nil {
			return err
		}
		last = final
		if sender.IsCancelled(final) {
			break
		}
		latency.Record(time.Duration(final.Elapsed)*time.Millisecond, final.Error != "")
	}

	if err := printResponse(a.out, last, headersFlag, bodyFlag); err != nil {
		return err
	}
	printLatency(a.out, latency.Summary())

	switch {
	case sender.IsCancelled(last):
		return withExitCode(ExitCancelled, nil)
	case latency.Summary().Errors > 0:
		return withExitCode(ExitRequestFailed, nil)
	}
	return nil
}

// loadEnvironment resolves --env, --env-file and --env-prefix into a single
// environment, later sources taking precedence. It returns nil when none is
// requested.
func (a *app) loadEnvironment(ctx context.Context, workspaceID string) (*models.Environment, error) {
	var result *models.Environment

	if envFlag != "" {
		envs, err := a.store.ListEnvironments(ctx, workspaceID)
		if err != nil {
			return nil, err
		}
		for i := range envs {
			if envs[i].EnvironmentID == "" {
				continue
			}
			if envs[i].ID == envFlag || strings.EqualFold(envs[i].Name, envFlag) {
				result = &envs[i]
				break
			}
		}
		if result == nil {
			return nil, fmt.Errorf("environment %q not found in workspace %s", envFlag, workspaceID)
		}
	}

	overlay := func(extra models.Environment) {
		if result == nil {
			result = &models.Environment{WorkspaceID: workspaceID, Name: extra.Name}
		}
		result.Variables = append(result.Variables, extra.Variables...)
	}

	if envFileFlag != "" {
		dotenv, err := env.LoadDotEnv(envFileFlag)
		if err != nil {
			return nil, err
		}
		overlay(dotenv)
	}
	if envPrefixFlag != "" {
		overlay(env.FromProcess(envPrefixFlag))
	}

	if result != nil {
		a.logger.Debug().Str("environment", result.Name).Int("variables", len(result.Variables)).Msg("environment loaded")
	}
	return result, nil
}

// loadCookieJar returns the named jar, creating an empty one when missing.
// An empty name means no jar.
func (a *app) loadCookieJar(ctx context.Context, workspaceID, name string) (*models.CookieJar, error) {
	if name == "" {
		return nil, nil
	}
	jar, err := a.store.GetCookieJarByName(ctx, workspaceID, name)
	if errors.Is(err, db.ErrNotFound) {
		jar, err = a.store.UpsertCookieJar(ctx, models.CookieJar{WorkspaceID: workspaceID, Name: name})
	}
	if err != nil {
		return nil, err
	}
	return &jar, nil
}

// loadRequestFile reads a request from a JSON or YAML file. YAML goes
// through JSON so both formats share the same field names and defaults.
func loadRequestFile(path, workspaceID string) (models.HttpRequest, error) {
	var req models.HttpRequest

	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("cannot read request file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return req, fmt.Errorf("request %s: %w", path, err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return req, fmt.Errorf("request %s: %w", path, err)
		}
	}

	if err := models.ValidateRequestDocument(data); err != nil {
		return req, fmt.Errorf("request %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("request %s: %w", path, err)
	}
	if req.WorkspaceID == "" {
		req.WorkspaceID = workspaceID
	}
	if req.Name == "" {
		req.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return req, nil
}

// watch re-runs fn whenever path is written until ctx is cancelled.
func (a *app) watch(ctx context.Context, path string, fn func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	// Editors often replace files, so watch the directory.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	fmt.Fprintf(a.out, "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	trigger := make(chan struct{}, 1)
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, _ := filepath.Abs(event.Name)
			if name != target || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			// Debounce: reset timer on each event
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case <-trigger:
			fmt.Fprintf(a.out, "\nFile changed: %s\nSending again...\n\n", path)
			if err := fn(); err != nil && exitCode(err) != ExitRequestFailed {
				if ctx.Err() != nil {
					return nil
				}
				a.logger.Error().Err(err).Msg("send failed")
			}
			fmt.Fprintf(a.out, "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

// serveMetrics exposes m on addr and returns a function that stops the
// server.
func serveMetrics(a *app, m *metrics.Metrics, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	a.logger.Info().Str("addr", addr).Msg("serving metrics on /metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

