package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/hitsend/packages/models"
)

// DefaultSettingsID is the id of the install-wide settings record.
const DefaultSettingsID = "st_default"

// GetSettings returns the install-wide settings, creating them on first use.
func (s *Store) GetSettings(ctx context.Context) (models.Settings, error) {
	var settings models.Settings
	err := s.getDoc(ctx, &settings, "SELECT data FROM settings WHERE id = ?", DefaultSettingsID)
	if errors.Is(err, ErrNotFound) {
		return s.UpsertSettings(ctx, models.Settings{ID: DefaultSettingsID})
	}
	return settings, err
}

func (s *Store) UpsertSettings(ctx context.Context, settings models.Settings) (models.Settings, error) {
	if settings.ID == "" {
		settings.ID = DefaultSettingsID
	}
	s.stamp(&settings.CreatedAt, &settings.UpdatedAt)
	data, err := encode(settings)
	if err != nil {
		return settings, err
	}
	_, err = s.exec(ctx, `
		INSERT INTO settings (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		settings.ID, data, settings.UpdatedAt)
	return settings, err
}

func (s *Store) GetWorkspace(ctx context.Context, id string) (models.Workspace, error) {
	var ws models.Workspace
	if err := s.getDoc(ctx, &ws, "SELECT data FROM workspaces WHERE id = ?", id); err != nil {
		return ws, fmt.Errorf("workspace %q: %w", id, err)
	}
	return ws, nil
}

func (s *Store) UpsertWorkspace(ctx context.Context, ws models.Workspace) (models.Workspace, error) {
	if ws.ID == "" {
		ws.ID = models.NewID(models.PrefixWorkspace)
	}
	s.stamp(&ws.CreatedAt, &ws.UpdatedAt)
	data, err := encode(ws)
	if err != nil {
		return ws, err
	}
	_, err = s.exec(ctx, `
		INSERT INTO workspaces (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		ws.ID, data, ws.UpdatedAt)
	return ws, err
}

// GetBaseEnvironment returns the workspace's base environment, creating an
// empty one on first use.
func (s *Store) GetBaseEnvironment(ctx context.Context, workspaceID string) (models.Environment, error) {
	var env models.Environment
	err := s.getDoc(ctx, &env, `
		SELECT data FROM environments WHERE workspace_id = ? AND environment_id = ''
		ORDER BY created_at LIMIT 1`, workspaceID)
	if errors.Is(err, ErrNotFound) {
		return s.UpsertEnvironment(ctx, models.Environment{WorkspaceID: workspaceID, Name: "Global Variables"})
	}
	return env, err
}

func (s *Store) GetEnvironment(ctx context.Context, id string) (models.Environment, error) {
	var env models.Environment
	if err := s.getDoc(ctx, &env, "SELECT data FROM environments WHERE id = ?", id); err != nil {
		return env, fmt.Errorf("environment %q: %w", id, err)
	}
	return env, nil
}

// ListEnvironments returns the workspace's environments, base first.
func (s *Store) ListEnvironments(ctx context.Context, workspaceID string) ([]models.Environment, error) {
	return listDocs[models.Environment](ctx, s, `
		SELECT data FROM environments WHERE workspace_id = ?
		ORDER BY environment_id != '', created_at`, workspaceID)
}

func (s *Store) UpsertEnvironment(ctx context.Context, env models.Environment) (models.Environment, error) {
	if env.ID == "" {
		env.ID = models.NewID(models.PrefixEnvironment)
	}
	s.stamp(&env.CreatedAt, &env.UpdatedAt)
	data, err := encode(env)
	if err != nil {
		return env, err
	}
	_, err = s.exec(ctx, `
		INSERT INTO environments (id, workspace_id, environment_id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			environment_id = excluded.environment_id,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		env.ID, env.WorkspaceID, env.EnvironmentID, data, env.CreatedAt, env.UpdatedAt)
	return env, err
}

func (s *Store) GetHttpRequest(ctx context.Context, id string) (models.HttpRequest, error) {
	var req models.HttpRequest
	if err := s.getDoc(ctx, &req, "SELECT data FROM http_requests WHERE id = ?", id); err != nil {
		return req, fmt.Errorf("request %q: %w", id, err)
	}
	return req, nil
}

func (s *Store) UpsertHttpRequest(ctx context.Context, req models.HttpRequest) (models.HttpRequest, error) {
	if req.ID == "" {
		req.ID = models.NewID(models.PrefixRequest)
	}
	s.stamp(&req.CreatedAt, &req.UpdatedAt)
	data, err := encode(req)
	if err != nil {
		return req, err
	}
	_, err = s.exec(ctx, `
		INSERT INTO http_requests (id, workspace_id, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		req.ID, req.WorkspaceID, data, req.UpdatedAt)
	return req, err
}

// CreateHttpResponse inserts resp, assigning an id when it has none.
func (s *Store) CreateHttpResponse(ctx context.Context, resp models.HttpResponse) (models.HttpResponse, error) {
	if resp.ID == "" {
		resp.ID = models.NewID(models.PrefixResponse)
	}
	if resp.State == "" {
		resp.State = models.ResponseInitialized
	}
	s.stamp(&resp.CreatedAt, &resp.UpdatedAt)
	data, err := encode(resp)
	if err != nil {
		return resp, err
	}
	_, err = s.exec(ctx, `
		INSERT INTO http_responses (id, workspace_id, request_id, state, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		resp.ID, resp.WorkspaceID, resp.RequestID, string(resp.State), data, resp.CreatedAt, resp.UpdatedAt)
	return resp, err
}

func (s *Store) GetHttpResponse(ctx context.Context, id string) (models.HttpResponse, error) {
	var resp models.HttpResponse
	if err := s.getDoc(ctx, &resp, "SELECT data FROM http_responses WHERE id = ?", id); err != nil {
		return resp, fmt.Errorf("response %q: %w", id, err)
	}
	return resp, nil
}

// UpdateHttpResponseIfID replaces the stored response with resp. Responses
// with an empty or unknown id are not stored and are returned unchanged.
func (s *Store) UpdateHttpResponseIfID(ctx context.Context, resp models.HttpResponse) (models.HttpResponse, error) {
	if resp.ID == "" {
		return resp, nil
	}
	prev := resp.UpdatedAt
	resp.UpdatedAt = s.now()
	data, err := encode(resp)
	if err != nil {
		return resp, err
	}
	res, err := s.exec(ctx, `
		UPDATE http_responses SET state = ?, data = ?, updated_at = ? WHERE id = ?`,
		string(resp.State), data, resp.UpdatedAt, resp.ID)
	if err != nil {
		return resp, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		resp.UpdatedAt = prev
	}
	return resp, nil
}

// ListHttpResponses returns the newest responses for a request, at most
// limit of them when limit > 0.
func (s *Store) ListHttpResponses(ctx context.Context, requestID string, limit int) ([]models.HttpResponse, error) {
	if limit <= 0 {
		limit = -1
	}
	return listDocs[models.HttpResponse](ctx, s, `
		SELECT data FROM http_responses WHERE request_id = ?
		ORDER BY created_at DESC LIMIT ?`, requestID, limit)
}

func (s *Store) GetCookieJar(ctx context.Context, id string) (models.CookieJar, error) {
	var jar models.CookieJar
	if err := s.getDoc(ctx, &jar, "SELECT data FROM cookie_jars WHERE id = ?", id); err != nil {
		return jar, fmt.Errorf("cookie jar %q: %w", id, err)
	}
	return jar, nil
}

func (s *Store) GetCookieJarByName(ctx context.Context, workspaceID, name string) (models.CookieJar, error) {
	var jar models.CookieJar
	err := s.getDoc(ctx, &jar, "SELECT data FROM cookie_jars WHERE workspace_id = ? AND name = ?", workspaceID, name)
	if err != nil {
		return jar, fmt.Errorf("cookie jar %q: %w", name, err)
	}
	return jar, nil
}

func (s *Store) ListCookieJars(ctx context.Context, workspaceID string) ([]models.CookieJar, error) {
	return listDocs[models.CookieJar](ctx, s, `
		SELECT data FROM cookie_jars WHERE workspace_id = ? ORDER BY name`, workspaceID)
}

// UpsertCookieJar inserts jar or replaces the stored jar with the same id.
func (s *Store) UpsertCookieJar(ctx context.Context, jar models.CookieJar) (models.CookieJar, error) {
	if jar.ID == "" {
		jar.ID = models.NewID(models.PrefixCookieJar)
	}
	if jar.Cookies == nil {
		jar.Cookies = []models.Cookie{}
	}
	s.stamp(&jar.CreatedAt, &jar.UpdatedAt)
	data, err := encode(jar)
	if err != nil {
		return jar, err
	}
	_, err = s.exec(ctx, `
		INSERT INTO cookie_jars (id, workspace_id, name, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			name = excluded.name,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		jar.ID, jar.WorkspaceID, jar.Name, data, jar.CreatedAt, jar.UpdatedAt)
	return jar, err
}
