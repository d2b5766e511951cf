package sender

import (
	"context"
	"errors"
	"sync"

	"github.com/abdul-hamid-achik/hitsend/packages/models"
)

var errNotFound = errors.New("not found")

// memStore is an in-memory Store that records every response update.
type memStore struct {
	mu           sync.Mutex
	settings     models.Settings
	workspace    models.Workspace
	workspaceErr error
	base         models.Environment
	responses    map[string]models.HttpResponse
	updates      []models.HttpResponse
	jars         []models.CookieJar
	jarErr       error
	onUpdate     func(models.HttpResponse)
}

func newMemStore() *memStore {
	return &memStore{
		settings:  models.Settings{ID: "st_test", Proxy: &models.ProxySetting{Type: models.ProxyDisabled}},
		workspace: models.NewWorkspace("wk_test", "Test"),
		base:      models.Environment{ID: "ev_base", WorkspaceID: "wk_test"},
		responses: make(map[string]models.HttpResponse),
	}
}

func (s *memStore) GetSettings(context.Context) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *memStore) GetWorkspace(_ context.Context, id string) (models.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workspaceErr != nil {
		return models.Workspace{}, s.workspaceErr
	}
	if id != s.workspace.ID {
		return models.Workspace{}, errNotFound
	}
	return s.workspace, nil
}

func (s *memStore) GetBaseEnvironment(context.Context, string) (models.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base, nil
}

func (s *memStore) GetHttpResponse(_ context.Context, id string) (models.HttpResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.responses[id]
	if !ok {
		return resp, errNotFound
	}
	return resp, nil
}

func (s *memStore) UpdateHttpResponseIfID(_ context.Context, resp models.HttpResponse) (models.HttpResponse, error) {
	s.mu.Lock()
	if _, ok := s.responses[resp.ID]; ok && resp.ID != "" {
		s.responses[resp.ID] = resp
		s.updates = append(s.updates, resp)
	}
	hook := s.onUpdate
	s.mu.Unlock()

	if hook != nil {
		hook(resp)
	}
	return resp, nil
}

func (s *memStore) UpsertCookieJar(_ context.Context, jar models.CookieJar) (models.CookieJar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jarErr != nil {
		return jar, s.jarErr
	}
	s.jars = append(s.jars, jar)
	return jar, nil
}

// create stores an initialized response for req.
func (s *memStore) create(id string, req models.HttpRequest) models.HttpResponse {
	resp := models.NewHttpResponse(id, req)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[id] = resp
	return resp
}

func (s *memStore) history() []models.HttpResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.HttpResponse(nil), s.updates...)
}

func (s *memStore) stored(id string) models.HttpResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.responses[id]
}
