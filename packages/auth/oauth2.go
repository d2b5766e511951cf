package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// OAuth2 grant types.
const (
	GrantClientCredentials = "client_credentials"
	GrantPassword          = "password"
)

// expirySkew treats tokens as expired slightly early to absorb clock skew.
const expirySkew = 30 * time.Second

type token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	expiresAt   time.Time
}

func (t *token) expired(now time.Time) bool {
	if t.expiresAt.IsZero() {
		return false
	}
	return now.Add(expirySkew).After(t.expiresAt)
}

// OAuth2 fetches access tokens from a token endpoint and caches them per
// authentication context.
type OAuth2 struct {
	client *http.Client
	now    func() time.Time

	mu     sync.Mutex
	tokens map[string]*token
}

func NewOAuth2(client *http.Client) *OAuth2 {
	if client == nil {
		client = http.DefaultClient
	}
	return &OAuth2{
		client: client,
		now:    time.Now,
		tokens: make(map[string]*token),
	}
}

// Provide implements Provider. Values: grantType, accessTokenUrl, clientId,
// clientSecret, scope, and username/password for the password grant.
func (o *OAuth2) Provide(ctx context.Context, req Request) (*Result, error) {
	tokenURL := stringValue(req.Values, "accessTokenUrl")
	if tokenURL == "" {
		return nil, fmt.Errorf("oauth2: accessTokenUrl is required")
	}
	clientID := stringValue(req.Values, "clientId")
	scope := stringValue(req.Values, "scope")
	key := strings.Join([]string{req.ContextID, tokenURL, clientID, scope}, "|")

	o.mu.Lock()
	tok, ok := o.tokens[key]
	o.mu.Unlock()

	if !ok || tok.expired(o.now()) {
		var err error
		tok, err = o.fetch(ctx, tokenURL, req.Values)
		if err != nil {
			return nil, err
		}
		o.mu.Lock()
		o.tokens[key] = tok
		o.mu.Unlock()
	}

	prefix := tok.TokenType
	if prefix == "" || strings.EqualFold(prefix, "bearer") {
		prefix = "Bearer"
	}
	return single("Authorization", prefix+" "+tok.AccessToken), nil
}

// Forget drops every cached token.
func (o *OAuth2) Forget() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tokens = make(map[string]*token)
}

func (o *OAuth2) fetch(ctx context.Context, tokenURL string, values map[string]any) (*token, error) {
	data := url.Values{}
	switch grant := stringValue(values, "grantType"); grant {
	case "", GrantClientCredentials:
		data.Set("grant_type", GrantClientCredentials)
	case GrantPassword:
		data.Set("grant_type", GrantPassword)
		data.Set("username", stringValue(values, "username"))
		data.Set("password", stringValue(values, "password"))
	default:
		return nil, fmt.Errorf("oauth2: unsupported grant type: %s", grant)
	}
	if scope := stringValue(values, "scope"); scope != "" {
		data.Set("scope", scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("oauth2: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	clientID := stringValue(values, "clientId")
	if clientID != "" {
		req.SetBasicAuth(clientID, stringValue(values, "clientSecret"))
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth2: token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("oauth2: failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("oauth2: token request failed: %s - %s", errResp.Error, errResp.ErrorDescription)
		}
		return nil, fmt.Errorf("oauth2: token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tok token
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("oauth2: failed to parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("oauth2: token response has no access_token")
	}
	if tok.ExpiresIn > 0 {
		tok.expiresAt = o.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return &tok, nil
}
