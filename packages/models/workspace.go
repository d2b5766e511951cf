package models

import (
	"encoding/json"
	"time"
)

type Workspace struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`

	SettingValidateCertificates bool `json:"settingValidateCertificates"`
	SettingFollowRedirects      bool `json:"settingFollowRedirects"`
	// SettingRequestTimeout is in milliseconds, 0 means unbounded.
	SettingRequestTimeout int `json:"settingRequestTimeout"`
}

// NewWorkspace returns a workspace with the default settings applied.
func NewWorkspace(id, name string) Workspace {
	return Workspace{
		ID:                          id,
		Name:                        name,
		SettingValidateCertificates: true,
		SettingFollowRedirects:      true,
	}
}

func (w *Workspace) UnmarshalJSON(data []byte) error {
	type alias Workspace
	a := alias{SettingValidateCertificates: true, SettingFollowRedirects: true}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*w = Workspace(a)
	return nil
}

const (
	ProxyEnabled  = "enabled"
	ProxyDisabled = "disabled"
)

// ProxySetting is either {"type":"disabled"} or an enabled proxy with
// per-scheme URLs. Empty URLs mean no proxy for that scheme.
type ProxySetting struct {
	Type  string            `json:"type"`
	HTTP  string            `json:"http,omitempty"`
	HTTPS string            `json:"https,omitempty"`
	Auth  *ProxySettingAuth `json:"auth,omitempty"`
}

type ProxySettingAuth struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

func (p *ProxySetting) IsEnabled() bool {
	return p != nil && p.Type == ProxyEnabled
}

func (p *ProxySetting) IsDisabled() bool {
	return p != nil && p.Type == ProxyDisabled
}

// Settings are the install-wide settings. A nil Proxy means none was
// configured and the process environment decides.
type Settings struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Proxy     *ProxySetting `json:"proxy,omitempty"`
}

type EnvironmentVariable struct {
	Enabled bool   `json:"enabled"`
	Name    string `json:"name"`
	Value   string `json:"value"`
}

func (v *EnvironmentVariable) UnmarshalJSON(data []byte) error {
	type alias EnvironmentVariable
	a := alias{Enabled: true}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*v = EnvironmentVariable(a)
	return nil
}

// Environment holds template variables. The base environment of a workspace
// has an empty EnvironmentID.
type Environment struct {
	ID            string                `json:"id"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
	WorkspaceID   string                `json:"workspaceId"`
	EnvironmentID string                `json:"environmentId,omitempty"`
	Name          string                `json:"name"`
	Variables     []EnvironmentVariable `json:"variables"`
}

// Values returns the enabled, named variables as a map.
func (e *Environment) Values() map[string]any {
	out := make(map[string]any)
	if e == nil {
		return out
	}
	for _, v := range e.Variables {
		if !v.Enabled || v.Name == "" {
			continue
		}
		out[v.Name] = v.Value
	}
	return out
}
