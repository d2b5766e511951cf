package models

import (
	"encoding/json"
	"time"
)

// HttpRequestHeader is a single, possibly disabled, request header.
type HttpRequestHeader struct {
	Enabled bool   `json:"enabled"`
	Name    string `json:"name"`
	Value   string `json:"value"`
	ID      string `json:"id,omitempty"`
}

func (h *HttpRequestHeader) UnmarshalJSON(data []byte) error {
	type alias HttpRequestHeader
	a := alias{Enabled: true}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*h = HttpRequestHeader(a)
	return nil
}

// HttpUrlParameter is a single, possibly disabled, query parameter.
type HttpUrlParameter struct {
	Enabled bool   `json:"enabled"`
	Name    string `json:"name"`
	Value   string `json:"value"`
	ID      string `json:"id,omitempty"`
}

func (p *HttpUrlParameter) UnmarshalJSON(data []byte) error {
	type alias HttpUrlParameter
	a := alias{Enabled: true}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = HttpUrlParameter(a)
	return nil
}

// HttpRequest is the logical request description. Before rendering its
// strings may contain template tags; after rendering it is the resolved
// request used to build the outbound call.
type HttpRequest struct {
	ID                 string              `json:"id"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
	WorkspaceID        string              `json:"workspaceId"`
	FolderID           string              `json:"folderId,omitempty"`
	Name               string              `json:"name"`
	Description        string              `json:"description,omitempty"`
	Method             string              `json:"method"`
	URL                string              `json:"url"`
	Headers            []HttpRequestHeader `json:"headers"`
	URLParameters      []HttpUrlParameter  `json:"urlParameters"`
	BodyType           *string             `json:"bodyType,omitempty"`
	Body               map[string]any      `json:"body"`
	AuthenticationType *string             `json:"authenticationType,omitempty"`
	Authentication     map[string]any      `json:"authentication"`
}

// DefaultMethod is used when a request does not name one.
const DefaultMethod = "GET"

func (r *HttpRequest) UnmarshalJSON(data []byte) error {
	type alias HttpRequest
	a := alias{Method: DefaultMethod}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Method == "" {
		a.Method = DefaultMethod
	}
	*r = HttpRequest(a)
	return nil
}
