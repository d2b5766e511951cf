package models

import (
	"strings"
	"time"
)

type HttpResponseState string

const (
	ResponseInitialized HttpResponseState = "initialized"
	ResponseConnected   HttpResponseState = "connected"
	ResponseClosed      HttpResponseState = "closed"
)

type HttpResponseHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HttpResponse is the persisted record of one send. It moves forward through
// initialized, connected and closed; closed is terminal.
type HttpResponse struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	WorkspaceID string    `json:"workspaceId"`
	RequestID   string    `json:"requestId"`

	State          HttpResponseState    `json:"state"`
	Status         int                  `json:"status"`
	StatusReason   string               `json:"statusReason,omitempty"`
	Headers        []HttpResponseHeader `json:"headers"`
	RequestHeaders []HttpResponseHeader `json:"requestHeaders"`
	Elapsed        int64                `json:"elapsed"`        // milliseconds
	ElapsedHeaders int64                `json:"elapsedHeaders"` // milliseconds
	Version        string               `json:"version,omitempty"`
	RemoteAddr     string               `json:"remoteAddr,omitempty"`
	URL            string               `json:"url"`
	ContentLength  *int64               `json:"contentLength,omitempty"`
	BodyPath       string               `json:"bodyPath,omitempty"`
	Error          string               `json:"error,omitempty"`
}

// NewHttpResponse returns an initialized response for the given request.
func NewHttpResponse(id string, req HttpRequest) HttpResponse {
	return HttpResponse{
		ID:          id,
		WorkspaceID: req.WorkspaceID,
		RequestID:   req.ID,
		State:       ResponseInitialized,
		URL:         req.URL,
	}
}

func (r *HttpResponse) Header(key string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, key) {
			return h.Value
		}
	}
	return ""
}

func (r *HttpResponse) IsClosed() bool {
	return r.State == ResponseClosed
}

func (r *HttpResponse) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

func (r *HttpResponse) IsRedirect() bool {
	return r.Status >= 300 && r.Status < 400
}

func (r *HttpResponse) IsClientError() bool {
	return r.Status >= 400 && r.Status < 500
}

func (r *HttpResponse) IsServerError() bool {
	return r.Status >= 500
}
