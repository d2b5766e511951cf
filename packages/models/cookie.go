package models

import "time"

// Cookie is a stored cookie. RawCookie is its Set-Cookie serialization and
// must parse back into the same cookie.
type Cookie struct {
	RawCookie string     `json:"rawCookie"`
	Domain    string     `json:"domain"`
	HostOnly  bool       `json:"hostOnly"`
	Path      string     `json:"path"`
	Expires   *time.Time `json:"expires,omitempty"`
}

// CookieJar is a named, workspace-scoped set of cookies.
type CookieJar struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	WorkspaceID string    `json:"workspaceId"`
	Name        string    `json:"name"`
	Cookies     []Cookie  `json:"cookies"`
}
