// Package cookies implements an enumerable in-memory cookie store.
//
// Store satisfies http.CookieJar so it can be attached to an http.Client,
// and unlike net/http/cookiejar it can be seeded from and exported to the
// persisted models.CookieJar representation.
package cookies

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitsend/packages/models"
	"golang.org/x/net/publicsuffix"
)

type entry struct {
	cookie   *http.Cookie
	raw      string
	domain   string
	hostOnly bool
	path     string
	expires  *time.Time
	created  time.Time
	seq      uint64
	// seeded holds the persisted form of a cookie loaded by FromJar. It is
	// exported as is until a response replaces the cookie.
	seeded *models.Cookie
}

func (e *entry) key() string {
	return e.domain + ";" + e.path + ";" + e.cookie.Name
}

func (e *entry) expired(now time.Time) bool {
	return e.expires != nil && !e.expires.After(now)
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// FromJar seeds a store from persisted cookies. A cookie whose raw form
// does not parse is an error; expired cookies are dropped. Domain and Path
// are normalized for matching only; Export returns them as stored.
func FromJar(jar models.CookieJar) (*Store, error) {
	s := NewStore()
	now := s.now()
	for i, c := range jar.Cookies {
		parsed, err := http.ParseSetCookie(c.RawCookie)
		if err != nil {
			return nil, fmt.Errorf("cookie jar %q: cookie %d: %w", jar.Name, i, err)
		}
		domain := strings.ToLower(strings.TrimPrefix(c.Domain, "."))
		if domain == "" {
			return nil, fmt.Errorf("cookie jar %q: cookie %q has no domain", jar.Name, parsed.Name)
		}
		path := c.Path
		if path == "" || path[0] != '/' {
			path = "/"
		}
		e := &entry{
			cookie:   parsed,
			raw:      c.RawCookie,
			domain:   domain,
			hostOnly: c.HostOnly,
			path:     path,
			expires:  c.Expires,
			created:  now,
			seeded:   &c,
		}
		if e.expired(now) {
			continue
		}
		s.put(e)
	}
	return s, nil
}

func (s *Store) put(e *entry) {
	s.seq++
	e.seq = s.seq
	if old, ok := s.entries[e.key()]; ok {
		e.created = old.created
		e.seq = old.seq
	}
	s.entries[e.key()] = e
}

// SetCookies stores cookies received in a response from u.
func (s *Store) SetCookies(u *url.URL, cookies []*http.Cookie) {
	host, err := canonicalHost(u.Host)
	if err != nil {
		return
	}
	defPath := defaultPath(u.Path)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range cookies {
		e, remove, ok := s.newEntry(c, host, defPath, now)
		if !ok {
			continue
		}
		if remove {
			delete(s.entries, e.key())
			continue
		}
		s.put(e)
	}
}

func (s *Store) newEntry(c *http.Cookie, host, defPath string, now time.Time) (e *entry, remove, ok bool) {
	if c.Name == "" {
		return nil, false, false
	}

	e = &entry{created: now}

	domain, hostOnly, ok := domainFor(host, c.Domain)
	if !ok {
		return nil, false, false
	}
	e.domain = domain
	e.hostOnly = hostOnly

	if c.Path == "" || c.Path[0] != '/' {
		e.path = defPath
	} else {
		e.path = c.Path
	}

	switch {
	case c.MaxAge < 0:
		remove = true
	case c.MaxAge > 0:
		t := now.Add(time.Duration(c.MaxAge) * time.Second)
		e.expires = &t
	case !c.Expires.IsZero():
		if !c.Expires.After(now) {
			remove = true
		}
		t := c.Expires.UTC()
		e.expires = &t
	}

	stored := *c
	stored.Domain = ""
	if !hostOnly {
		stored.Domain = domain
	}
	stored.Path = e.path
	stored.Raw = ""
	e.cookie = &stored
	e.raw = stored.String()
	return e, remove, true
}

// Cookies returns the cookies to send in a request to u.
func (s *Store) Cookies(u *url.URL) []*http.Cookie {
	host, err := canonicalHost(u.Host)
	if err != nil {
		return nil
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	secure := u.Scheme == "https" || u.Scheme == "wss"
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*entry
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
			continue
		}
		if !e.domainMatch(host) || !pathMatch(e.path, path) {
			continue
		}
		if e.cookie.Secure && !secure {
			continue
		}
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool {
		if len(matched[i].path) != len(matched[j].path) {
			return len(matched[i].path) > len(matched[j].path)
		}
		return matched[i].seq < matched[j].seq
	})

	out := make([]*http.Cookie, 0, len(matched))
	for _, e := range matched {
		out = append(out, &http.Cookie{Name: e.cookie.Name, Value: e.cookie.Value, Quoted: e.cookie.Quoted})
	}
	return out
}

// Export returns every unexpired cookie in insertion order.
func (s *Store) Export() []models.Cookie {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.expired(now) {
			continue
		}
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	out := make([]models.Cookie, 0, len(all))
	for _, e := range all {
		if e.seeded != nil {
			out = append(out, *e.seeded)
			continue
		}
		out = append(out, models.Cookie{
			RawCookie: e.raw,
			Domain:    e.domain,
			HostOnly:  e.hostOnly,
			Path:      e.path,
			Expires:   e.expires,
		})
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (e *entry) domainMatch(host string) bool {
	if e.domain == host {
		return true
	}
	return !e.hostOnly && strings.HasSuffix(host, "."+e.domain)
}

func pathMatch(cookiePath, requestPath string) bool {
	if requestPath == cookiePath {
		return true
	}
	if strings.HasPrefix(requestPath, cookiePath) {
		if cookiePath[len(cookiePath)-1] == '/' {
			return true
		}
		return requestPath[len(cookiePath)] == '/'
	}
	return false
}

func defaultPath(path string) string {
	if path == "" || path[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(path, "/")
	if i == 0 {
		return "/"
	}
	return path[:i]
}

func canonicalHost(host string) (string, error) {
	if strings.Contains(host, ":") {
		h, _, err := net.SplitHostPort(host)
		if err != nil {
			if strings.HasPrefix(host, "[") {
				return "", err
			}
			// IPv6 literal without port.
			h = host
		}
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return "", fmt.Errorf("empty host")
	}
	return host, nil
}

// domainFor resolves the Domain attribute against the request host.
func domainFor(host, domain string) (string, bool, bool) {
	if domain == "" {
		return host, true, true
	}
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	if domain == "" {
		return host, true, true
	}

	if net.ParseIP(host) != nil {
		if host != domain {
			return "", false, false
		}
		return host, true, true
	}

	// Reject domain cookies for public suffixes such as "com" or "co.uk".
	if ps, _ := publicsuffix.PublicSuffix(domain); ps == domain {
		if host != domain {
			return "", false, false
		}
		return host, true, true
	}

	if host != domain && !strings.HasSuffix(host, "."+domain) {
		return "", false, false
	}
	return domain, false, true
}
