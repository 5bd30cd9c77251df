package auth

import (
	"errors"
	"strings"
)

// ErrMissingCSRFToken is returned when a cookie header has no csrftoken pair
var ErrMissingCSRFToken = errors.New("csrftoken not found in cookies")

// Cookie is one name=value pair from a browser cookie header
type Cookie struct {
	Name  string
	Value string
}

// Credentials is a parsed Instagram session. The csrftoken cookie is also
// sent as the x-csrftoken header.
type Credentials struct {
	CSRFToken string
	SessionID string
	Cookies   []Cookie
}

// ParseCookieHeader parses a raw "k=v; k=v" cookie header as copied from a
// browser. Segments without '=' are skipped, values keep any '=' after the
// first. The last occurrence of a repeated name wins.
func ParseCookieHeader(raw string) (*Credentials, error) {
	creds := &Credentials{}
	index := make(map[string]int)

	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" {
			continue
		}

		if i, seen := index[name]; seen {
			creds.Cookies[i].Value = value
		} else {
			index[name] = len(creds.Cookies)
			creds.Cookies = append(creds.Cookies, Cookie{Name: name, Value: value})
		}

		switch name {
		case "csrftoken":
			creds.CSRFToken = value
		case "sessionid":
			creds.SessionID = value
		}
	}

	if creds.CSRFToken == "" {
		return nil, ErrMissingCSRFToken
	}
	return creds, nil
}

// CookieHeader renders the cookies back into a Cookie header value
func (c *Credentials) CookieHeader() string {
	parts := make([]string, 0, len(c.Cookies))
	for _, ck := range c.Cookies {
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return strings.Join(parts, "; ")
}

// Get returns the value of a named cookie
func (c *Credentials) Get(name string) (string, bool) {
	for _, ck := range c.Cookies {
		if ck.Name == name {
			return ck.Value, true
		}
	}
	return "", false
}
