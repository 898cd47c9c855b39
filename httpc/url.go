package httpc

import (
	"strconv"
	"strings"
)

const DefaultPort = 80

// URL is the split form of scheme://host[:port]/path[?query].
type URL struct {
	Scheme string
	Host   string
	Port   int
	Path   string
	Query  string
}

// ParseURL lower-cases scheme and host. A missing "://" or a bad port is a
// usage error.
func ParseURL(raw string) (*URL, error) {
	i := strings.Index(raw, "://")
	if i < 0 {
		return nil, usageError("parse url", "missing scheme separator in %q", raw)
	}
	u := &URL{Scheme: strings.ToLower(raw[:i]), Port: DefaultPort}
	rest := raw[i+3:]
	hostEnd := strings.IndexAny(rest, "/?")
	if hostEnd < 0 {
		hostEnd = len(rest)
	}
	hostPort := strings.ToLower(rest[:hostEnd])
	rest = rest[hostEnd:]
	if q := strings.IndexByte(rest, '?'); q >= 0 {
		u.Path, u.Query = rest[:q], rest[q+1:]
	} else {
		u.Path = rest
	}
	u.Host = hostPort
	if c := strings.LastIndexByte(hostPort, ':'); c >= 0 && !strings.Contains(hostPort[c:], "]") {
		port, err := strconv.Atoi(hostPort[c+1:])
		if err != nil || port <= 0 || port > 65535 {
			return nil, usageError("parse url", "invalid port in %q", raw)
		}
		u.Host, u.Port = hostPort[:c], port
	}
	if u.Host == "" {
		return nil, usageError("parse url", "empty host in %q", raw)
	}
	return u, nil
}

// RequestURI is the request target: the path, "/" when empty, plus the query.
func (u *URL) RequestURI() string {
	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.Query != "" {
		return path + "?" + u.Query
	}
	return path
}

// HostPort is host:port, with brackets kept for ipv6 literals.
func (u *URL) HostPort() string {
	return u.Host + ":" + strconv.Itoa(u.Port)
}

// Key identifies the connection a url is sent on.
func (u *URL) Key() string {
	return u.Scheme + "://" + u.HostPort()
}

func (u *URL) String() string {
	return u.Scheme + "://" + u.HostPort() + u.RequestURI()
}
