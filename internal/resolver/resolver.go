// Package resolver extracts YouTube video identifiers from user-supplied URLs.
package resolver

import (
	"errors"
	"net/url"
	"strings"
)

// ErrUnresolvable is returned when no video identifier can be extracted.
var ErrUnresolvable = errors.New("unresolvable video url")

const maxRedirectHops = 1

var canonicalHosts = map[string]bool{
	"youtube.com":              true,
	"www.youtube.com":          true,
	"m.youtube.com":            true,
	"music.youtube.com":        true,
	"gaming.youtube.com":       true,
	"youtube-nocookie.com":     true,
	"www.youtube-nocookie.com": true,
}

var shortHosts = map[string]bool{
	"youtu.be":     true,
	"www.youtu.be": true,
}

// path prefixes whose following segment is the identifier
var pathMarkers = map[string]bool{
	"live":   true,
	"embed":  true,
	"v":      true,
	"shorts": true,
}

// ResolveVideoID returns the video identifier referenced by raw.
// Short links use the first path segment; canonical hosts prefer the "v" query
// parameter and fall back to /live/, /embed/, /v/ and /shorts/ paths. An
// attribution redirect carrying an encoded inner URL in "u" is followed once.
func ResolveVideoID(raw string) (string, error) {
	return resolve(strings.TrimSpace(raw), 0)
}

func resolve(raw string, hops int) (string, error) {
	if raw == "" {
		return "", ErrUnresolvable
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrUnresolvable
	}
	if u.Host == "" && !strings.Contains(raw, "://") {
		// scheme-less input such as "youtu.be/abc"
		if u, err = url.Parse("https://" + raw); err != nil {
			return "", ErrUnresolvable
		}
	}
	host := strings.ToLower(u.Hostname())
	segments := splitPath(u.Path)

	switch {
	case shortHosts[host]:
		if len(segments) > 0 && validID(segments[0]) {
			return segments[0], nil
		}
		return "", ErrUnresolvable

	case canonicalHosts[host]:
		q := u.Query()
		if v := strings.TrimSpace(q.Get("v")); validID(v) {
			return v, nil
		}
		if len(segments) >= 2 && pathMarkers[segments[0]] && validID(segments[1]) {
			return segments[1], nil
		}
		if len(segments) > 0 && segments[0] == "attribution_link" && hops < maxRedirectHops {
			inner := q.Get("u")
			if inner == "" {
				return "", ErrUnresolvable
			}
			if strings.HasPrefix(inner, "/") {
				inner = "https://" + host + inner
			}
			return resolve(inner, hops+1)
		}
	}
	return "", ErrUnresolvable
}

func splitPath(p string) []string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func validID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// WatchURL returns the canonical watch URL for an identifier.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}
