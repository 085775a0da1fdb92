package opencast

import (
	"context"
	"strings"

	"golang.org/x/mod/semver"
)

// canonicalVersion turns a server-reported version ("9.0.1", "1.4",
// "10.6.0.202406181019") into a form semver.Compare accepts. Build metadata
// beyond the patch level is dropped.
func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "v")
	if idx := strings.IndexAny(v, "-+ "); idx >= 0 {
		v = v[:idx]
	}
	parts := strings.Split(v, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return "v" + strings.Join(parts, ".")
}

// CompareVersions compares two dotted version strings numerically.
func CompareVersions(a, b string) int {
	ca, cb := canonicalVersion(a), canonicalVersion(b)
	if !semver.IsValid(ca) || !semver.IsValid(cb) {
		return strings.Compare(ca, cb)
	}
	return semver.Compare(ca, cb)
}

// versionAtLeast reports whether version v is min or newer.
func versionAtLeast(v, min string) bool {
	return CompareVersions(v, min) >= 0
}

// Version returns the remote platform version reported by the first REST
// component of /info/components.json. The value is cached after the first
// successful lookup.
func (c *Client) Version(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.version != "" {
		cached := c.version
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	resp, err := c.request(ctx, "GET", "/info/components.json", nil, false)
	if err != nil {
		return "", err
	}
	decoded, err := decodeJSON(resp)
	if err != nil {
		return "", err
	}

	rest, ok := decoded["rest"].([]any)
	if !ok || len(rest) == 0 {
		return "", &APIError{Op: "version", URL: resp.url, Body: "no rest components in /info/components.json", Err: ErrCommunication}
	}
	component, ok := rest[0].(map[string]any)
	if !ok {
		return "", &APIError{Op: "version", URL: resp.url, Body: "malformed rest component", Err: ErrCommunication}
	}
	version, _ := component["version"].(string)
	if version == "" {
		return "", &APIError{Op: "version", URL: resp.url, Body: "rest component without version", Err: ErrCommunication}
	}

	c.mu.Lock()
	c.version = version
	c.mu.Unlock()
	return version, nil
}
