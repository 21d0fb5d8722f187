package transport

import "strings"

// DefaultOrigin is used when neither a configured base URL nor a host origin
// is available.
const DefaultOrigin = "http://localhost:8000"

// JoinURL joins base and path with exactly one slash at the seam, regardless
// of how many trailing slashes base carries or leading slashes path carries.
func JoinURL(base, path string) string {
	b := strings.TrimRight(base, "/")
	p := strings.TrimLeft(path, "/")
	return b + "/" + p
}

// ResolveBaseURL returns the configured base URL when it is non-blank,
// otherwise origin, otherwise DefaultOrigin.
func ResolveBaseURL(configured, origin string) string {
	if v := strings.TrimSpace(configured); v != "" {
		return v
	}
	if v := strings.TrimSpace(origin); v != "" {
		return v
	}
	return DefaultOrigin
}
