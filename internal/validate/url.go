package validate

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

var (
	schemePrefix = regexp.MustCompile(`^[a-zA-Z]+://`)

	urlInjection = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<script`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)on\w+\s*=`),
		regexp.MustCompile(`(?i)eval\(`),
		regexp.MustCompile(`(?i)expression\(`),
	}

	dangerousSchemes = map[string]bool{
		"javascript": true,
		"data":       true,
		"vbscript":   true,
		"file":       true,
		"about":      true,
		"blob":       true,
	}

	allowedSchemes = map[string]bool{
		"http":   true,
		"https":  true,
		"ftp":    true,
		"ssh":    true,
		"telnet": true,
	}

	defaultPorts = map[string]string{
		"http":  "80",
		"https": "443",
		"ftp":   "21",
	}
)

// URL validates a bookmark URL. A missing scheme defaults to https. On
// success Sanitized holds the normalized absolute URL.
func URL(raw string) Result {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fail("", "URL is required")
	}
	if length(s) < MinURLLength {
		return fail(s, "URL too short")
	}
	if length(s) > MaxURLLength {
		return fail(s, "URL too long (max 2048 chars)")
	}

	if !schemePrefix.MatchString(s) {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return fail(s, "Invalid URL format")
	}

	scheme := strings.ToLower(u.Scheme)
	if dangerousSchemes[scheme] {
		return fail("", "Dangerous protocol detected: "+scheme+":")
	}
	if !allowedSchemes[scheme] {
		return fail("", "Protocol not allowed: "+scheme+":")
	}
	if u.Host == "" || u.Hostname() == "" {
		return fail(s, "Invalid URL format")
	}

	for _, p := range urlInjection {
		if p.MatchString(s) {
			return fail("", "Potentially malicious content detected in URL")
		}
	}

	return ok(normalize(u, scheme))
}

// normalize lower-cases scheme and host, drops the scheme's default port and
// gives an empty path the root "/".
func normalize(u *url.URL, scheme string) string {
	u.Scheme = scheme

	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == defaultPorts[scheme] {
		port = ""
	}
	switch {
	case port != "":
		u.Host = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		u.Host = "[" + host + "]"
	default:
		u.Host = host
	}

	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	return u.String()
}
