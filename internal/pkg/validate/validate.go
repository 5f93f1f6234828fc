// Package validate classifies email, URL and phone strings before the pipeline
// uses them. URL checks also refuse private and internal hosts so that a
// scraped "website" value cannot point the researcher at internal endpoints.
package validate

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Private, loopback, link-local and unspecified IPv4 prefixes.
var privatePrefixes = []string{
	"10.",
	"172.16.", "172.17.", "172.18.", "172.19.",
	"172.20.", "172.21.", "172.22.", "172.23.",
	"172.24.", "172.25.", "172.26.", "172.27.",
	"172.28.", "172.29.", "172.30.", "172.31.",
	"192.168.",
	"127.",
	"169.254.",
	"0.",
}

var blockedHosts = map[string]bool{
	"localhost":                true,
	"metadata.google.internal": true,
}

// IsValidEmail reports whether s looks like local@domain.tld.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return emailRegex.MatchString(s)
}

// SanitizeEmail trims and lower-cases s. It returns "" unless the result is a valid email.
func SanitizeEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !IsValidEmail(s) {
		return ""
	}
	return s
}

// IsValidURL reports whether s is safe to fetch: http or https (https only
// when requireHTTPS is set), a dotted hostname, and not a private address or
// known internal host.
func IsValidURL(s string, requireHTTPS bool) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	switch u.Scheme {
	case "https":
	case "http":
		if requireHTTPS {
			return false
		}
	default:
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, prefix := range privatePrefixes {
		if strings.HasPrefix(host, prefix) {
			return false
		}
	}
	if blockedHosts[host] {
		return false
	}
	if ip := net.ParseIP(host); ip != nil && IsInternalIP(ip) {
		return false
	}
	return strings.Contains(host, ".")
}

// IsInternalIP reports whether ip is loopback, private, link-local or unspecified.
func IsInternalIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}

// SanitizeURL adds https:// when no scheme is present and returns the URL
// only if it passes IsValidURL.
func SanitizeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}
	if !IsValidURL(s, false) {
		return ""
	}
	return s
}

// SanitizePhone keeps digits and a single leading "+".
func SanitizePhone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	if strings.HasPrefix(s, "+") {
		b.WriteByte('+')
		s = s[1:]
	}
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Domain strips the scheme from a website value and cuts it at the first "/".
func Domain(website string) string {
	d := strings.TrimSpace(website)
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	if i := strings.Index(d, "/"); i >= 0 {
		d = d[:i]
	}
	return d
}
