package sanitizer

import (
	"net/url"
	"strings"
)

// NormalizeBaseURL prepares a URL that paths are appended to: https is assumed when no
// scheme is given, the host is lower-cased and trailing slashes are removed. Unparseable
// input yields "".
func NormalizeBaseURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}

	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}
