package tracker

import "strings"

// frontByHost maps API hosts to the user-facing web host that serves the
// session cookie and attachment downloads.
var frontByHost = map[string]string{
	"https://api.tracker.yandex.net":    "https://tracker.yandex.ru",
	"https://st-api.test.yandex-team.ru": "https://st.test.yandex-team.ru",
	"https://st-api.yandex-team.ru":      "https://st.yandex-team.ru",
}

// normalizeHost trims whitespace and trailing slashes so that
// "https://api.tracker.yandex.net/" and "https://api.tracker.yandex.net"
// resolve the same way.
func normalizeHost(host string) string {
	return strings.TrimRight(strings.TrimSpace(host), "/")
}

// FrontURL returns the front URL for the given API host.
func FrontURL(host string) (string, error) {
	front, ok := frontByHost[normalizeHost(host)]
	if !ok {
		return "", &ConfigError{Host: host}
	}
	return front, nil
}
