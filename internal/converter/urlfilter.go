package converter

import (
	"strings"

	"header-rules/internal/models"
)

// URLFilter renders a pattern in the host's url filter syntax:
// protocol prefix, domain, optional port, then the path. The host treats a
// filter as a prefix match, so a literal path is given a trailing *.
func URLFilter(p models.URLPattern) string {
	var sb strings.Builder

	protocol := strings.ToLower(strings.TrimSpace(p.Protocol))
	protocol = strings.TrimSuffix(strings.TrimSuffix(protocol, "://"), ":")
	if protocol == "" || protocol == "*" {
		sb.WriteString("*://")
	} else {
		sb.WriteString(protocol)
		sb.WriteString("://")
	}

	sb.WriteString(strings.ToLower(strings.TrimSpace(p.Domain)))

	if port := strings.TrimSpace(p.Port); port != "" && port != "*" {
		sb.WriteString(":")
		sb.WriteString(port)
	}

	path := strings.TrimSpace(p.Path)
	switch {
	case path == "" || path == "*":
		path = "/*"
	case !strings.Contains(path, "*"):
		path += "*"
	}
	sb.WriteString(path)

	return sb.String()
}
