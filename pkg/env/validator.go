package env

import (
	"regexp"
	"strings"
)

func IsEmpty(value string) bool {
	return value == ""
}

// Email Address
func IsValidEmail(email string) bool {
	matched, _ := regexp.MatchString("^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\\.[a-zA-Z]{2,}$", email)
	return matched
}

func IsValidIPAddress(ipAddress string) bool {
	if ipAddress == "localhost" {
		return true
	}
	ipPattern := `^((25[0-5]|2[0-4][0-9]|1[0-9][0-9]|[1-9]?[0-9])\.){3}(25[0-5]|2[0-4][0-9]|1[0-9][0-9]|[1-9]?[0-9])$`
	matched, _ := regexp.MatchString(ipPattern, ipAddress)
	return matched
}

// Port number, non-privileged range only
func IsValidPort(port string) bool {
	matched, _ := regexp.MatchString("^(102[4-9]|10[3-9][0-9]|1[1-9][0-9]{2}|[2-9][0-9]{3}|[1-5][0-9]{4}|6[0-4][0-9]{3}|65[0-4][0-9]{2}|655[0-2][0-9]|6553[0-5])$", port)
	return matched
}

// IsValidURL accepts http(s) URLs of the form scheme://host[:port], where
// host is a domain, an IPv4 address, or localhost.
func IsValidURL(url string) bool {
	return isValidEndpoint(url, "http://", "https://")
}

// IsValidWebSocketURL accepts ws(s) URLs, same host rules as IsValidURL.
func IsValidWebSocketURL(url string) bool {
	return isValidEndpoint(url, "ws://", "wss://")
}

func isValidEndpoint(url string, schemes ...string) bool {
	if url == "" {
		return false
	}

	rest := ""
	for _, scheme := range schemes {
		if strings.HasPrefix(url, scheme) {
			rest = strings.TrimPrefix(url, scheme)
			break
		}
	}
	if rest == "" {
		return false
	}

	// Path suffix is allowed; the host[:port] part is what gets validated.
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}
	if rest == "" {
		return false
	}

	parts := strings.Split(rest, ":")
	if len(parts) > 2 {
		return false
	}

	host := parts[0]
	if !IsValidIPAddress(host) {
		domainPattern := `^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`
		matched, _ := regexp.MatchString(domainPattern, host)
		if !matched {
			return false
		}
	}

	if len(parts) == 2 && !IsValidPort(parts[1]) {
		return false
	}

	return true
}
