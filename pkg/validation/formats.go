package validation

import (
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

// FormatValidator reports whether value is in a given string format.
type FormatValidator func(value string) bool

var (
	formatsMu sync.RWMutex
	formats   = map[string]FormatValidator{
		"uuid":      isUUID,
		"date":      isDate,
		"date-time": isDateTime,
		"email":     isEmail,
		"uri":       isURI,
		"ipv4":      isIPv4,
		"ipv6":      isIPv6,
		"hostname":  isHostname,
	}
)

// ValidateFormat reports whether value satisfies format. Unknown formats
// always pass.
func ValidateFormat(format, value string) bool {
	formatsMu.RLock()
	v, ok := formats[strings.ToLower(format)]
	formatsMu.RUnlock()
	if !ok {
		return true
	}
	return v(value)
}

// IsKnownFormat reports whether format has a validator.
func IsKnownFormat(format string) bool {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	_, ok := formats[strings.ToLower(format)]
	return ok
}

// RegisterFormat adds or replaces the validator of a format.
func RegisterFormat(name string, validator FormatValidator) {
	formatsMu.Lock()
	defer formatsMu.Unlock()
	formats[strings.ToLower(name)] = validator
}

// RFC 4122 versions 1 to 5.
var uuidPattern = regexp.MustCompile(`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func isUUID(value string) bool {
	return uuidPattern.MatchString(value)
}

func isDate(value string) bool {
	_, err := time.Parse(time.DateOnly, value)
	return err == nil
}

// Offset date-times, or local date-times which are taken as UTC.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

func isDateTime(value string) bool {
	for _, layout := range dateTimeLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

func isEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return false
	}
	at := strings.LastIndexByte(value, '@')
	return at > 0 && at < len(value)-1
}

func isURI(value string) bool {
	u, err := url.Parse(value)
	return err == nil && u.Scheme != ""
}

func isIPv4(value string) bool {
	ip := net.ParseIP(value)
	return ip != nil && ip.To4() != nil && !strings.Contains(value, ":")
}

func isIPv6(value string) bool {
	ip := net.ParseIP(value)
	return ip != nil && strings.Contains(value, ":")
}

var hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func isHostname(value string) bool {
	return len(value) <= 253 && hostnamePattern.MatchString(value)
}
