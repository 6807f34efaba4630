package logging

import (
	"regexp"
	"strings"
)

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|secret[_-]?key|access[_-]?token|auth[_-]?token|bearer|password)([=:\s]+)["']?([^\s"',]+)["']?`),
	regexp.MustCompile(`sk-[A-Za-z0-9_\-]{16,}`),
}

// MaskSecret keeps the first and last four characters of long values.
func MaskSecret(value string) string {
	switch {
	case value == "":
		return ""
	case len(value) <= 4:
		return strings.Repeat("*", len(value))
	case len(value) <= 8:
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// Redact masks API keys and key=value credentials in s. Provider errors
// echo the rejected key, so wrap them with this before logging or printing.
func Redact(s string) string {
	s = secretPatterns[0].ReplaceAllStringFunc(s, func(m string) string {
		sub := secretPatterns[0].FindStringSubmatch(m)
		return sub[1] + sub[2] + MaskSecret(sub[3])
	})
	return secretPatterns[1].ReplaceAllStringFunc(s, MaskSecret)
}

// RedactErr is Redact for error messages. A nil error gives "".
func RedactErr(err error) string {
	if err == nil {
		return ""
	}
	return Redact(err.Error())
}
