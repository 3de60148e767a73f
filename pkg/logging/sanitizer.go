package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
)

const (
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
	// visibleTokenSuffix is how many trailing characters of a masked token stay readable
	visibleTokenSuffix = 6
)

var (
	// Bearer tokens of any shape (Kaiten tokens are opaque, not JWTs)
	bearerPattern = regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-_.~+/=]+`)

	// Pattern to match potential passwords in connection strings
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Pattern to match connection string credentials (user:pass@host format)
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@`)

	// sensitiveHeaders are masked in debug output unless secrets are shown
	sensitiveHeaders = map[string]bool{
		"authorization": true,
		"x-api-key":     true,
		"api-key":       true,
		"cookie":        true,
	}
)

// MaskToken replaces all but the last few characters of a secret with '*'.
func MaskToken(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= visibleTokenSuffix {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-visibleTokenSuffix) + value[len(value)-visibleTokenSuffix:]
}

// MaskHeaders returns a flattened copy of h suitable for logging.
// Credential headers are masked unless showSecrets is set.
func MaskHeaders(h http.Header, showSecrets bool) map[string]string {
	out := make(map[string]string, len(h))
	for k, values := range h {
		v := strings.Join(values, ", ")
		if !showSecrets && sensitiveHeaders[strings.ToLower(k)] {
			if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
				v = "Bearer " + MaskToken(v[7:])
			} else {
				v = MaskToken(v)
			}
		}
		out[k] = v
	}
	return out
}

// HashPayload returns a stable SHA-256 of a JSON document so two responses can be
// compared in logs without printing them. Key order does not affect the hash;
// bodies that are not JSON are hashed as raw bytes.
func HashPayload(body []byte) string {
	var decoded interface{}
	data := body
	if err := json.Unmarshal(body, &decoded); err == nil {
		// encoding/json sorts map keys on output
		if canonical, err := json.Marshal(decoded); err == nil {
			data = canonical
		}
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SanitizeError sanitizes error messages that might contain sensitive data.
// Use this before logging any error that may echo request URLs or headers.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error())
}

// SanitizeString removes bearer tokens and credentials from free text.
func SanitizeString(s string) string {
	sanitized := bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@")
	return sanitized
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
