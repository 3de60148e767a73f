package kaiten

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Outcome is the tag of a classified response.
type Outcome int

const (
	// OutcomeOK is a 2xx response whose body can be used.
	OutcomeOK Outcome = iota
	// OutcomeRefused is a declined request that must not be retried.
	OutcomeRefused
	// OutcomeRetryable is a transient failure (429, 5xx gateway errors).
	OutcomeRetryable
	// OutcomeFatal is any other failure status.
	OutcomeFatal
)

// String returns a human-readable string for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRefused:
		return "refused"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Verdict is the result of Classify.
type Verdict struct {
	Outcome Outcome
	// Reason explains refusals and retryable failures.
	Reason string
	// RetryAfter is set from a numeric Retry-After header when HasRetryAfter.
	RetryAfter    time.Duration
	HasRetryAfter bool
	// RateLimited is true for every throttling signal, retryable or not.
	RateLimited bool
}

const rateLimitRemainingHeader = "X-RateLimit-Remaining"

// rateLimitPhrases are matched case-insensitively against message/error fields.
var rateLimitPhrases = []string{
	"rate limit",
	"ratelimit",
	"too many requests",
	"request limit",
	"превышен лимит",
	"слишком много запросов",
}

// Classify maps a raw response onto a Verdict. It is the single place that
// decides between success, refusal, retry and hard failure.
//
// Order matters: 429 is always retryable; 401/403, an exhausted rate-limit
// header or a rate-limit message on a failed response are refusals; 500, 502,
// 503 and 504 are retryable; every other non-2xx status is fatal.
func Classify(status int, header http.Header, body []byte) Verdict {
	after, hasAfter := parseRetryAfter(header)

	if status == http.StatusTooManyRequests {
		return Verdict{
			Outcome:       OutcomeRetryable,
			Reason:        "rate limited",
			RetryAfter:    after,
			HasRetryAfter: hasAfter,
			RateLimited:   true,
		}
	}

	if status >= 200 && status < 300 {
		return Verdict{Outcome: OutcomeOK}
	}

	switch status {
	case http.StatusUnauthorized:
		return Verdict{Outcome: OutcomeRefused, Reason: "unauthorized"}
	case http.StatusForbidden:
		return Verdict{Outcome: OutcomeRefused, Reason: "forbidden"}
	}

	if strings.TrimSpace(header.Get(rateLimitRemainingHeader)) == "0" {
		return Verdict{Outcome: OutcomeRefused, Reason: "rate limit exhausted", RateLimited: true}
	}

	if msg := errorMessage(body); msg != "" && mentionsRateLimit(msg) {
		return Verdict{Outcome: OutcomeRefused, Reason: "rate limit: " + msg, RateLimited: true}
	}

	switch status {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return Verdict{
			Outcome:       OutcomeRetryable,
			Reason:        http.StatusText(status),
			RetryAfter:    after,
			HasRetryAfter: hasAfter,
		}
	}

	return Verdict{Outcome: OutcomeFatal, Reason: http.StatusText(status)}
}

// parseRetryAfter reads a numeric (delta-seconds) Retry-After header.
func parseRetryAfter(header http.Header) (time.Duration, bool) {
	raw := strings.TrimSpace(header.Get("Retry-After"))
	if raw == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// errorMessage extracts the message or error field from a JSON object body.
func errorMessage(body []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var parts []string
	for _, raw := range []json.RawMessage{payload.Message, payload.Error} {
		if len(raw) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			parts = append(parts, s)
		} else {
			parts = append(parts, string(raw))
		}
	}
	return strings.Join(parts, "; ")
}

func mentionsRateLimit(msg string) bool {
	lower := strings.ToLower(msg)
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
