package kaiten

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		header      http.Header
		body        string
		wantOutcome Outcome
		wantReason  string
		wantLimited bool
	}{
		{name: "ok", status: 200, body: `[]`, wantOutcome: OutcomeOK},
		{name: "created", status: 201, body: `{}`, wantOutcome: OutcomeOK},
		{
			name:        "ok with exhausted header stays ok",
			status:      200,
			header:      http.Header{"X-Ratelimit-Remaining": []string{"0"}},
			body:        `[]`,
			wantOutcome: OutcomeOK,
		},
		{
			name:        "429 is retryable",
			status:      429,
			wantOutcome: OutcomeRetryable,
			wantReason:  "rate limited",
			wantLimited: true,
		},
		{name: "401 refused", status: 401, wantOutcome: OutcomeRefused, wantReason: "unauthorized"},
		{name: "403 refused", status: 403, wantOutcome: OutcomeRefused, wantReason: "forbidden"},
		{
			name:        "exhausted remaining header",
			status:      400,
			header:      http.Header{"X-Ratelimit-Remaining": []string{"0"}},
			wantOutcome: OutcomeRefused,
			wantReason:  "rate limit exhausted",
			wantLimited: true,
		},
		{
			name:        "rate limit phrase in message",
			status:      400,
			body:        `{"message":"Too Many Requests for this token"}`,
			wantOutcome: OutcomeRefused,
			wantReason:  "rate limit: Too Many Requests for this token",
			wantLimited: true,
		},
		{
			name:        "russian rate limit phrase in error",
			status:      422,
			body:        `{"error":"Превышен лимит запросов"}`,
			wantOutcome: OutcomeRefused,
			wantReason:  "rate limit: Превышен лимит запросов",
			wantLimited: true,
		},
		{name: "500 retryable", status: 500, wantOutcome: OutcomeRetryable, wantReason: "Internal Server Error"},
		{name: "502 retryable", status: 502, wantOutcome: OutcomeRetryable, wantReason: "Bad Gateway"},
		{name: "503 retryable", status: 503, wantOutcome: OutcomeRetryable, wantReason: "Service Unavailable"},
		{name: "504 retryable", status: 504, wantOutcome: OutcomeRetryable, wantReason: "Gateway Timeout"},
		{name: "404 fatal", status: 404, body: `{"message":"not found"}`, wantOutcome: OutcomeFatal, wantReason: "Not Found"},
		{name: "501 fatal", status: 501, wantOutcome: OutcomeFatal, wantReason: "Not Implemented"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := tt.header
			if header == nil {
				header = http.Header{}
			}
			v := Classify(tt.status, header, []byte(tt.body))
			assert.Equal(t, tt.wantOutcome, v.Outcome)
			assert.Equal(t, tt.wantReason, v.Reason)
			assert.Equal(t, tt.wantLimited, v.RateLimited)
		})
	}
}

func TestClassify_RetryAfter(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "3")

	v := Classify(http.StatusTooManyRequests, header, nil)
	assert.True(t, v.HasRetryAfter)
	assert.Equal(t, 3*time.Second, v.RetryAfter)

	header.Set("Retry-After", "Wed, 21 Oct 2015 07:28:00 GMT")
	v = Classify(http.StatusTooManyRequests, header, nil)
	assert.False(t, v.HasRetryAfter)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "ok", OutcomeOK.String())
	assert.Equal(t, "refused", OutcomeRefused.String())
	assert.Equal(t, "retryable", OutcomeRetryable.String())
	assert.Equal(t, "fatal", OutcomeFatal.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
