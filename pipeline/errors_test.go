package pipeline

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
)

func TestClassifyFetchError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server", err: nil, statusCode: http.StatusBadGateway, expected: "server"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fetchErrorLabel(classifyFetchError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyFetchError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestRetryableFetch(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "timeout", err: classifyFetchError(context.DeadlineExceeded, 0), retryable: true},
		{name: "connection", err: classifyFetchError(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, 0), retryable: true},
		{name: "rate limited", err: classifyFetchError(nil, http.StatusTooManyRequests), retryable: true},
		{name: "server", err: classifyFetchError(nil, http.StatusInternalServerError), retryable: true},
		{name: "forbidden", err: classifyFetchError(nil, http.StatusForbidden), retryable: false},
		{name: "not found", err: classifyFetchError(nil, http.StatusNotFound), retryable: false},
		{name: "plain", err: errors.New("boom"), retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryableFetch(tt.err); got != tt.retryable {
				t.Fatalf("retryableFetch(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}
