package gcp

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("POSPLITTER_TEST_SET", "value")
	t.Setenv("POSPLITTER_TEST_EMPTY", "")

	if got := GetEnv("POSPLITTER_TEST_SET", "fallback"); got != "value" {
		t.Errorf("expected %q, got %q", "value", got)
	}
	if got := GetEnv("POSPLITTER_TEST_EMPTY", "fallback"); got != "" {
		t.Errorf("set-but-empty should win over fallback, got %q", got)
	}
	if got := GetEnv("POSPLITTER_TEST_UNSET_XYZ", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
}

func TestIsPreconditionFailed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"412", &googleapi.Error{Code: http.StatusPreconditionFailed}, true},
		{"wrapped 412", fmt.Errorf("close: %w", &googleapi.Error{Code: http.StatusPreconditionFailed}), true},
		{"404", &googleapi.Error{Code: http.StatusNotFound}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPreconditionFailed(tt.err); got != tt.want {
				t.Errorf("IsPreconditionFailed(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
