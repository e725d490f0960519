package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	err := NotFoundError("channel Twitter")
	if err.Error() != "not_found: channel Twitter not found" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestAppErrorWithCodeAndContext(t *testing.T) {
	err := ProviderError("instagram", "media fetch failed", nil).
		WithCode("invalid_response").
		WithContext("media_id", "123")

	msg := err.Error()
	for _, want := range []string{"provider", "instagram", "code=invalid_response", "media_id=123"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := ConnectionError("broker unreachable", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestIsType(t *testing.T) {
	err := ValidationError("bad trigger type")

	if !IsType(err, ErrTypeValidation) {
		t.Error("IsType should match validation errors")
	}
	if IsType(err, ErrTypeConnection) {
		t.Error("IsType should not match a different type")
	}
	if IsType(nil, ErrTypeValidation) {
		t.Error("IsType(nil) should be false")
	}
	if IsType(errors.New("plain"), ErrTypeValidation) {
		t.Error("IsType should be false for non-AppError")
	}
}

func TestGetType(t *testing.T) {
	if got := GetType(ConfigError("missing key")); got != ErrTypeConfig {
		t.Errorf("GetType() = %v", got)
	}
	if got := GetType(errors.New("plain")); got != ErrTypeInternal {
		t.Errorf("GetType(plain) = %v", got)
	}
	if got := GetType(nil); got != ErrorType("") {
		t.Errorf("GetType(nil) = %v", got)
	}
}
