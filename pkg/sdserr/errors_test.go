package sdserr

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not initialized", New(CodeNotInitialized, "Poll", ""), ErrNotInitialized},
		{"table not found", New(CodeTableNotFound, "RegisterTable", "SensorData"), ErrTableNotFound},
		{"max devices", New(CodeMaxDevicesReached, "", ""), ErrMaxDevicesReached},
		{"reserved topic", New(CodeReservedTopic, "PublishRaw", "sds/foo"), ErrReservedTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("%v should unwrap to %v", tt.err, tt.sentinel)
			}
		})
	}
}

func TestErrorMessageIncludesContext(t *testing.T) {
	err := New(CodeTableNotFound, "RegisterTable", "SensorData")
	msg := err.Error()
	if !strings.Contains(msg, "RegisterTable") || !strings.Contains(msg, "SensorData") {
		t.Errorf("error message missing context: %s", msg)
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotInitialized,
		ErrAlreadyInitialized,
		ErrTableNotFound,
		ErrInvalidRole,
		ErrBufferFull,
		ErrReservedTopic,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel errors should be distinct: %v == %v", a, b)
			}
		}
	}
}

func TestValidationBuilder(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(true, "should not appear")
		if v.HasErrors() {
			t.Error("expected no errors")
		}
		if err := v.Build(); err != nil {
			t.Errorf("Build() = %v, want nil", err)
		}
	})

	t.Run("accumulates failures", func(t *testing.T) {
		v := (&ValidationBuilder{}).
			Add(false, "node id empty").
			Add(true, "passes").
			AddErrorf("byte %q not in [A-Za-z0-9_-]", "!")

		if !v.HasErrors() {
			t.Fatal("expected errors")
		}
		err := v.Build()
		ve, ok := err.(*ValidationError)
		if !ok {
			t.Fatalf("expected *ValidationError, got %T", err)
		}
		if len(ve.Errors) != 2 {
			t.Fatalf("expected 2 errors, got %d: %v", len(ve.Errors), ve.Errors)
		}
		if !errors.Is(err, ErrInvalidConfig) {
			t.Error("ValidationError should unwrap to ErrInvalidConfig")
		}
	})
}
