package errors

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "river.config.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid configuration" {
			t.Errorf("expected message 'invalid configuration', got %s", err.Message())
		}
		file, exists := err.Context().GetString("file")
		if !exists || file != "river.config.yaml" {
			t.Errorf("expected context file=river.config.yaml, got %v", file)
		}
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		inner := BuildError("Build failed with errors.").Build()
		wrapped := fmt.Errorf("legacy pass: %w", inner)

		if !IsClassified(wrapped) {
			t.Fatal("expected wrapped error to be classified")
		}
		if !HasCategory(wrapped, CategoryBuild) {
			t.Error("expected build category")
		}
		if GetCategory(errors.New("plain")) != CategoryInternal {
			t.Error("expected unclassified errors to report internal category")
		}
	})

	t.Run("Cause is preserved", func(t *testing.T) {
		cause := errors.New("address already in use")
		err := DevServerError("listen failed").WithCause(cause).Build()
		if !errors.Is(err, cause) {
			t.Error("expected cause to be reachable")
		}
		if !strings.Contains(err.Error(), "address already in use") {
			t.Errorf("expected cause in message, got %q", err.Error())
		}
	})
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		retry    RetryStrategy
	}{
		{"ConfigError", ConfigError("test"), CategoryConfig, RetryUserAction},
		{"ValidationError", ValidationError("test"), CategoryValidation, RetryUserAction},
		{"ResolutionError", ResolutionError("test"), CategoryResolution, RetryUserAction},
		{"BuildError", BuildError("test"), CategoryBuild, RetryNever},
		{"DevServerError", DevServerError("test"), CategoryDevServer, RetryNever},
		{"PluginError", PluginError("test"), CategoryPlugin, RetryNever},
		{"InternalError", InternalError("test"), CategoryInternal, RetryNever},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Build()
			if err.Category() != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category())
			}
			if !err.IsFatal() {
				t.Errorf("expected %s to be fatal", tt.name)
			}
			if err.RetryStrategy() != tt.retry {
				t.Errorf("expected retry %s, got %s", tt.retry, err.RetryStrategy())
			}
		})
	}
}

func TestErrorContextMerge(t *testing.T) {
	ctx1 := ErrorContext{}.Set("key1", "value1").Set("shared", "original")
	ctx2 := ErrorContext{}.Set("key2", "value2").Set("shared", "overridden")

	merged := ctx1.Merge(ctx2)
	if v, _ := merged.GetString("key1"); v != "value1" {
		t.Errorf("expected key1=value1, got %s", v)
	}
	if v, _ := merged.GetString("shared"); v != "overridden" {
		t.Errorf("expected shared=overridden, got %s", v)
	}
}

func TestCLIErrorAdapter(t *testing.T) {
	var out bytes.Buffer
	code := -1
	adapter := NewCLIErrorAdapter(true, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	adapter.out = &out
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(ResolutionError(`command "nope" does not exist.`).WithContext("command", "nope").Build())

	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(out.String(), `command "nope" does not exist.`) {
		t.Errorf("unexpected output %q", out.String())
	}
	if !strings.Contains(out.String(), "command: nope") {
		t.Errorf("expected verbose context in output %q", out.String())
	}
	if adapter.ExitCodeFor(nil) != 0 {
		t.Error("expected exit code 0 for nil error")
	}
}
