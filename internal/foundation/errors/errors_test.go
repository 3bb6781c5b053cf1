package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "markup.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}

		file, exists := err.Context().GetString("file")
		if !exists || file != "markup.yaml" {
			t.Errorf("expected context file=markup.yaml, got %v", file)
		}
	})

	t.Run("Wrapped detection", func(t *testing.T) {
		inner := TransformError("bad input").WithContext("step", "preprocess").Build()
		wrapped := fmt.Errorf("pipeline css: %w", inner)

		require.True(t, IsClassified(wrapped))
		assert.True(t, HasCategory(wrapped, CategoryTransform))
		assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		tests := []struct {
			name     string
			builder  *ErrorBuilder
			category ErrorCategory
			severity ErrorSeverity
			retry    RetryStrategy
		}{
			{"ConfigError", ConfigError("test"), CategoryConfig, SeverityFatal, RetryUserAction},
			{"ValidationError", ValidationError("test"), CategoryValidation, SeverityFatal, RetryNever},
			{"TransformError", TransformError("test"), CategoryTransform, SeverityError, RetryNextEvent},
			{"WriteError", WriteError("test"), CategoryFileSystem, SeverityError, RetryNextEvent},
			{"NetworkError", NetworkError("test"), CategoryNetwork, SeverityError, RetryBackoff},
			{"InternalError", InternalError("test"), CategoryInternal, SeverityFatal, RetryNever},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.builder.Build()
				assert.Equal(t, tt.category, err.Category())
				assert.Equal(t, tt.severity, err.Severity())
				assert.Equal(t, tt.retry, err.RetryStrategy())
			})
		}
	})
}

func TestAggregateError(t *testing.T) {
	first := TransformError("bad js").Build()
	second := WriteError("read-only").Build()

	assert.NoError(t, NewAggregate("build", nil))

	err := NewAggregate("build", []MemberError{{Member: "js", Err: first}, {Member: "fonts", Err: second}})
	require.Error(t, err)

	var agg *AggregateError
	require.True(t, stderrors.As(err, &agg))
	assert.Equal(t, []string{"js", "fonts"}, agg.Failed())
	assert.True(t, stderrors.Is(err, first))
	assert.True(t, stderrors.Is(err, second))
	assert.Contains(t, err.Error(), "2 task(s) failed in build")

	outer := &AggregateError{Group: "default", Members: []MemberError{{Member: "build", Err: err}}}
	assert.Len(t, outer.Flatten(), 2)
}

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation", ValidationError("bad").Build(), 2},
		{"config", ConfigError("bad config").Build(), 7},
		{"transform", TransformError("bad css").Build(), 11},
		{"aggregate", NewAggregate("build", []MemberError{{Member: "js", Err: ConfigError("x").Build()}}), 11},
		{"unclassified", stderrors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())
	err := TransformError("stylesheet compilation failed").
		WithContext("file", "main.scss").
		WithCause(stderrors.New("expected ';'")).
		Build()

	assert.Equal(t, "Error: stylesheet compilation failed (main.scss): expected ';'", adapter.FormatError(err))
	assert.Equal(t, "Error: boom", adapter.FormatError(stderrors.New("boom")))
}
