// Package errors provides foundational, type-safe error primitives used across the
// asset pipeline.
//
// This package contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, transform, filesystem, etc.)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - RetryStrategy: Retry behavior (never, immediate, backoff)
//   - ClassifiedError: Structured error with category, severity, and context
//   - AggregateError: Every member failure of a parallel task group
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLI adapter for error presentation and exit codes
//
// Example usage:
//
//	err := errors.TransformError("stylesheet compilation failed").
//		WithContext("step", "preprocess").
//		WithContext("file", "assets/stylesheets/main.scss").
//		WithCause(sassErr).
//		Build()
package errors
