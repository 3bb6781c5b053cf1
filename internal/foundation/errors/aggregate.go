package errors

import (
	"fmt"
	"strings"
)

// MemberError is the failure of one member of a parallel task group.
type MemberError struct {
	Member string
	Err    error
}

func (m MemberError) Error() string { return m.Member + ": " + m.Err.Error() }

func (m MemberError) Unwrap() error { return m.Err }

// AggregateError collects every member failure of a parallel group. Members are kept
// in the group's declaration order so reports are stable across runs.
type AggregateError struct {
	Group   string
	Members []MemberError
}

// NewAggregate returns nil when members is empty.
func NewAggregate(group string, members []MemberError) error {
	if len(members) == 0 {
		return nil
	}
	return &AggregateError{Group: group, Members: members}
}

func (a *AggregateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s:%s] %d task(s) failed in %s", CategoryAggregate, SeverityError, len(a.Members), a.Group)
	for _, m := range a.Members {
		b.WriteString("\n  - ")
		b.WriteString(m.Error())
	}
	return b.String()
}

// Unwrap exposes member errors to errors.Is and errors.As.
func (a *AggregateError) Unwrap() []error {
	out := make([]error, 0, len(a.Members))
	for _, m := range a.Members {
		out = append(out, m)
	}
	return out
}

// Failed lists the names of the failed members.
func (a *AggregateError) Failed() []string {
	names := make([]string, 0, len(a.Members))
	for _, m := range a.Members {
		names = append(names, m.Member)
	}
	return names
}

// Flatten returns every leaf failure, expanding nested aggregates.
func (a *AggregateError) Flatten() []MemberError {
	var out []MemberError
	for _, m := range a.Members {
		if nested, ok := m.Err.(*AggregateError); ok {
			out = append(out, nested.Flatten()...)
			continue
		}
		out = append(out, m)
	}
	return out
}
