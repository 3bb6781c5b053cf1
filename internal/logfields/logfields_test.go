package logfields

import (
	"errors"
	"testing"
)

func TestHelpers(t *testing.T) {
	if a := Task("build"); a.Key != KeyTask || a.Value.String() != "build" {
		t.Fatalf("unexpected task attr: %v", a)
	}
	if a := Files(3); a.Key != KeyFiles || a.Value.Int64() != 3 {
		t.Fatalf("unexpected files attr: %v", a)
	}
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("nil error should be empty, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("unexpected error attr: %v", a)
	}
}
