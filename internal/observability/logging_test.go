package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestWithInvocationID(t *testing.T) {
	ctx := WithInvocationID(context.Background(), "inv-123")

	lc := GetContext(ctx)
	if lc.InvocationID != "inv-123" {
		t.Errorf("expected inv-123, got %s", lc.InvocationID)
	}
}

func TestNestedTasksKeepInvocation(t *testing.T) {
	ctx := WithInvocationID(context.Background(), "inv-1")
	ctx = WithTrigger(ctx, "cli")
	ctx = WithTask(ctx, "build")
	inner := WithTask(ctx, "styles")

	if GetContext(ctx).Task != "build" {
		t.Error("parent context must not change")
	}
	lc := GetContext(inner)
	if lc.Task != "styles" || lc.InvocationID != "inv-1" || lc.Trigger != "cli" {
		t.Errorf("unexpected context %+v", lc)
	}
}

func TestEmptyContext(t *testing.T) {
	if attrs := getLogAttrs(context.Background()); len(attrs) != 0 {
		t.Errorf("expected no attributes, got %d", len(attrs))
	}
}

func TestInfoContextIncludesAttributes(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := WithMode(WithTask(context.Background(), "js"), "production")
	InfoContext(ctx, "Task finished", slog.Int("files", 2))

	out := buf.String()
	for _, want := range []string{"task=js", "mode=production", "files=2", "Task finished"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}
