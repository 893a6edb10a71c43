package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFromContext_ReturnsStoredLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), NewWithWriter(&buf))

	FromContext(ctx).Error().Str("scope", "stored").Msg("boom")

	out := buf.String()
	if !strings.Contains(out, `"scope":"stored"`) {
		t.Errorf("log output = %q, want the stored logger's field", out)
	}
	if !strings.Contains(out, `"level":"error"`) {
		t.Errorf("log output = %q, want error level", out)
	}
}

func TestFromContext_FallsBackWithoutStoredLogger(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil {
		t.Fatal("expected a usable fallback logger")
	}
	// Chaining a level method must work on the returned logger.
	l.Warn().Msg("fallback")
}
