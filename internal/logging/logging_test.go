package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")

	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("cart_merge_failed", "status", 500)
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "cart_merge_failed", line["msg"])
	assert.EqualValues(t, 500, line["status"])
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	t.Parallel()

	assert.Same(t, slog.Default(), FromContext(context.Background()))

	l := NewWithWriter(&bytes.Buffer{}, "")
	ctx := IntoContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}
