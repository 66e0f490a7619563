package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// TestFromContext_FallsBackToGlobal verifies an empty context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestWithKV_AttachesFields checks that fields added to the context show up in entries.
func TestWithKV_AttachesFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "session")
	ctx = WithKV(ctx, "session_id", "abc")

	InfoKV(ctx, "frame processed", "frame", 7)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "session", entries[0].LoggerName)
	require.Equal(t, "abc", entries[0].ContextMap()["session_id"])
	require.EqualValues(t, 7, entries[0].ContextMap()["frame"])
}
