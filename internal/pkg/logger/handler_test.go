package logger

import (
	"bytes"
	"context"
	log "log/slog"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestContextHandlerAddsTraceID(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(&ContextHandler{log.NewJSONHandler(&buf, nil)})

	ctx := WithTraceID(context.Background(), "job-generate-1")
	l.InfoContext(ctx, "cycle started")
	l.Info("no trace")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "job-generate-1", lines[0][TraceIDKey])
	_, ok := lines[1][TraceIDKey]
	assert.False(t, ok)
}

func TestRemoteFilterDropsUntracedRecords(t *testing.T) {
	var local, remote bytes.Buffer
	tee := NewTeeHandler(
		log.NewJSONHandler(&local, nil),
		NewRemoteFilterHandler(log.NewJSONHandler(&remote, nil)),
	)
	l := log.New(&ContextHandler{tee})

	l.Info("boot")
	l.InfoContext(WithTraceID(context.Background(), "abc"), "request")

	assert.Len(t, decodeLines(t, &local), 2)
	remoteLines := decodeLines(t, &remote)
	require.Len(t, remoteLines, 1)
	assert.Equal(t, "request", remoteLines[0]["msg"])
}

func TestTraceIDEmptyContext(t *testing.T) {
	assert.Equal(t, "", TraceID(context.Background()))
}
