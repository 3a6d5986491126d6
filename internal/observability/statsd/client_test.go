package statsd

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" batch/outcome ":  "batch_outcome",
		"run..done":        "run.done",
		"two  spaces":      "two__spaces",
		"lease/acquire/ok": "lease_acquire_ok",
		"..trimmed..":      "trimmed",
		"":                 "",
	}

	for input, want := range tests {
		assert.Equal(t, want, cleanName(input), "input %q", input)
	}
}

func TestAppendTags(t *testing.T) {
	t.Parallel()

	base := map[string]string{
		"env":       "prod",
		" service ": " quiz-pipeline ",
	}
	extra := map[string]string{
		"result": " success ",
		"":       "ignored",
		"env":    "stage",
	}

	got := string(appendTags(nil, base, extra))
	assert.Equal(t, "|#env:stage,result:success,service:quiz-pipeline", got,
		"per-call tags override globals, keys sorted, whitespace trimmed")

	assert.Empty(t, appendTags(nil, nil, nil))
}

func TestTrimTagSet(t *testing.T) {
	t.Parallel()

	original := map[string]string{
		"env": " prod ",
		"":    "ignored",
	}

	cleaned := trimTagSet(original)
	require.NotNil(t, cleaned)
	assert.Equal(t, "prod", cleaned["env"])
	assert.NotContains(t, cleaned, "")

	cleaned["env"] = "stage"
	assert.Equal(t, " prod ", original["env"], "trimTagSet returns a copy")
}

func TestNewClientDisabled(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: false, Address: "localhost:8125"})
	require.NoError(t, err)
	assert.False(t, client.Enabled())

	// Emitting on a disabled client must be a no-op, not a panic.
	client.Count("batch.outcome", 1, nil)
	client.Gauge("lease.active", 2, nil)
	client.Timing("batch.duration", time.Second, nil)
	assert.NoError(t, client.Close())
}

func TestNewClientBlankAddressDisables(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
}

func TestClientEmitsOverUDP(t *testing.T) {
	t.Parallel()

	addr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	require.NoError(t, err)
	server, err := net.ListenUDP("udp", addr)
	require.NoError(t, err)
	defer server.Close()

	client, err := NewClient(Config{
		Enabled:    true,
		Address:    server.LocalAddr().String(),
		Prefix:     "quiz_pipeline",
		GlobalTags: map[string]string{"env": "test"},
	})
	require.NoError(t, err)
	defer client.Close()

	client.Count("batch.outcome", 3, map[string]string{"result": "success"})

	require.NoError(t, server.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, _, err := server.ReadFromUDP(buf)
	require.NoError(t, err)

	assert.Equal(t, "quiz_pipeline.batch.outcome:3|c|#env:test,result:success", string(buf[:n]))
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{conn: clientConn}

	assert.True(t, client.Enabled())
	require.NoError(t, client.Close())
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close(), "Close is idempotent")
}

func TestNilClientIsSafe(t *testing.T) {
	t.Parallel()

	var client *Client
	assert.False(t, client.Enabled())
	client.Count("x", 1, nil)
	client.Gauge("x", 1, nil)
	client.Timing("x", time.Second, nil)
	assert.NoError(t, client.Close())
}
