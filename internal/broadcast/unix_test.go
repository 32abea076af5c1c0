package broadcast

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goatnetwork/qlink/internal/keystone/envelope"
	"github.com/goatnetwork/qlink/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBroadcast(t *testing.T, st *state.State) (*UnixBroadcast, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run", "qlink.sock")
	b, err := NewUnixBroadcast(st, path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return b, path
}

func dial(t *testing.T, b *UnixBroadcast, path string, want int) *bufio.Reader {
	t.Helper()
	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return b.ClientCount() == want }, time.Second, 10*time.Millisecond)
	return bufio.NewReader(conn)
}

func readJSON(t *testing.T, r *bufio.Reader) map[string]interface{} {
	t.Helper()
	line, err := r.ReadBytes('\n')
	require.NoError(t, err)
	var v map[string]interface{}
	require.NoError(t, json.Unmarshal(line, &v))
	return v
}

func TestSendErrorReachesEveryClient(t *testing.T) {
	b, path := startBroadcast(t, nil)
	first := dial(t, b, path, 1)
	second := dial(t, b, path, 2)

	require.NoError(t, b.SendError("bad frame"))
	assert.Equal(t, map[string]interface{}{"error": "bad frame"}, readJSON(t, first))
	assert.Equal(t, map[string]interface{}{"error": "bad frame"}, readJSON(t, second))
}

func TestForwardsStateEvents(t *testing.T) {
	st := state.InitializeState(nil)
	b, path := startBroadcast(t, st)
	r := dial(t, b, path, 1)
	require.Eventually(t, func() bool {
		return st.EventBus.SubscriberCount(state.PayloadDecoded) == 1
	}, time.Second, 10*time.Millisecond)

	text, err := envelope.Encode("bytes", []byte{1, 2, 3})
	require.NoError(t, err)
	_, err = st.Receive(text)
	require.NoError(t, err)

	v := readJSON(t, r)
	assert.Equal(t, "bytes", v["ur_type"])
	assert.Equal(t, "010203", v["bytes_hex"])

	_, err = st.Receive("ur:bytes/zz")
	require.Error(t, err)
	v = readJSON(t, r)
	assert.Contains(t, v, "error")
}

func TestReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qlink.sock")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	b, err := NewUnixBroadcast(nil, path)
	require.NoError(t, err)
	assert.Equal(t, path, b.Path())

	require.NoError(t, b.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, b.SendError("late"), net.ErrClosed)
}
