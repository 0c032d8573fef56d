package protocol

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listenAny binds an OS-assigned loopback port so tests never collide.
func listenAny(t *testing.T) (net.Listener, int) {
	t.Helper()
	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, l.Addr().(*net.TCPAddr).Port
}

func TestSendReceiveRoundTrip(t *testing.T) {
	l, port := listenAny(t)

	sent := Message{"action": "read", "data_type": "vehicle", "model": "all"}
	done := make(chan error, 1)
	go func() {
		done <- Send(Host, port, sent)
	}()

	var data []byte
	for data == nil {
		var err error
		data, err = Receive(l)
		require.NoError(t, err)
	}
	require.NoError(t, <-done)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "read", got["action"])
	assert.Equal(t, "vehicle", got["data_type"])
	assert.Equal(t, "all", got["model"])
}

func TestReceiveTimesOutQuietly(t *testing.T) {
	l, _ := listenAny(t)

	start := time.Now()
	data, err := Receive(l)
	assert.NoError(t, err)
	assert.Nil(t, data)
	// one accept timeout, not an indefinite block
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestReceiveWaitsForPeerClose(t *testing.T) {
	l, _ := listenAny(t)

	// write in two chunks with a pause longer than the read timeout; the
	// receiver must keep the connection open until the close
	go func() {
		conn, err := net.Dial("tcp", l.Addr().String())
		if err != nil {
			return
		}
		conn.Write([]byte(`{"action":`))
		time.Sleep(1200 * time.Millisecond)
		conn.Write([]byte(`"read"}`))
		conn.Close()
	}()

	var data []byte
	for data == nil {
		var err error
		data, err = Receive(l)
		require.NoError(t, err)
	}

	msg, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "read", msg["action"])
}

func TestSendToUnboundPortFails(t *testing.T) {
	l, port := listenAny(t)
	l.Close()

	err := Send(Host, port, Message{"action": "read"})
	assert.Error(t, err)
}
