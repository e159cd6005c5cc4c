package reader

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipe(t *testing.T, write string) (net.Conn, func()) {
	t.Helper()
	server, client := net.Pipe()
	go func() {
		_, _ = client.Write([]byte(write))
		_ = client.Close()
	}()
	return server, func() { _ = server.Close() }
}

func TestReadLineSplitsOnCRLF(t *testing.T) {
	conn, closeFn := pipe(t, "GET / HTTP/1.1\r\nHost: x\r\n\r\n")
	defer closeFn()

	r := New(conn, make([]byte, 4096))
	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "GET / HTTP/1.1", string(line))

	line, err = r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "Host: x", string(line))

	line, err = r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "", string(line))
}

func TestReadLineEOFOnEmptyRead(t *testing.T) {
	conn, closeFn := pipe(t, "")
	defer closeFn()

	r := New(conn, make([]byte, 64))
	_, err := r.ReadLine()
	assert.Equal(t, io.EOF, err)
}

func TestWindowInvariants(t *testing.T) {
	conn, closeFn := pipe(t, "hello world")
	defer closeFn()

	r := New(conn, make([]byte, 64))
	_, err := r.FillBuffer()
	require.NoError(t, err)
	assert.True(t, r.Available() > 0)

	r.Advance(5)
	assert.Equal(t, " world", string(r.Window()))
}

func TestBufferFullReturnsErrBufferFull(t *testing.T) {
	conn, closeFn := pipe(t, "no newline here at all and it just keeps going past the tiny buffer size")
	defer closeFn()

	r := New(conn, make([]byte, 8))
	_, err := r.ReadLine()
	assert.ErrorIs(t, err, ErrBufferFull)
}

func TestCompactBufferWindow(t *testing.T) {
	conn, closeFn := pipe(t, "abcdef")
	defer closeFn()

	r := New(conn, make([]byte, 64))
	_, err := r.FillBuffer()
	require.NoError(t, err)
	r.Advance(3)
	r.CompactBufferWindow()
	assert.Equal(t, 0, r.windowStart)
	assert.Equal(t, "def", string(r.Window()))
}
