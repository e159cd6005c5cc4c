package httpd

import (
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badu/httpd/hdr"
	"github.com/badu/httpd/tport"
)

func newTestContext(t *testing.T) (*HttpContext, net.Conn, func()) {
	t.Helper()
	server, client := net.Pipe()
	ctx := &HttpContext{pool: &ContextPool{}}
	ctx.InitializeContext(&tport.Context{Conn: server}, &Buffers{
		RequestHeader: make([]byte, 4096), ResponseHeader: make([]byte, 4096),
		Chunk: make([]byte, 32), Discard: make([]byte, 4096), FormData: make([]byte, 4096),
	})
	ctx.BeginRequest()
	ctx.Request.State.ProtoMajor, ctx.Request.State.ProtoMinor = 1, 1
	ctx.Request.State.Keepalive = true
	return ctx, client, func() { _ = server.Close(); _ = client.Close() }
}

func TestWritePipelineLengthDelimited(t *testing.T) {
	ctx, client, done := newTestContext(t)
	defer done()

	ctx.Response.StatusCode = 200
	ctx.Response.Body.SetSized(bytes.NewReader([]byte("hi")), 2, "text/plain; charset=utf-8")

	out := make(chan string, 1)
	go func() {
		buf, _ := io.ReadAll(client)
		out <- string(buf)
	}()

	require.NoError(t, writePipeline(ctx, CompressionConfig{}))
	_ = ctx.Transport.Conn.Close()
	got := <-out
	assert.Contains(t, got, "HTTP/1.1 200 OK\r\n")
	assert.Contains(t, got, "Content-Length: 2\r\n")
	assert.Contains(t, got, "\r\n\r\nhi")
}

func TestWritePipelineHeadRequestOmitsBody(t *testing.T) {
	ctx, client, done := newTestContext(t)
	defer done()

	ctx.Flags.set(FlagHeadRequest)
	ctx.Response.StatusCode = 200
	ctx.Response.Body.SetSized(bytes.NewReader([]byte("hi")), 2, "text/plain; charset=utf-8")

	out := make(chan string, 1)
	go func() {
		buf, _ := io.ReadAll(client)
		out <- string(buf)
	}()

	require.NoError(t, writePipeline(ctx, CompressionConfig{}))
	_ = ctx.Transport.Conn.Close()
	got := <-out
	assert.NotContains(t, got, "hi")
}

func TestWritePipelineNoKeepaliveAddsConnectionClose(t *testing.T) {
	ctx, client, done := newTestContext(t)
	defer done()
	ctx.Request.State.Keepalive = false
	ctx.Response.StatusCode = 204

	out := make(chan string, 1)
	go func() {
		buf, _ := io.ReadAll(client)
		out <- string(buf)
	}()

	require.NoError(t, writePipeline(ctx, CompressionConfig{}))
	_ = ctx.Transport.Conn.Close()
	got := <-out
	assert.Contains(t, got, hdr.Connection+": close")
}
