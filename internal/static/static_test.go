package static

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyx3211/edgeserve/internal/httpcore"
)

func writeResponse(t *testing.T, r *Responder, path string) string {
	t.Helper()
	return writeResponseMethod(t, r, "GET", path)
}

func writeResponseMethod(t *testing.T, r *Responder, method, path string) string {
	t.Helper()
	conn := httpcore.NewConnection(-1, "127.0.0.1")
	r.Serve(conn, method, path)
	return string(conn.PendingWrite())
}

func TestServeIndexHTML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("hi"), 0o644))

	r := New(dir, true)
	resp := writeResponse(t, r, "/")

	assert.Contains(t, resp, "HTTP/1.1 200 OK\r\n")
	assert.Contains(t, resp, "Content-Length: 2\r\n")
	assert.Contains(t, resp, "Content-Type: text/html")
	assert.Contains(t, resp, "\r\n\r\nhi")
}

func TestServeHeadOmitsBody(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("hi"), 0o644))

	r := New(dir, true)
	resp := writeResponseMethod(t, r, "HEAD", "/")

	assert.Contains(t, resp, "HTTP/1.1 200 OK\r\n")
	assert.Contains(t, resp, "Content-Length: 2\r\n")
	assert.True(t, strings.HasSuffix(resp, "\r\n\r\n"))
}

func TestServeMissingFileIs404(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, true)
	resp := writeResponse(t, r, "/nope")
	assert.Contains(t, resp, "HTTP/1.1 404 Not Found\r\n")
}

func TestServeMimeDisabledUsesOctetStream(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("A"), 0o644))

	r := New(dir, false)
	resp := writeResponse(t, r, "/a")
	assert.Contains(t, resp, "Content-Type: application/octet-stream")
}

func TestServeRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "child"), 0o755))
	outside := filepath.Join(filepath.Dir(dir), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("top secret"), 0o644))
	defer os.Remove(outside)

	r := New(filepath.Join(dir, "child"), true)
	resp := writeResponse(t, r, "/../secret.txt")
	// The leading "/"+rel join rebases ".." to the document root before
	// any traversal check runs, so this can never resolve outside it.
	assert.NotContains(t, resp, "top secret")
	assert.Contains(t, resp, "HTTP/1.1 404 Not Found\r\n")
}
