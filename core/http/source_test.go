package http_test

import (
	"bytes"
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	astcore "github.com/meigma/astedit/core"
	asthttp "github.com/meigma/astedit/core/http"
	"github.com/meigma/astedit/core/testutil"
)

type version struct {
	data []byte
	etag string
}

// serve serves the current version with range and ETag support.
func serve(t *testing.T, cur *atomic.Pointer[version]) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		v := cur.Load()
		if v.etag != "" {
			w.Header().Set("ETag", v.etag)
		}
		nethttp.ServeContent(w, r, "root.ast", time.Time{}, bytes.NewReader(v.data))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSourceReadAt(t *testing.T) {
	t.Parallel()

	var cur atomic.Pointer[version]
	cur.Store(&version{data: []byte("hello world")})
	server := serve(t, &cur)

	src, err := asthttp.NewSource(server.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(11), src.Size())
	assert.Equal(t, server.URL, src.URL())

	buf := make([]byte, 5)
	n, err := src.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))

	edge := make([]byte, 10)
	n, err = src.ReadAt(edge, 8)
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "rld", string(edge[:n]))

	_, err = src.ReadAt(buf, 11)
	require.ErrorIs(t, err, io.EOF)
	_, err = src.ReadAt(buf, -1)
	require.Error(t, err)
}

func TestSourceRangeUnsupported(t *testing.T) {
	t.Parallel()

	data := []byte("range unsupported")
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method == nethttp.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(data)))
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)

	_, err := asthttp.NewSource(server.URL)
	require.ErrorIs(t, err, asthttp.ErrRangeUnsupported)
}

func TestSourceDetectsReplacedContent(t *testing.T) {
	t.Parallel()

	var cur atomic.Pointer[version]
	cur.Store(&version{data: []byte("first version"), etag: `"v1"`})
	server := serve(t, &cur)

	src, err := asthttp.NewSource(server.URL)
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = src.ReadAt(buf, 0)
	require.NoError(t, err)

	cur.Store(&version{data: []byte("other version"), etag: `"v2"`})
	_, err = src.ReadAt(buf, 0)
	require.ErrorContains(t, err, "changed since open")
}

func TestSourceHeaders(t *testing.T) {
	t.Parallel()

	var seen atomic.Int64
	data := []byte("secret root")
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(nethttp.StatusUnauthorized)
			return
		}
		seen.Add(1)
		nethttp.ServeContent(w, r, "root.ast", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)

	_, err := asthttp.NewSource(server.URL)
	require.Error(t, err)

	src, err := asthttp.NewSource(server.URL,
		asthttp.WithHeader("Authorization", "Bearer token"),
		asthttp.WithClient(server.Client()),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), src.Size())
	assert.Equal(t, seen.Load(), src.Requests())
}

func TestSourceParseAndExport(t *testing.T) {
	t.Parallel()

	texture := testutil.Texture(astcore.KindP3R, astcore.FormatDXT1, 16, 16)
	inner := testutil.Container(t,
		testutil.Leaf([]byte("\x00inner")),
		testutil.Deflated(texture),
	)
	data := testutil.Container(t,
		testutil.Leaf([]byte("\x00first")),
		testutil.Deflated(inner),
	)
	var cur atomic.Pointer[version]
	cur.Store(&version{data: data, etag: `"root"`})
	server := serve(t, &cur)

	src, err := asthttp.NewSource(server.URL)
	require.NoError(t, err)

	ctx := context.Background()
	root, err := astcore.Parse(ctx, src, astcore.WithRecursive(true), astcore.WithPreviews(false))
	require.NoError(t, err)
	require.Len(t, root.Entries, 2)
	require.NotNil(t, root.Entries[1].Nested)
	assert.Len(t, root.Entries[1].Nested.Entries, 2)

	addr, err := astcore.ParseAddress("0_1_1")
	require.NoError(t, err)
	var out bytes.Buffer
	_, err = astcore.Export(ctx, src, addr, &out, astcore.ExportWithDecompress(true))
	require.NoError(t, err)
	assert.Equal(t, texture, out.Bytes())
}
