package httpc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	begins    int
	body      []byte
	completes int
	err       error
}

func (rec *recorder) handler() HandlerFuncs {
	return HandlerFuncs{
		Begin: func(r *Response) { rec.begins++ },
		Data:  func(r *Response, data []byte) { rec.body = append(rec.body, data...) },
		Complete: func(r *Response, err error) {
			rec.completes++
			rec.err = err
		},
	}
}

// feedSplit feeds raw in pieces of size n and returns the total consumed.
func feedSplit(t *testing.T, r *Response, raw string, n int) (int, error) {
	total := 0
	for i := 0; i < len(raw); i += n {
		end := i + n
		if end > len(raw) {
			end = len(raw)
		}
		c, err := r.Feed([]byte(raw[i:end]))
		total += c
		if err != nil {
			return total, err
		}
		if r.Complete() {
			break
		}
	}
	return total, nil
}

func TestFixedLengthAnyFragmentation(t *testing.T) {
	body := strings.Repeat("0123456789", 37)
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 370\r\nX-A: 1\r\n\r\n" + body
	for _, n := range []int{1, 2, 3, 7, 64, 1000} {
		rec := &recorder{}
		r := NewResponse("POST", "/", rec.handler())
		consumed, err := feedSplit(t, r, raw+"HTTP/1.1 next", n)
		require.NoError(t, err, "split %d", n)
		assert.Equal(t, len(raw), consumed, "split %d", n)
		assert.Equal(t, body, string(rec.body), "split %d", n)
		assert.Equal(t, 1, rec.begins)
		assert.Equal(t, 1, rec.completes)
		assert.True(t, r.Complete())
		c, err := r.Feed([]byte("more"))
		assert.Equal(t, 0, c)
		assert.NoError(t, err)
		assert.Equal(t, 1, rec.completes)
	}
}

func TestChunkedWithTrailers(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n" +
		"7;ext=1\r\n, world\r\n" +
		"0\r\nX-Checksum: abc\r\nx-extra: 1\r\n\r\n"
	for _, n := range []int{1, 4, 1024} {
		rec := &recorder{}
		r := NewResponse("POST", "/", rec.handler())
		consumed, err := feedSplit(t, r, raw, n)
		require.NoError(t, err)
		assert.Equal(t, len(raw), consumed)
		assert.Equal(t, "hello, world", string(rec.body))
		assert.Equal(t, "abc", r.GetHeader("x-checksum"))
		assert.Equal(t, "1", r.GetHeader("X-Extra"))
		assert.Equal(t, 1, rec.completes)
		assert.EqualValues(t, 12, r.BytesRead())
	}
}

func TestWillClose(t *testing.T) {
	cases := []struct {
		version    string
		connection string
		want       bool
	}{
		{"HTTP/1.1", "", false},
		{"HTTP/1.1", "close", true},
		{"HTTP/1.1", "Keep-Alive", false},
		{"HTTP/1.1", "upgrade, Close", true},
		{"HTTP/1.0", "", true},
		{"HTTP/1.0", "keep-alive", false},
		{"HTTP/1.0", "close", true},
		{"HTTP/1.0", "keep-alive, close", true},
	}
	for _, c := range cases {
		raw := c.version + " 200 OK\r\nContent-Length: 0\r\n"
		if c.connection != "" {
			raw += "Connection: " + c.connection + "\r\n"
		}
		r := NewResponse("GET", "/", nil)
		_, err := r.Feed([]byte(raw + "\r\n"))
		require.NoError(t, err)
		require.True(t, r.Complete())
		assert.Equal(t, c.want, r.WillClose(), "%s %q", c.version, c.connection)
	}
}

func TestStatusLineAndHeaders(t *testing.T) {
	rec := &recorder{}
	r := NewResponse("POST", "/", rec.handler())
	raw := "\r\nHTTP/1.1 404 Not Found\r\nX-Long: a\r\n  b\r\nX-Dup: 1\r\nx-dup: 2\r\nContent-Length: 2\r\n\r\nno"
	_, err := r.Feed([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, 404, r.Status())
	assert.Equal(t, "Not Found", r.Reason())
	major, minor := r.Version()
	assert.Equal(t, 1, major)
	assert.Equal(t, 1, minor)
	assert.Equal(t, "a b", r.GetHeader("x-long"))
	assert.Equal(t, "2", r.GetHeader("X-DUP"))
	assert.Equal(t, "no", string(rec.body))
}

func TestInterimResponseSkipped(t *testing.T) {
	rec := &recorder{}
	r := NewResponse("POST", "/", rec.handler())
	_, err := r.Feed([]byte("HTTP/1.1 100 Continue\r\nX-A: 1\r\n\r\nHTTP/1.1 201 Created\r\nContent-Length: 1\r\n\r\nx"))
	require.NoError(t, err)
	assert.Equal(t, 201, r.Status())
	assert.Empty(t, r.GetHeader("X-A"))
	assert.Equal(t, 1, rec.begins)
	assert.Equal(t, "x", string(rec.body))
}

func TestNoBodyResponses(t *testing.T) {
	for _, c := range []struct {
		method, status string
	}{
		{"HEAD", "200 OK"},
		{"POST", "204 No Content"},
		{"GET", "304 Not Modified"},
	} {
		r := NewResponse(c.method, "/", nil)
		raw := "HTTP/1.1 " + c.status + "\r\nContent-Length: 10\r\n\r\n"
		n, err := r.Feed([]byte(raw + "HTTP/1.1"))
		require.NoError(t, err)
		assert.Equal(t, len(raw), n)
		assert.True(t, r.Complete(), c.status)
	}
}

func TestProtocolViolations(t *testing.T) {
	cases := []struct {
		raw  string
		code ProtocolCode
	}{
		{"HTTP/2.0 200 OK\r\n", InvalidStatusLine},
		{"HTP/1.1 200 OK\r\n", InvalidStatusLine},
		{"HTTP/1.1 20 OK\r\n", InvalidStatusLine},
		{"HTTP/1.1 abc OK\r\n", InvalidStatusLine},
		{"HTTP/1.1 200 OK\r\nContent-Length: x\r\n\r\n", InvalidContentLength},
		{"HTTP/1.1 200 OK\r\nContent-Length: -1\r\n\r\n", InvalidContentLength},
		{"HTTP/1.1 200 OK\r\nContent-Length: +3\r\n\r\nabc", InvalidContentLength},
		{"HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n+3\r\nabc\r\n0\r\n\r\n", InvalidChunkLength},
		{"HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nabc\r\n-0\r\n\r\n", InvalidChunkLength},
		{"HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\nzz\r\n", InvalidChunkLength},
		{"HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n2\r\nabX\r\n", InvalidChunkLength},
		{"HTTP/1.1 200 OK\r\nX: " + strings.Repeat("a", MaxLineSize) + "\r\n", LineTooLong},
	}
	for _, c := range cases {
		rec := &recorder{}
		r := NewResponse("POST", "/", rec.handler())
		_, err := r.Feed([]byte(c.raw))
		require.Error(t, err, c.raw)
		assert.True(t, IsProtocol(err))
		assert.Equal(t, c.code, ProtocolCodeOf(err), c.raw)
		assert.True(t, r.Complete())
		assert.Equal(t, 1, rec.completes)
		assert.Equal(t, err, rec.err)
	}
}

func TestLineTooLongAcrossFeeds(t *testing.T) {
	r := NewResponse("POST", "/", nil)
	chunk := []byte(strings.Repeat("a", 1024))
	var err error
	for i := 0; i < 65 && err == nil; i++ {
		_, err = r.Feed(chunk)
	}
	assert.Equal(t, LineTooLong, ProtocolCodeOf(err))
}

func TestConnClosed(t *testing.T) {
	// read until close completes normally
	rec := &recorder{}
	r := NewResponse("POST", "/", rec.handler())
	_, err := r.Feed([]byte("HTTP/1.0 200 OK\r\n\r\npartial body"))
	require.NoError(t, err)
	assert.False(t, r.Complete())
	assert.NoError(t, r.ConnClosed())
	assert.Equal(t, "partial body", string(rec.body))
	assert.Equal(t, 1, rec.completes)
	assert.NoError(t, rec.err)

	// fixed length cut short
	rec = &recorder{}
	r = NewResponse("POST", "/", rec.handler())
	_, _ = r.Feed([]byte("HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\nabc"))
	err = r.ConnClosed()
	assert.Equal(t, PrematureClose, ProtocolCodeOf(err))
	assert.Equal(t, 1, rec.completes)

	// chunked cut short
	r = NewResponse("POST", "/", nil)
	_, _ = r.Feed([]byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nab"))
	assert.Equal(t, PrematureClose, ProtocolCodeOf(r.ConnClosed()))

	// nothing received
	rec = &recorder{}
	r = NewResponse("POST", "/", rec.handler())
	assert.ErrorIs(t, r.ConnClosed(), ErrConnClosed)
	assert.ErrorIs(t, rec.err, ErrConnClosed)
	assert.Equal(t, 0, rec.begins)
}
