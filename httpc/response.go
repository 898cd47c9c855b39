package httpc

import (
	"bytes"
	"fmt"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/liangmanlin/gopost/bpool"
)

const (
	transferEncodingHeader = "Transfer-Encoding"
	contentLengthHeader    = "Content-Length"
	connectionHeader       = "Connection"

	// MaxLineSize bounds a status, header, chunk size or trailer line.
	MaxLineSize = 64 * 1024

	// MaxUint .
	MaxUint = ^uint(0)
	// MaxInt .
	MaxInt = int64(int(MaxUint >> 1))
)

type parseState int8

const (
	stateStatusLine parseState = iota + 1
	stateHeaders
	stateBody
	stateChunkLen
	stateChunkEnd
	stateTrailers
	stateComplete
)

var parseStateNames = map[parseState]string{
	stateStatusLine: "STATUS_LINE",
	stateHeaders:    "HEADERS",
	stateBody:       "BODY",
	stateChunkLen:   "CHUNK_LEN",
	stateChunkEnd:   "CHUNK_END",
	stateTrailers:   "TRAILERS",
	stateComplete:   "COMPLETE",
}

func (s parseState) String() string {
	return parseStateNames[s]
}

type framing int8

const (
	framingNone framing = iota
	framingFixed
	framingChunked
	framingUntilClose
)

// Response parses the bytes of exactly one http response. It keeps a partial
// line between Feed calls but never takes bytes past its own end.
type Response struct {
	method  string
	target  string
	tag     string
	handler Handler

	state parseState
	cache *bpool.Buff

	proto     string
	major     int
	minor     int
	status    int
	reason    string
	header    http.Header
	headerKey string
	interim   bool
	framing   framing
	length    int64
	bytesRead int64
	chunkLeft int64
	willClose bool
	touched   bool
	err       error
}

// NewResponse makes a parser for the answer to a request with the given method.
func NewResponse(method, target string, handler Handler) *Response {
	if handler == nil {
		handler = nopHandler{}
	}
	return &Response{
		method:  strings.ToUpper(method),
		target:  target,
		handler: handler,
		state:   stateStatusLine,
		header:  make(http.Header),
	}
}

func (r *Response) Method() string      { return r.method }
func (r *Response) Target() string      { return r.target }
func (r *Response) Tag() string         { return r.tag }
func (r *Response) Status() int         { return r.status }
func (r *Response) Reason() string      { return r.reason }
func (r *Response) Proto() string       { return r.proto }
func (r *Response) Version() (int, int) { return r.major, r.minor }
func (r *Response) Header() http.Header { return r.header }
func (r *Response) BytesRead() int64    { return r.bytesRead }
func (r *Response) WillClose() bool     { return r.willClose }
func (r *Response) Complete() bool      { return r.state == stateComplete }
func (r *Response) Err() error          { return r.err }

// GetHeader looks name up case-insensitively.
func (r *Response) GetHeader(name string) string {
	return r.header.Get(name)
}

// Feed consumes bytes of this response and returns how many it took. Once the
// response is complete it takes nothing. A protocol violation completes the
// response with that error and is also returned.
func (r *Response) Feed(data []byte) (int, error) {
	count := 0
	for count < len(data) && r.state != stateComplete {
		r.touched = true
		if r.state == stateBody {
			count += r.readBody(data[count:])
			continue
		}
		n, line, ok, err := r.readLine(data[count:])
		count += n
		if err == nil && ok {
			err = r.onLine(line)
		}
		if err != nil {
			r.finish(err)
			return count, err
		}
	}
	return count, nil
}

// ConnClosed tells the response its peer closed the connection.
// Read until close bodies complete normally, other partial responses fail.
func (r *Response) ConnClosed() error {
	switch {
	case r.state == stateComplete:
		return r.err
	case r.state == stateBody && r.framing == framingUntilClose:
		r.finish(nil)
		return nil
	case !r.touched:
		r.finish(ErrConnClosed)
		return ErrConnClosed
	}
	err := protocolError(PrematureClose, "connection closed in %s after %d body bytes", r.state, r.bytesRead)
	r.finish(err)
	return err
}

// Abort completes an unfinished response with err.
func (r *Response) Abort(err error) {
	if r.state != stateComplete {
		r.finish(err)
	}
}

// readLine takes bytes up to and including the next LF. ok is false when the
// line is still partial; those bytes are kept in the cache.
func (r *Response) readLine(data []byte) (int, string, bool, error) {
	cached := 0
	if r.cache != nil {
		cached = r.cache.Size()
	}
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		if cached+len(data) > MaxLineSize {
			return len(data), "", false, protocolError(LineTooLong, "line exceeds %d bytes", MaxLineSize)
		}
		if r.cache == nil {
			r.cache = bpool.NewBuf(data)
		} else {
			r.cache = r.cache.Append(data...)
		}
		return len(data), "", false, nil
	}
	if cached+i > MaxLineSize {
		return i + 1, "", false, protocolError(LineTooLong, "line exceeds %d bytes", MaxLineSize)
	}
	var line string
	if cached > 0 {
		r.cache = r.cache.Append(data[:i]...)
		line = string(r.cache.ToBytes())
		r.cache.Reset()
	} else {
		line = string(data[:i])
	}
	return i + 1, strings.TrimSuffix(line, "\r"), true, nil
}

func (r *Response) onLine(line string) error {
	switch r.state {
	case stateStatusLine:
		if line == "" {
			return nil
		}
		return r.onStatusLine(line)
	case stateHeaders:
		if line == "" {
			return r.onHeadersEnd()
		}
		r.onHeaderLine(line)
	case stateChunkLen:
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		size, err := parseAndValidateChunkSize(strings.TrimSpace(line))
		if err != nil {
			return protocolError(InvalidChunkLength, "%v", err)
		}
		if size == 0 {
			r.state = stateTrailers
			return nil
		}
		r.chunkLeft = int64(size)
		r.state = stateBody
	case stateChunkEnd:
		if line != "" {
			return protocolError(InvalidChunkLength, "missing CRLF after chunk data")
		}
		r.state = stateChunkLen
	case stateTrailers:
		if line == "" {
			r.finish(nil)
			return nil
		}
		r.onHeaderLine(line)
	}
	return nil
}

func (r *Response) onStatusLine(line string) error {
	proto, rest, _ := strings.Cut(line, " ")
	major, minor, ok := http.ParseHTTPVersion(proto)
	if !ok || major != 1 {
		return protocolError(InvalidStatusLine, "%q", line)
	}
	rest = strings.TrimLeft(rest, " ")
	code, reason, _ := strings.Cut(rest, " ")
	if len(code) != 3 {
		return protocolError(InvalidStatusLine, "%q", line)
	}
	status, err := strconv.Atoi(code)
	if err != nil || status < 100 {
		return protocolError(InvalidStatusLine, "%q", line)
	}
	r.proto, r.major, r.minor = proto, major, minor
	r.status, r.reason = status, reason
	r.interim = status < 200
	r.state = stateHeaders
	return nil
}

func (r *Response) onHeaderLine(line string) {
	if line[0] == ' ' || line[0] == '\t' {
		// folded continuation of the previous value
		if r.headerKey == "" {
			return
		}
		values := r.header[r.headerKey]
		if n := len(values); n > 0 {
			values[n-1] += " " + strings.TrimSpace(line)
		}
		return
	}
	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return
	}
	key := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(line[:i]))
	r.header[key] = []string{strings.TrimSpace(line[i+1:])}
	r.headerKey = key
}

func (r *Response) onHeadersEnd() error {
	if r.interim {
		// 1xx: wait for the final response
		r.header = make(http.Header)
		r.headerKey = ""
		r.interim = false
		r.state = stateStatusLine
		return nil
	}
	r.willClose = willClose(r.major, r.minor, r.header)
	r.headerKey = ""
	switch {
	case r.method == http.MethodHead || r.status == http.StatusNoContent || r.status == http.StatusNotModified:
		r.framing = framingNone
	case headerHasToken(r.header, transferEncodingHeader, "chunked"):
		r.framing = framingChunked
	case r.header.Get(contentLengthHeader) != "":
		cl := r.header.Get(contentLengthHeader)
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 || !unsigned(cl) {
			return protocolError(InvalidContentLength, "%q", cl)
		}
		r.framing = framingFixed
		r.length = n
	default:
		r.framing = framingUntilClose
	}
	r.handler.OnBegin(r)
	switch {
	case r.framing == framingNone, r.framing == framingFixed && r.length == 0:
		r.finish(nil)
	case r.framing == framingChunked:
		r.state = stateChunkLen
	default:
		r.state = stateBody
	}
	return nil
}

func (r *Response) readBody(data []byte) int {
	n := int64(len(data))
	switch r.framing {
	case framingFixed:
		if left := r.length - r.bytesRead; n > left {
			n = left
		}
	case framingChunked:
		if n > r.chunkLeft {
			n = r.chunkLeft
		}
	}
	if n > 0 {
		r.bytesRead += n
		r.handler.OnData(r, data[:n])
	}
	switch r.framing {
	case framingFixed:
		if r.bytesRead == r.length {
			r.finish(nil)
		}
	case framingChunked:
		r.chunkLeft -= n
		if r.chunkLeft == 0 {
			r.state = stateChunkEnd
		}
	}
	return int(n)
}

func (r *Response) finish(err error) {
	r.state = stateComplete
	r.err = err
	if r.cache != nil {
		r.cache.Free()
		r.cache = nil
	}
	r.handler.OnComplete(r, err)
}

// willClose: an explicit close token, or http/1.0 without keep-alive.
func willClose(major, minor int, header http.Header) bool {
	if headerHasToken(header, connectionHeader, "close") {
		return true
	}
	if major == 1 && minor == 0 {
		return !headerHasToken(header, connectionHeader, "keep-alive")
	}
	return false
}

func headerHasToken(header http.Header, key, token string) bool {
	for _, v := range header.Values(key) {
		for _, t := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(t), token) {
				return true
			}
		}
	}
	return false
}

// unsigned rejects the leading sign ParseInt would accept.
func unsigned(s string) bool {
	return s != "" && s[0] != '+' && s[0] != '-'
}

func parseAndValidateChunkSize(originalStr string) (int, error) {
	if !unsigned(originalStr) {
		return -1, fmt.Errorf("chunk size %q has a sign", originalStr)
	}
	chunkSize, err := strconv.ParseInt(originalStr, 16, 63)
	if err != nil {
		return -1, fmt.Errorf("chunk size parse error %v: %w", originalStr, err)
	}
	if chunkSize < 0 {
		return -1, fmt.Errorf("chunk size negative")
	}
	if chunkSize > MaxInt {
		return -1, fmt.Errorf("chunk size greater than max int %d", chunkSize)
	}
	return int(chunkSize), nil
}
