package gate

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer answers every line with the same line and closes on "bye".
func echoServer(t *testing.T) (string, int) {
	ls, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ls.Close() })
	go func() {
		for {
			c, err := ls.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				r := bufio.NewReader(c)
				for {
					line, err := r.ReadString('\n')
					if err != nil {
						return
					}
					_, _ = c.Write([]byte(line))
					if line == "bye\n" {
						return
					}
				}
			}(c)
		}
	}()
	addr := ls.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func drainUntil(t *testing.T, in *Inbox, want string) (string, bool) {
	var got []byte
	var closed bool
	require.Eventually(t, func() bool {
		buf, c, _ := in.Drain()
		if buf != nil {
			got = append(got, buf.ToBytes()...)
			buf.Free()
		}
		closed = closed || c
		return string(got) == want && (want != "bye\n" || closed)
	}, 3*time.Second, 10*time.Millisecond)
	return string(got), closed
}

func testDialer(t *testing.T, d Dialer) {
	host, port := echoServer(t)
	in := NewInbox()
	s, err := d.Dial(host, port, in)
	require.NoError(t, err)
	_, err = s.Write([]byte("hello\n"))
	require.NoError(t, err)
	got, _ := drainUntil(t, in, "hello\n")
	assert.Equal(t, "hello\n", got)

	_, err = s.Write([]byte("bye\n"))
	require.NoError(t, err)
	_, closed := drainUntil(t, in, "bye\n")
	assert.True(t, closed)
	_ = s.Close()
}

func TestNetDialer(t *testing.T) {
	d := NewNetDialer(WithDialTimeout(time.Second))
	defer d.Close()
	testDialer(t, d)
}

func TestEngine(t *testing.T) {
	e, err := NewEngine(WithName("gate-test"))
	require.NoError(t, err)
	defer e.Close()
	testDialer(t, e)
}

func TestDialRefused(t *testing.T) {
	ls, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ls.Addr().(*net.TCPAddr).Port
	_ = ls.Close()
	d := NewNetDialer()
	defer d.Close()
	_, err = d.Dial("127.0.0.1", port, NewInbox())
	assert.Error(t, err)
}

func TestDialAfterClose(t *testing.T) {
	d := NewNetDialer()
	_ = d.Close()
	_, err := d.Dial("127.0.0.1", 1, NewInbox())
	assert.ErrorIs(t, err, ErrDialerClosed)
}

func TestInbox(t *testing.T) {
	in := NewInbox()
	buf, closed, err := in.Drain()
	assert.Nil(t, buf)
	assert.False(t, closed)
	assert.NoError(t, err)

	in.Push([]byte("ab"))
	in.Push([]byte("cd"))
	in.CloseWithError(nil)
	in.Push([]byte("late"))
	buf, closed, _ = in.Drain()
	require.NotNil(t, buf)
	assert.Equal(t, "abcd", string(buf.ToBytes()))
	assert.True(t, closed)
	buf.Free()
}
