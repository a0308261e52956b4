package smtp

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/OliverSchlueter/goutils/sloki"
)

// maxReplyLines bounds how many lines one reply may span.
const maxReplyLines = 128

// Transport is the byte stream the Client talks to the server through.
type Transport interface {
	Send(b []byte) error
	Receive() ([]byte, error)
	Close()
}

// Dialer opens a Transport to host:port.
type Dialer func(ctx context.Context, host string, port int, timeout time.Duration) (Transport, error)

// Conn is a TCP Transport with a fixed inactivity timeout.
type Conn struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
}

// Dial connects to host:port, giving up after timeout.
func Dial(ctx context.Context, host string, port int, timeout time.Duration) (*Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Op: "connect to " + addr, Timeout: timeout, Err: err}
		}
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	return &Conn{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: timeout,
	}, nil
}

// DialTransport is the default Dialer.
func DialTransport(ctx context.Context, host string, port int, timeout time.Duration) (Transport, error) {
	c, err := Dial(ctx, host, port, timeout)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Send writes b verbatim. Commands must carry their own CRLF.
func (c *Conn) Send(b []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return &WriteError{Err: err}
	}

	if _, err := c.conn.Write(b); err != nil {
		return &WriteError{Err: err}
	}

	return nil
}

// Receive reads one reply. Continuation lines ("250-...") are folded into the
// same reply up to the final line.
func (c *Conn) Receive() ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, &ReadError{Err: err}
	}

	var reply []byte
	for i := 0; i < maxReplyLines; i++ {
		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			if isTimeout(err) {
				return nil, &TimeoutError{Op: "waiting for reply", Timeout: c.timeout, Err: err}
			}
			return nil, &ReadError{Err: err}
		}

		reply = append(reply, line...)

		if len(line) < 4 || line[3] != '-' {
			return reply, nil
		}
	}

	// The rest of the reply is still buffered, the stream cannot be resynchronised.
	return nil, &ReadError{Err: ErrReplyTooLong}
}

// Close tears the connection down. Errors are only logged.
func (c *Conn) Close() {
	if err := c.conn.Close(); err != nil {
		slog.Debug("Failed to close connection", sloki.WrapError(err))
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
