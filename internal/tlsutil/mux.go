package tlsutil

import (
	"bufio"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/prasenjit/go-mocksim/internal/logging"
)

// recordTypeHandshake is the first byte of every TLS ClientHello
const recordTypeHandshake = 0x16

// sniffTimeout bounds how long a client may stay silent before its first byte
var sniffTimeout = 5 * time.Second

// SniffListener serves TLS and, optionally, plain HTTP on one port. It reads
// the first byte of each connection and wraps handshakes in tls.Server, so
// mock clients can hit the same address with http:// or https://.
type SniffListener struct {
	inner      net.Listener
	tlsConfig  *tls.Config
	allowPlain bool

	conns     chan net.Conn
	errs      chan error
	closed    chan struct{}
	closeOnce sync.Once
}

// NewSniffListener starts accepting from inner. Plain connections are closed
// unless allowPlain is set.
func NewSniffListener(inner net.Listener, tlsConfig *tls.Config, allowPlain bool) *SniffListener {
	l := &SniffListener{
		inner:      inner,
		tlsConfig:  tlsConfig,
		allowPlain: allowPlain,
		conns:      make(chan net.Conn, 128),
		errs:       make(chan error, 1),
		closed:     make(chan struct{}),
	}
	go l.acceptLoop()
	return l
}

func (l *SniffListener) acceptLoop() {
	for {
		conn, err := l.inner.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			select {
			case l.errs <- err:
			case <-l.closed:
			}
			return
		}
		go l.route(conn)
	}
}

func (l *SniffListener) route(conn net.Conn) {
	sc := &sniffedConn{Conn: conn, r: bufio.NewReader(conn)}

	_ = conn.SetReadDeadline(time.Now().Add(sniffTimeout))
	first, err := sc.r.Peek(1)
	_ = conn.SetReadDeadline(time.Time{})
	if err != nil {
		conn.Close()
		return
	}

	var out net.Conn = sc
	if first[0] == recordTypeHandshake {
		out = tls.Server(sc, l.tlsConfig)
	} else if !l.allowPlain {
		logging.L.Debugw("rejecting plain connection on TLS port", "remote", conn.RemoteAddr().String())
		conn.Close()
		return
	}

	select {
	case l.conns <- out:
	case <-l.closed:
		out.Close()
	}
}

// Accept returns the next sniffed connection
func (l *SniffListener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case err := <-l.errs:
		return nil, err
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

// Close stops accepting and closes the underlying listener
func (l *SniffListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.inner.Close()
	})
	return err
}

// Addr returns the underlying listener's address
func (l *SniffListener) Addr() net.Addr {
	return l.inner.Addr()
}

// sniffedConn replays the bytes buffered while peeking
type sniffedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *sniffedConn) Read(b []byte) (int, error) {
	return c.r.Read(b)
}
