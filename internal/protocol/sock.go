package protocol

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// Host is the only address the protocol speaks on. Every exchange in the
// wire contract is loopback.
const Host = "localhost"

const (
	// AcceptTimeout bounds a single accept attempt so callers can poll a
	// shutdown flag between attempts.
	AcceptTimeout = 1 * time.Second
	// readTimeout bounds a single read inside an accepted connection. A
	// timeout is retried, not fatal: the peer closing its side is the only
	// message boundary.
	readTimeout = 1 * time.Second
)

// Send connects to host:port, writes the encoded message, and closes the
// connection. The close is the message boundary; there is no length
// prefix and no reply on the same connection.
func Send(host string, port int, msg Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	conn, err := net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("dial %s:%d: %w", host, port, err)
	}
	defer conn.Close()
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("send to %s:%d: %w", host, port, err)
	}
	return nil
}

// Receive accepts at most one pending connection on the listener and reads
// until the peer closes. It returns (nil, nil) when no connection arrived
// within AcceptTimeout, meaning "try again", and only closes the accepted
// connection, never the listener.
func Receive(l net.Listener) ([]byte, error) {
	tcpListener, ok := l.(*net.TCPListener)
	if ok {
		if err := tcpListener.SetDeadline(time.Now().Add(AcceptTimeout)); err != nil {
			return nil, fmt.Errorf("set accept deadline: %w", err)
		}
	}

	conn, err := l.Accept()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, nil
		}
		return nil, err
	}
	defer conn.Close()

	var data []byte
	buf := make([]byte, 4096)
	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := conn.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				// mid-connection stall: keep retrying until data or close
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			return data, err
		}
	}
	return data, nil
}

// Listen binds a listening socket on the loopback port.
func Listen(port int) (net.Listener, error) {
	l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", Host, port))
	if err != nil {
		return nil, fmt.Errorf("listen on %s:%d: %w", Host, port, err)
	}
	return l, nil
}
