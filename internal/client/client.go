// Package client implements the calling side of the inventory protocol:
// bind a local callback port, post a job naming it, and collect the
// responses the server connects back with. The CLI and the end-to-end
// tests both talk through it.
package client

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"

	"fleethub/internal/protocol"
)

const (
	portMin = 1024
	portMax = 49151
)

var ErrAwaitTimeout = errors.New("timed out waiting for a server response")

// Client holds one callback listener. A client is good for any number of
// jobs; the same port is reported on each.
type Client struct {
	serverPort int
	port       int
	listener   net.Listener
}

// New binds a random callback port. The server tracks leased ports but a
// client cannot see that set, so it draws blind and lets the bind fail
// tell it a port is taken.
func New(serverPort int) (*Client, error) {
	var lastErr error
	for attempt := 0; attempt < 32; attempt++ {
		port := portMin + rand.Intn(portMax-portMin)
		l, err := protocol.Listen(port)
		if err != nil {
			lastErr = err
			continue
		}
		return &Client{serverPort: serverPort, port: port, listener: l}, nil
	}
	return nil, fmt.Errorf("could not bind a callback port: %w", lastErr)
}

// Port reports the callback port the server will answer on.
func (c *Client) Port() int {
	return c.port
}

// SendJob posts a job to the server's well-known port with the callback
// port filled in.
func (c *Client) SendJob(job protocol.Message) error {
	job = job.Merge(protocol.Message{"port": c.port})
	return protocol.Send(protocol.Host, c.serverPort, job)
}

// Respond sends a follow-up message to an ephemeral port the server named
// in an earlier response.
func (c *Client) Respond(port int, msg protocol.Message) error {
	return protocol.Send(protocol.Host, port, msg)
}

// Await blocks until one decodable message arrives on the callback port
// or the timeout passes. Undecodable bytes are discarded.
func (c *Client) Await(timeout time.Duration) (protocol.Message, error) {
	deadline := time.Now().Add(timeout)
	for {
		if time.Now().After(deadline) {
			return nil, ErrAwaitTimeout
		}
		raw, err := protocol.Receive(c.listener)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			continue
		}
		msg, err := protocol.Decode(raw)
		if err != nil {
			continue
		}
		return msg, nil
	}
}

func (c *Client) Close() error {
	return c.listener.Close()
}
