package server

import (
	"errors"
	"log/slog"
	"net"
	"time"

	"fleethub/internal/protocol"

	"github.com/google/uuid"
)

// convState tags where a multi-round-trip conversation is in its life.
type convState int

const (
	stateValidating convState = iota
	stateMutating
	stateAwaitingFollowUp
	stateConfirmNoOwner
	stateConfirmReplace
	stateCompleted
	stateAborted
)

func (s convState) String() string {
	switch s {
	case stateValidating:
		return "validating"
	case stateMutating:
		return "mutating"
	case stateAwaitingFollowUp:
		return "awaiting_follow_up"
	case stateConfirmNoOwner:
		return "confirm_no_owner"
	case stateConfirmReplace:
		return "confirm_replace"
	case stateCompleted:
		return "completed"
	case stateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

var (
	errServerStopping = errors.New("server is shutting down")
	errFollowUpWait   = errors.New("timed out waiting for follow-up message")
)

// conversation is the explicit context for one multi-round-trip exchange:
// the callback port the client listens on, the leased ephemeral port, and
// the listener bound to it. The wire contract itself stays keyed on the
// port; the id only correlates log lines.
type conversation struct {
	id           string
	callbackPort int
	state        convState

	port     int
	listener net.Listener
	released bool

	broker  *PortBroker
	logger  *slog.Logger
	quit    <-chan struct{}
	maxWait time.Duration // 0 = wait for the life of the process
}

func (s *Server) newConversation(callbackPort int) *conversation {
	id := uuid.NewString()
	return &conversation{
		id:           id,
		callbackPort: callbackPort,
		state:        stateValidating,
		broker:       s.broker,
		logger:       s.logger.With("conversation_id", id),
		quit:         s.quit,
		maxWait:      s.followUpWait,
	}
}

// open leases a fresh port and binds a listener to it for the follow-up
// round trips. Leasing and binding happen back to back: an unleased port
// is only known free at the instant it is drawn.
func (c *conversation) open() error {
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		port := c.broker.Lease()
		l, err := protocol.Listen(port)
		if err != nil {
			// the OS is using the port even though we never leased it
			c.broker.Release(port)
			lastErr = err
			continue
		}
		c.port = port
		c.listener = l
		c.state = stateAwaitingFollowUp
		c.logger.Info("follow_up_port_opened", "port", port)
		return nil
	}
	return lastErr
}

// await blocks for exactly one decodable message on the ephemeral port.
// Accept timeouts are retried so the shutdown flag stays observable;
// undecodable bytes are discarded and the wait continues. With no maxWait
// configured a silent client parks this goroutine until shutdown, a
// documented hazard of the protocol.
func (c *conversation) await() (protocol.Message, error) {
	var deadline time.Time
	if c.maxWait > 0 {
		deadline = time.Now().Add(c.maxWait)
	}
	for {
		select {
		case <-c.quit:
			return nil, errServerStopping
		default:
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, errFollowUpWait
		}

		data, err := protocol.Receive(c.listener)
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			c.logger.Warn("follow_up_undecodable", "error", err.Error())
			continue
		}
		return msg, nil
	}
}

// close releases the ephemeral port and its listener. Safe to call on
// every exit path; only the first call does anything.
func (c *conversation) close() {
	if c.released {
		return
	}
	c.released = true
	if c.listener != nil {
		c.listener.Close()
	}
	if c.port != 0 {
		c.broker.Release(c.port)
		c.logger.Info("follow_up_port_released", "port", c.port, "state", c.state.String())
	}
}
