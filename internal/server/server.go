package server

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"fleethub/internal/audit"
	"fleethub/internal/config"
	"fleethub/internal/protocol"
	"fleethub/internal/repository"

	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Server owns the well-known listening socket, the shared port broker, and
// the single mutation lock. One goroutine runs the accept loop; each
// decoded job either gets its own goroutine (default) or runs inline
// before the next accept (single-threaded mode).
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	db        *gorm.DB
	vehicles  *repository.VehicleRepo
	engineers *repository.EngineerRepo
	laptops   *repository.LaptopRepo
	contacts  *repository.ContactRepo

	broker       *PortBroker
	singleThread bool
	followUpWait time.Duration

	// mutationMu serializes every write into the backing store across
	// concurrently dispatched jobs. It is held only for the store call
	// itself, never across a network wait.
	mutationMu sync.Mutex

	recorder audit.Recorder

	listener net.Listener
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// the idle accept loop times out once a second; pace the log line so
	// an idle server does not write sixty warnings a minute
	idleLogLimiter *rate.Limiter
}

func NewServer(cfg *config.Config, db *gorm.DB, logger *slog.Logger) *Server {
	return &Server{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		vehicles:       repository.NewVehicleRepo(db),
		engineers:      repository.NewEngineerRepo(db),
		laptops:        repository.NewLaptopRepo(db),
		contacts:       repository.NewContactRepo(db),
		broker:         NewPortBroker(cfg.ServerPort),
		singleThread:   cfg.SingleThreaded,
		followUpWait:   cfg.FollowUpTimeout,
		recorder:       audit.Nop{},
		quit:           make(chan struct{}),
		idleLogLimiter: rate.NewLimiter(rate.Every(time.Minute), 1),
	}
}

// SetRecorder installs a job audit recorder. Must be called before Start.
func (s *Server) SetRecorder(r audit.Recorder) {
	if r != nil {
		s.recorder = r
	}
}

// Broker exposes the port broker for the admin endpoint.
func (s *Server) Broker() *PortBroker {
	return s.broker
}

// Start binds the well-known port and runs the accept loop until Stop.
// Failing to bind is the one fatal startup condition.
func (s *Server) Start() error {
	l, err := protocol.Listen(s.cfg.ServerPort)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = l
	s.logger.Info("server_started",
		"port", s.cfg.ServerPort,
		"single_threaded", s.singleThread,
	)

	for {
		select {
		case <-s.quit:
			return nil
		default:
		}

		data, err := protocol.Receive(l)
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
			}
			s.logger.Error("accept_failed", "error", err.Error())
			continue
		}
		if data == nil {
			if s.idleLogLimiter.Allow() {
				s.logger.Debug("accept_timed_out")
			}
			continue
		}

		job, err := protocol.Decode(data)
		if err != nil {
			// unparseable bytes are discarded; the sender gets nothing
			s.logger.Warn("job_undecodable", "error", err.Error())
			continue
		}

		if s.singleThread {
			s.handleJob(job)
			continue
		}
		s.wg.Add(1)
		go func(job protocol.Message) {
			defer s.wg.Done()
			s.handleJob(job)
		}(job)
	}
}

// Stop closes the accept loop. Shutdown is cooperative: in-flight
// conversations are not cancelled, only the loop that spawns new ones
// stops; their await loops observe the quit channel on their next poll.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.listener != nil {
			s.listener.Close()
		}
		s.logger.Info("server_stopped")
	})
}

// Wait blocks until every dispatched job goroutine has finished. Test
// helper; Stop does not wait, matching the cooperative shutdown contract.
func (s *Server) Wait() {
	s.wg.Wait()
}

// mutate runs one backing-store write under the process-wide mutation
// lock. In single-threaded mode there is nothing to race and the call is
// direct.
func (s *Server) mutate(fn func() error) error {
	if s.singleThread {
		return fn()
	}
	s.mutationMu.Lock()
	defer s.mutationMu.Unlock()
	return fn()
}

// send delivers a response to the client's listening port. An unreachable
// client (crashed, never listened) is logged and swallowed. It must not
// take the handler goroutine down.
func (s *Server) send(port int, msg protocol.Message) {
	if err := protocol.Send(protocol.Host, port, msg); err != nil {
		s.logger.Error("client_unreachable", "port", port, "error", err.Error())
	}
}

// sendError delivers a status:"error" response with the given text.
func (s *Server) sendError(port int, text string) {
	s.logger.Error(text)
	s.send(port, protocol.Message{
		"status": protocol.StatusError,
		"text":   text,
	})
}
