package server

import (
	"context"
	"fmt"
	"time"

	"fleethub/internal/audit"
	"fleethub/internal/protocol"
	"fleethub/internal/repository"
)

// handleJob validates a decoded job's routing fields in fixed order
// (callback port, action, data_type) and routes it. A job missing its
// callback port is dropped silently (there is nowhere to report the
// error); everything after that reports back to the callback port. The
// reset action is the one exception: it needs no port and no data_type.
func (s *Server) handleJob(job protocol.Message) {
	ctx := context.Background()

	callbackPort, portErr := job.Int("port")
	if portErr == nil {
		// the client is listening there; never lease it out from under them
		s.broker.Reserve(callbackPort)
	}

	action, err := job.String("action")
	if err != nil {
		text := `Client message did not include entry "action" to let the server know an action to take (add/delete/read/update/reset)`
		if portErr == nil {
			s.sendError(callbackPort, text)
		} else {
			s.logger.Error("job_dropped", "reason", text)
		}
		return
	}

	if action == "reset" {
		status := s.handleReset(ctx, callbackPort, portErr == nil)
		s.record(ctx, action, "", callbackPort, status)
		return
	}

	if portErr != nil {
		s.logger.Error("job_dropped",
			"reason", `client message did not include entry "port" to report back results`,
			"action", action,
		)
		return
	}

	switch action {
	case "add", "delete", "read", "update":
	default:
		s.sendError(callbackPort, fmt.Sprintf(
			`Client message entry "action": %s must be one of ["add", "delete", "read", "update", "reset"]`, action))
		return
	}

	dataType, err := job.String("data_type")
	if err != nil {
		s.sendError(callbackPort,
			`Client message did not include entry "data_type" to let the server know which table to work with.`)
		return
	}

	s.logger.Info("job_received", "action", action, "data_type", dataType, "port", callbackPort)

	var status string
	switch dataType {
	case "vehicle":
		status = s.dispatchVehicle(ctx, action, job, callbackPort)
	case "engineer":
		status = s.dispatchEngineer(ctx, action, job, callbackPort)
	case "laptop":
		status = s.dispatchLaptop(ctx, action, job, callbackPort)
	case "contact_details":
		status = s.dispatchContactDetails(ctx, action, job, callbackPort)
	case "vehicle_engineers":
		if action != "read" {
			text := fmt.Sprintf(
				`Data type "vehicle_engineers" only supports the "read" action, got %q`, action)
			s.sendError(callbackPort, text)
			status = protocol.StatusError
		} else {
			status = s.handleVehicleEngineersRead(ctx, job, callbackPort)
		}
	default:
		s.sendError(callbackPort,
			`Client message entry "data_type" is not one of ["vehicle", "engineer", "laptop", "contact_details", "vehicle_engineers"]`)
		status = protocol.StatusError
	}

	s.record(ctx, action, dataType, callbackPort, status)
}

func (s *Server) dispatchVehicle(ctx context.Context, action string, job protocol.Message, callbackPort int) string {
	switch action {
	case "add":
		return s.handleVehicleAdd(ctx, job, callbackPort)
	case "delete":
		return s.handleVehicleDelete(ctx, job, callbackPort)
	case "read":
		return s.handleVehicleRead(ctx, job, callbackPort)
	default:
		return s.handleVehicleUpdate(ctx, job, callbackPort)
	}
}

func (s *Server) dispatchEngineer(ctx context.Context, action string, job protocol.Message, callbackPort int) string {
	switch action {
	case "add":
		return s.handleEngineerAdd(ctx, job, callbackPort)
	case "delete":
		return s.handleEngineerDelete(ctx, job, callbackPort)
	case "read":
		return s.handleEngineerRead(ctx, job, callbackPort)
	default:
		return s.handleEngineerUpdate(ctx, job, callbackPort)
	}
}

func (s *Server) dispatchLaptop(ctx context.Context, action string, job protocol.Message, callbackPort int) string {
	switch action {
	case "add":
		return s.handleLaptopAdd(ctx, job, callbackPort)
	case "delete":
		return s.handleLaptopDelete(ctx, job, callbackPort)
	case "read":
		return s.handleLaptopRead(ctx, job, callbackPort)
	default:
		return s.handleLaptopUpdate(ctx, job, callbackPort)
	}
}

func (s *Server) dispatchContactDetails(ctx context.Context, action string, job protocol.Message, callbackPort int) string {
	switch action {
	case "add":
		return s.handleContactAdd(ctx, job, callbackPort)
	case "delete":
		return s.handleContactDelete(ctx, job, callbackPort)
	case "read":
		return s.handleContactRead(ctx, job, callbackPort)
	default:
		s.sendError(callbackPort, `Updating contact details is not supported.`)
		return protocol.StatusError
	}
}

// handleReset drops the whole store and reinserts the seed data. It is
// unauthenticated and reachable by any client, which is the reason the
// server should never face an untrusted network.
func (s *Server) handleReset(ctx context.Context, callbackPort int, replyWanted bool) string {
	s.logger.Warn("database_reset_requested")
	err := s.mutate(func() error {
		return repository.Reset(ctx, s.db)
	})
	if err != nil {
		s.logger.Error("database_reset_failed", "error", err.Error())
		if replyWanted {
			s.sendError(callbackPort, "Failed to reset the database: "+err.Error())
		}
		return protocol.StatusError
	}
	s.logger.Info("database_reset_done")
	if replyWanted {
		s.send(callbackPort, protocol.Message{"status": protocol.StatusSuccess})
	}
	return protocol.StatusSuccess
}

func (s *Server) record(ctx context.Context, action, dataType string, port int, status string) {
	s.recorder.Record(ctx, audit.Record{
		Time:     time.Now(),
		Action:   action,
		DataType: dataType,
		Port:     port,
		Status:   status,
	})
}
