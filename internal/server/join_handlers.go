package server

import (
	"context"
	"fmt"

	"fleethub/internal/protocol"
)

// handleVehicleEngineersRead reads the vehicle/engineer join from either
// side. A job naming a model gets the engineers assigned to it, a job
// naming an engineer gets their vehicles, a job naming both gets both
// lists and a job naming neither is an error.
func (s *Server) handleVehicleEngineersRead(ctx context.Context, job protocol.Message, callbackPort int) string {
	model, modelErr := job.String("model")
	ownerName, ownerErr := job.String("engineer")
	if modelErr != nil && ownerErr != nil {
		s.sendError(callbackPort,
			`Client vehicle_engineers read job must include an entry for "model", "engineer", or both.`)
		return protocol.StatusError
	}

	reply := protocol.Message{"status": protocol.StatusSuccess}

	if modelErr == nil {
		cars, err := s.vehicles.GetByModel(ctx, model)
		if err != nil {
			s.sendError(callbackPort, "Failed to look up vehicles of model "+model+": "+err.Error())
			return protocol.StatusError
		}
		if len(cars) == 0 {
			s.sendError(callbackPort, fmt.Sprintf("No vehicles of model %s exist in the database.", model))
			return protocol.StatusError
		}
		engins, err := s.vehicles.AssignedEngineers(ctx, model)
		if err != nil {
			s.sendError(callbackPort, "Failed to read engineers of model "+model+": "+err.Error())
			return protocol.StatusError
		}
		payloads := make([]map[string]any, len(engins))
		for i := range engins {
			payloads[i] = engins[i].Payload()
		}
		reply["engineers"] = payloads
	}

	if ownerErr == nil {
		engin, err := s.engineers.GetByName(ctx, ownerName)
		if err != nil {
			s.sendError(callbackPort, "Failed to look up engineer: "+err.Error())
			return protocol.StatusError
		}
		if engin == nil {
			s.sendError(callbackPort, fmt.Sprintf("No engineer named %s exists in the database.", ownerName))
			return protocol.StatusError
		}
		cars, err := s.engineers.AssignedVehicles(ctx, engin)
		if err != nil {
			s.sendError(callbackPort, "Failed to read vehicles of "+ownerName+": "+err.Error())
			return protocol.StatusError
		}
		payloads := make([]map[string]any, len(cars))
		for i := range cars {
			payloads[i] = cars[i].Payload()
		}
		reply["vehicles"] = payloads
	}

	s.send(callbackPort, reply)
	return protocol.StatusSuccess
}
