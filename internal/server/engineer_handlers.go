package server

import (
	"context"
	"fmt"
	"strings"

	"fleethub/internal/models"
	"fleethub/internal/protocol"
	"fleethub/internal/repository"
)

const engineerMissingField = `Client engineer %s job has no entry for %q`

// handleEngineerAdd mirrors the vehicle add conversation with the roles
// swapped: the follow-up message names vehicle models to assign the new
// engineer to. A duplicate name aborts instead of merging.
func (s *Server) handleEngineerAdd(ctx context.Context, job protocol.Message, callbackPort int) string {
	conv := s.newConversation(callbackPort)

	name, err := job.String("name")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(engineerMissingField, "insert", "name"))
		return protocol.StatusError
	}
	year, err := job.Int("birth_year")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(engineerMissingField, "insert", "birth_year"))
		return protocol.StatusError
	}
	month, err := job.Int("birth_month")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(engineerMissingField, "insert", "birth_month"))
		return protocol.StatusError
	}
	day, err := job.Int("birth_date")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(engineerMissingField, "insert", "birth_date"))
		return protocol.StatusError
	}

	if name == "" {
		s.sendError(callbackPort, `Client engineer insert job entry "name" must not be blank.`)
		return protocol.StatusError
	}
	birthday, err := buildDate(year, month, day)
	if err != nil {
		s.sendError(callbackPort, "Invalid birth date: "+err.Error())
		return protocol.StatusError
	}

	conv.state = stateMutating
	var engin *models.Engineer
	if err := s.mutate(func() error {
		var mErr error
		engin, mErr = s.engineers.Add(ctx, name, birthday)
		return mErr
	}); err != nil {
		s.sendError(callbackPort, "Failed to add engineer: "+err.Error())
		return protocol.StatusError
	}
	if engin == nil {
		s.sendError(callbackPort, fmt.Sprintf(
			"Engineer named %s already exists in the database.\nAborted adding duplicate engineer %s to the database.",
			name, name))
		return protocol.StatusError
	}

	if err := conv.open(); err != nil {
		s.sendError(callbackPort, "Failed to open a follow-up port: "+err.Error())
		return protocol.StatusError
	}
	defer conv.close()

	s.logger.Info("engineer_added", "name", name, "conversation_id", conv.id)
	s.send(callbackPort, protocol.Message{
		"status": protocol.StatusSuccess,
		"port":   conv.port,
	}.Merge(engin.Payload()))

	resp, err := conv.await()
	if err != nil {
		conv.state = stateAborted
		s.logger.Warn("engineer_add_follow_up_abandoned", "error", err.Error())
		return protocol.StatusError
	}

	answer, err := resp.String("response")
	if err != nil {
		conv.state = stateAborted
		s.sendError(callbackPort,
			`Client did not include entry "response" to let the server know whether to assign the new engineer to any vehicles.`)
		return protocol.StatusError
	}
	if answer != "y" {
		conv.state = stateCompleted
		return protocol.StatusSuccess
	}

	modelNames, err := resp.StringList("vehicles")
	if err != nil {
		conv.state = stateAborted
		s.sendError(callbackPort,
			`Client response did not include entry "vehicles" to let the server know which vehicles to assign the new engineer to.`)
		return protocol.StatusError
	}

	assigned := make([]string, 0, len(modelNames))
	unassigned := make([]string, 0)
	for _, model := range modelNames {
		model = strings.TrimSpace(model)
		cars, err := s.vehicles.GetByModel(ctx, model)
		if err != nil {
			conv.state = stateAborted
			s.sendError(callbackPort, "Failed to look up vehicles of model "+model+": "+err.Error())
			return protocol.StatusError
		}
		if len(cars) == 0 {
			s.logger.Info("vehicle_model_not_found_for_assignment", "model", model)
			unassigned = append(unassigned, model)
			continue
		}
		for i := range cars {
			if err := s.mutate(func() error {
				return s.engineers.AssignVehicle(ctx, engin, &cars[i])
			}); err != nil {
				conv.state = stateAborted
				s.sendError(callbackPort, "Failed to assign vehicle "+model+": "+err.Error())
				return protocol.StatusError
			}
		}
		assigned = append(assigned, model)
	}

	conv.state = stateCompleted
	s.logger.Info("engineer_vehicles_assigned", "name", name, "assigned", assigned, "unassigned", unassigned)
	s.send(callbackPort, protocol.Message{
		"status":     protocol.StatusSuccess,
		"assigned":   assigned,
		"unassigned": unassigned,
	})
	return protocol.StatusSuccess
}

func (s *Server) handleEngineerDelete(ctx context.Context, job protocol.Message, callbackPort int) string {
	name, err := job.String("name")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(engineerMissingField, "delete", "name"))
		return protocol.StatusError
	}

	var deleted bool
	if err := s.mutate(func() error {
		var mErr error
		deleted, mErr = s.engineers.DeleteByName(ctx, name)
		return mErr
	}); err != nil {
		s.sendError(callbackPort, "Failed to delete engineer: "+err.Error())
		return protocol.StatusError
	}
	if !deleted {
		s.sendError(callbackPort, fmt.Sprintf(
			"Engineer %s doesn't exist in the database. Aborted deleting non-existent engineer.", name))
		return protocol.StatusError
	}

	s.logger.Info("engineer_deleted", "name", name)
	s.send(callbackPort, protocol.Message{"status": protocol.StatusSuccess})
	return protocol.StatusSuccess
}

func (s *Server) handleEngineerRead(ctx context.Context, job protocol.Message, callbackPort int) string {
	name, err := job.String("name")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(engineerMissingField, "read", "name"))
		return protocol.StatusError
	}

	var engins []models.Engineer
	switch name {
	case "":
		id, err := job.Int("id")
		if err != nil {
			s.sendError(callbackPort,
				`Client left engineer name blank, but did not provide an entry for "id".`)
			return protocol.StatusError
		}
		engin, err := s.engineers.GetByID(ctx, int64(id))
		if err != nil {
			s.sendError(callbackPort, "Failed to read engineer: "+err.Error())
			return protocol.StatusError
		}
		if engin == nil {
			s.sendError(callbackPort, fmt.Sprintf("No engineer with id %d exists in the database.", id))
			return protocol.StatusError
		}
		engins = []models.Engineer{*engin}
	case "all":
		engins, err = s.engineers.GetAll(ctx)
		if err != nil {
			s.sendError(callbackPort, "Failed to read engineers: "+err.Error())
			return protocol.StatusError
		}
	default:
		engin, err := s.engineers.GetByName(ctx, name)
		if err != nil {
			s.sendError(callbackPort, "Failed to read engineer: "+err.Error())
			return protocol.StatusError
		}
		if engin == nil {
			s.sendError(callbackPort, fmt.Sprintf("No engineer named %s exists in the database.", name))
			return protocol.StatusError
		}
		engins = []models.Engineer{*engin}
	}

	payloads := make([]map[string]any, len(engins))
	for i := range engins {
		payloads[i] = engins[i].Payload()
	}
	s.send(callbackPort, protocol.Message{
		"status":    protocol.StatusSuccess,
		"engineers": payloads,
	})
	return protocol.StatusSuccess
}

// handleEngineerUpdate rewrites any subset of an engineer's fields by id.
// A "vehicles" list fully replaces the assignment set, computed as a diff
// against the current assignments and reported as assigned_models /
// unassigned_models.
func (s *Server) handleEngineerUpdate(ctx context.Context, job protocol.Message, callbackPort int) string {
	id, err := job.Int("id")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(engineerMissingField, "update", "id"))
		return protocol.StatusError
	}

	engin, err := s.engineers.GetByID(ctx, int64(id))
	if err != nil {
		s.sendError(callbackPort, "Failed to read engineer: "+err.Error())
		return protocol.StatusError
	}
	if engin == nil {
		s.sendError(callbackPort, fmt.Sprintf("No engineer with id %d exists in the database.", id))
		return protocol.StatusError
	}

	var upd repository.EngineerUpdate
	if job.Has("name") {
		name, err := job.String("name")
		if err != nil || name == "" {
			s.sendError(callbackPort, `Client engineer update job entry "name" must be a non-blank string.`)
			return protocol.StatusError
		}
		upd.Name = &name
	}
	if job.Has("birth_year") || job.Has("birth_month") || job.Has("birth_date") {
		year, month, day := engin.Birthday.Year(), int(engin.Birthday.Month()), engin.Birthday.Day()
		if job.Has("birth_year") {
			if year, err = job.Int("birth_year"); err != nil {
				s.sendError(callbackPort, `Client engineer update job entry "birth_year" must be a number.`)
				return protocol.StatusError
			}
		}
		if job.Has("birth_month") {
			if month, err = job.Int("birth_month"); err != nil {
				s.sendError(callbackPort, `Client engineer update job entry "birth_month" must be a number.`)
				return protocol.StatusError
			}
		}
		if job.Has("birth_date") {
			if day, err = job.Int("birth_date"); err != nil {
				s.sendError(callbackPort, `Client engineer update job entry "birth_date" must be a number.`)
				return protocol.StatusError
			}
		}
		birthday, err := buildDate(year, month, day)
		if err != nil {
			s.sendError(callbackPort, "Invalid birth date: "+err.Error())
			return protocol.StatusError
		}
		upd.Birthday = &birthday
	}

	if err := s.mutate(func() error {
		_, mErr := s.engineers.Update(ctx, int64(id), upd)
		return mErr
	}); err != nil {
		s.sendError(callbackPort, "Failed to update engineer: "+err.Error())
		return protocol.StatusError
	}

	engin, err = s.engineers.GetByID(ctx, int64(id))
	if err != nil || engin == nil {
		s.sendError(callbackPort, fmt.Sprintf("Engineer with id %d disappeared during the update.", id))
		return protocol.StatusError
	}

	reply := protocol.Message{
		"status":   protocol.StatusSuccess,
		"engineer": engin.Payload(),
	}

	if job.Has("vehicles") {
		modelNames, err := job.StringList("vehicles")
		if err != nil {
			s.sendError(callbackPort, `Client engineer update job entry "vehicles" must be a list of models.`)
			return protocol.StatusError
		}

		assigned, unassigned, err := s.replaceEngineerVehicles(ctx, engin, modelNames)
		if err != nil {
			s.sendError(callbackPort, "Failed to replace vehicle assignments: "+err.Error())
			return protocol.StatusError
		}
		reply["assigned_models"] = assigned
		reply["unassigned_models"] = unassigned
	}

	s.logger.Info("engineer_updated", "id", id)
	s.send(callbackPort, reply)
	return protocol.StatusSuccess
}

// replaceEngineerVehicles diffs the requested model set against the
// engineer's current assignments, links the additions, unlinks the
// removals, and returns the two diffs. Requested models that match no
// vehicle are skipped.
func (s *Server) replaceEngineerVehicles(ctx context.Context, engin *models.Engineer, modelNames []string) (assigned, unassigned []string, err error) {
	current, err := s.engineers.AssignedVehicles(ctx, engin)
	if err != nil {
		return nil, nil, err
	}
	currentModels := make(map[string]bool, len(current))
	for _, v := range current {
		currentModels[v.Model] = true
	}

	requested := make(map[string]bool, len(modelNames))
	assigned = make([]string, 0)
	for _, model := range modelNames {
		model = strings.TrimSpace(model)
		cars, err := s.vehicles.GetByModel(ctx, model)
		if err != nil {
			return nil, nil, err
		}
		if len(cars) == 0 {
			s.logger.Info("vehicle_model_not_found_for_assignment", "model", model)
			continue
		}
		requested[model] = true
		if currentModels[model] {
			continue
		}
		for i := range cars {
			if err := s.mutate(func() error {
				return s.engineers.AssignVehicle(ctx, engin, &cars[i])
			}); err != nil {
				return nil, nil, err
			}
		}
		assigned = append(assigned, model)
	}

	unassigned = make([]string, 0)
	for i := range current {
		if requested[current[i].Model] {
			continue
		}
		if err := s.mutate(func() error {
			return s.engineers.UnassignVehicle(ctx, engin, &current[i])
		}); err != nil {
			return nil, nil, err
		}
		unassigned = append(unassigned, current[i].Model)
	}
	return assigned, unassigned, nil
}
