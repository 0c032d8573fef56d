package server

import (
	"context"
	"fmt"
	"strings"

	"fleethub/internal/models"
	"fleethub/internal/protocol"
	"fleethub/internal/repository"
)

const vehicleMissingField = `Client vehicle %s job has no entry for %q`

// handleVehicleAdd runs the canonical add conversation: validate, mutate,
// then lease a fresh port and hold it open for exactly one follow-up
// message naming the engineers to assign.
func (s *Server) handleVehicleAdd(ctx context.Context, job protocol.Message, callbackPort int) string {
	conv := s.newConversation(callbackPort)

	model, err := job.String("model")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(vehicleMissingField, "insert", "model"))
		return protocol.StatusError
	}
	quantity, err := job.Int("quantity")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(vehicleMissingField, "insert", "quantity"))
		return protocol.StatusError
	}
	price, err := job.Float("price")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(vehicleMissingField, "insert", "price"))
		return protocol.StatusError
	}
	year, err := job.Int("manufacture_year")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(vehicleMissingField, "insert", "manufacture_year"))
		return protocol.StatusError
	}
	month, err := job.Int("manufacture_month")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(vehicleMissingField, "insert", "manufacture_month"))
		return protocol.StatusError
	}
	day, err := job.Int("manufacture_date")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(vehicleMissingField, "insert", "manufacture_date"))
		return protocol.StatusError
	}

	if model == "" {
		s.sendError(callbackPort, `Client vehicle insert job entry "model" must not be blank.`)
		return protocol.StatusError
	}
	if quantity < 0 {
		s.sendError(callbackPort, `Client vehicle insert job entry "quantity" must not be negative.`)
		return protocol.StatusError
	}
	if price <= 0 {
		s.sendError(callbackPort, `Client vehicle insert job entry "price" must be positive.`)
		return protocol.StatusError
	}
	manufactured, err := buildDate(year, month, day)
	if err != nil {
		s.sendError(callbackPort, "Invalid manufacture date: "+err.Error())
		return protocol.StatusError
	}

	conv.state = stateMutating
	var car *models.Vehicle
	if err := s.mutate(func() error {
		var mErr error
		car, mErr = s.vehicles.Add(ctx, model, quantity, price, manufactured)
		return mErr
	}); err != nil {
		s.sendError(callbackPort, "Failed to add vehicle: "+err.Error())
		return protocol.StatusError
	}

	// an existing model means the quantity was merged; no follow-up round
	if car == nil {
		text := fmt.Sprintf("Vehicle model %s already exists in the database.\nUpdated quantity of %s vehicles by %d.",
			model, model, quantity)
		s.logger.Info("vehicle_quantity_merged", "model", model, "added", quantity)
		s.send(callbackPort, protocol.Message{"status": protocol.StatusUpdated, "text": text})
		return protocol.StatusUpdated
	}

	if err := conv.open(); err != nil {
		s.sendError(callbackPort, "Failed to open a follow-up port: "+err.Error())
		return protocol.StatusError
	}
	defer conv.close()

	s.logger.Info("vehicle_added", "model", model, "conversation_id", conv.id)
	s.send(callbackPort, protocol.Message{
		"status": protocol.StatusSuccess,
		"port":   conv.port,
	}.Merge(car.Payload()))

	resp, err := conv.await()
	if err != nil {
		conv.state = stateAborted
		s.logger.Warn("vehicle_add_follow_up_abandoned", "error", err.Error())
		return protocol.StatusError
	}

	answer, err := resp.String("response")
	if err != nil {
		conv.state = stateAborted
		s.sendError(callbackPort,
			`Client did not include entry "response" to let the server know whether to assign engineers to the new vehicle.`)
		return protocol.StatusError
	}
	if answer != "y" {
		// anything but "y" means no further action
		conv.state = stateCompleted
		return protocol.StatusSuccess
	}

	names, err := resp.StringList("engineers")
	if err != nil {
		conv.state = stateAborted
		s.sendError(callbackPort,
			`Client did not include entry "engineers" to let the server know which engineers to assign to the new vehicle.`)
		return protocol.StatusError
	}

	assigned := make([]string, 0, len(names))
	unassigned := make([]string, 0)
	for _, name := range names {
		name = strings.TrimSpace(name)
		engin, err := s.engineers.GetByName(ctx, name)
		if err != nil {
			conv.state = stateAborted
			s.sendError(callbackPort, "Failed to look up engineer "+name+": "+err.Error())
			return protocol.StatusError
		}
		if engin == nil {
			s.logger.Info("engineer_not_found_for_assignment", "name", name)
			unassigned = append(unassigned, name)
			continue
		}
		// each assignment is its own write, not a batch
		if err := s.mutate(func() error {
			return s.vehicles.AppendEngineer(ctx, car, engin)
		}); err != nil {
			conv.state = stateAborted
			s.sendError(callbackPort, "Failed to assign engineer "+name+": "+err.Error())
			return protocol.StatusError
		}
		assigned = append(assigned, name)
	}

	conv.state = stateCompleted
	s.logger.Info("vehicle_engineers_assigned", "model", model, "assigned", assigned, "unassigned", unassigned)
	s.send(callbackPort, protocol.Message{
		"status":     protocol.StatusSuccess,
		"assigned":   assigned,
		"unassigned": unassigned,
	})
	return protocol.StatusSuccess
}

func (s *Server) handleVehicleDelete(ctx context.Context, job protocol.Message, callbackPort int) string {
	model, err := job.String("model")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(vehicleMissingField, "delete", "model"))
		return protocol.StatusError
	}

	var deleted bool
	if err := s.mutate(func() error {
		var mErr error
		deleted, mErr = s.vehicles.DeleteByModel(ctx, model)
		return mErr
	}); err != nil {
		s.sendError(callbackPort, "Failed to delete vehicles: "+err.Error())
		return protocol.StatusError
	}
	if !deleted {
		s.sendError(callbackPort, fmt.Sprintf("No vehicles of model %s existed in the database to be deleted.", model))
		return protocol.StatusError
	}

	s.logger.Info("vehicles_deleted", "model", model)
	s.send(callbackPort, protocol.Message{"status": protocol.StatusSuccess})
	return protocol.StatusSuccess
}

func (s *Server) handleVehicleRead(ctx context.Context, job protocol.Message, callbackPort int) string {
	model, err := job.String("model")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(vehicleMissingField, "read", "model"))
		return protocol.StatusError
	}

	var cars []models.Vehicle
	switch model {
	case "":
		id, err := job.Int("id")
		if err != nil {
			s.sendError(callbackPort,
				`Client vehicle read job entered a blank model name, but did not have an entry for "id".`)
			return protocol.StatusError
		}
		car, err := s.vehicles.GetByID(ctx, int64(id))
		if err != nil {
			s.sendError(callbackPort, "Failed to read vehicle: "+err.Error())
			return protocol.StatusError
		}
		if car == nil {
			s.sendError(callbackPort, fmt.Sprintf("No vehicle with id %d exists in the database.", id))
			return protocol.StatusError
		}
		cars = []models.Vehicle{*car}
	case "all":
		cars, err = s.vehicles.GetAll(ctx)
	default:
		cars, err = s.vehicles.GetByModel(ctx, model)
	}
	if err != nil {
		s.sendError(callbackPort, "Failed to read vehicles: "+err.Error())
		return protocol.StatusError
	}
	if len(cars) == 0 {
		s.sendError(callbackPort, fmt.Sprintf("No vehicles of model %s were found in the database.", model))
		return protocol.StatusError
	}

	payloads := make([]map[string]any, len(cars))
	for i := range cars {
		payloads[i] = cars[i].Payload()
	}
	s.send(callbackPort, protocol.Message{
		"status":   protocol.StatusSuccess,
		"vehicles": payloads,
	})
	return protocol.StatusSuccess
}

// handleVehicleUpdate rewrites any subset of a vehicle's fields by id.
// When an "engineers" list is present it fully replaces the assignment
// set; names that resolve to nothing are skipped.
func (s *Server) handleVehicleUpdate(ctx context.Context, job protocol.Message, callbackPort int) string {
	id, err := job.Int("id")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(vehicleMissingField, "update", "id"))
		return protocol.StatusError
	}

	car, err := s.vehicles.GetByID(ctx, int64(id))
	if err != nil {
		s.sendError(callbackPort, "Failed to read vehicle: "+err.Error())
		return protocol.StatusError
	}
	if car == nil {
		s.sendError(callbackPort, fmt.Sprintf("No vehicle with id %d exists in the database.", id))
		return protocol.StatusError
	}

	var upd repository.VehicleUpdate
	if job.Has("model") {
		model, err := job.String("model")
		if err != nil || model == "" {
			s.sendError(callbackPort, `Client vehicle update job entry "model" must be a non-blank string.`)
			return protocol.StatusError
		}
		upd.Model = &model
	}
	if job.Has("quantity") {
		quantity, err := job.Int("quantity")
		if err != nil || quantity < 0 {
			s.sendError(callbackPort, `Client vehicle update job entry "quantity" must be a non-negative number.`)
			return protocol.StatusError
		}
		upd.Quantity = &quantity
	}
	if job.Has("price") {
		price, err := job.Float("price")
		if err != nil || price <= 0 {
			s.sendError(callbackPort, `Client vehicle update job entry "price" must be a positive number.`)
			return protocol.StatusError
		}
		upd.Price = &price
	}

	// date components merge with the stored date, so a year-only update
	// keeps the stored month and day
	if job.Has("manufacture_year") || job.Has("manufacture_month") || job.Has("manufacture_date") {
		year, month, day := car.ManufactureDate.Year(), int(car.ManufactureDate.Month()), car.ManufactureDate.Day()
		if job.Has("manufacture_year") {
			if year, err = job.Int("manufacture_year"); err != nil {
				s.sendError(callbackPort, `Client vehicle update job entry "manufacture_year" must be a number.`)
				return protocol.StatusError
			}
		}
		if job.Has("manufacture_month") {
			if month, err = job.Int("manufacture_month"); err != nil {
				s.sendError(callbackPort, `Client vehicle update job entry "manufacture_month" must be a number.`)
				return protocol.StatusError
			}
		}
		if job.Has("manufacture_date") {
			if day, err = job.Int("manufacture_date"); err != nil {
				s.sendError(callbackPort, `Client vehicle update job entry "manufacture_date" must be a number.`)
				return protocol.StatusError
			}
		}
		manufactured, err := buildDate(year, month, day)
		if err != nil {
			s.sendError(callbackPort, "Invalid manufacture date: "+err.Error())
			return protocol.StatusError
		}
		upd.Manufactured = &manufactured
	}

	if err := s.mutate(func() error {
		_, mErr := s.vehicles.Update(ctx, int64(id), upd)
		return mErr
	}); err != nil {
		s.sendError(callbackPort, "Failed to update vehicle: "+err.Error())
		return protocol.StatusError
	}

	car, err = s.vehicles.GetByID(ctx, int64(id))
	if err != nil || car == nil {
		s.sendError(callbackPort, fmt.Sprintf("Vehicle with id %d disappeared during the update.", id))
		return protocol.StatusError
	}

	reply := protocol.Message{
		"status":  protocol.StatusSuccess,
		"vehicle": car.Payload(),
	}

	if job.Has("engineers") {
		names, err := job.StringList("engineers")
		if err != nil {
			s.sendError(callbackPort, `Client vehicle update job entry "engineers" must be a list of names.`)
			return protocol.StatusError
		}

		prev, err := s.vehicles.AssignedEngineers(ctx, car.Model)
		if err != nil {
			s.sendError(callbackPort, "Failed to read current engineer assignments: "+err.Error())
			return protocol.StatusError
		}
		prevNames := make(map[string]bool, len(prev))
		for _, e := range prev {
			prevNames[e.Name] = true
		}

		target := make([]models.Engineer, 0, len(names))
		targetNames := make(map[string]bool, len(names))
		for _, name := range names {
			name = strings.TrimSpace(name)
			engin, err := s.engineers.GetByName(ctx, name)
			if err != nil {
				s.sendError(callbackPort, "Failed to look up engineer "+name+": "+err.Error())
				return protocol.StatusError
			}
			if engin == nil {
				s.logger.Info("engineer_not_found_for_assignment", "name", name)
				continue
			}
			target = append(target, *engin)
			targetNames[engin.Name] = true
		}

		if err := s.mutate(func() error {
			return s.vehicles.ReplaceEngineers(ctx, car, target)
		}); err != nil {
			s.sendError(callbackPort, "Failed to replace engineer assignments: "+err.Error())
			return protocol.StatusError
		}

		assigned := make([]string, 0)
		for _, e := range target {
			if !prevNames[e.Name] {
				assigned = append(assigned, e.Name)
			}
		}
		unassigned := make([]string, 0)
		for _, e := range prev {
			if !targetNames[e.Name] {
				unassigned = append(unassigned, e.Name)
			}
		}
		reply["assigned_names"] = assigned
		reply["unassigned_names"] = unassigned
	}

	s.logger.Info("vehicle_updated", "id", id)
	s.send(callbackPort, reply)
	return protocol.StatusSuccess
}
