package server

import (
	"context"
	"fmt"

	"fleethub/internal/models"
	"fleethub/internal/protocol"
	"fleethub/internal/repository"
)

const laptopMissingField = `Client laptop %s job has no entry for %q`

// handleLaptopAdd runs the three-round-trip laptop conversation. The
// ephemeral port is leased up front because either confirmation round may
// need it: an unknown engineer asks the client whether to loan the laptop
// to nobody, an engineer who already holds a laptop asks whether to
// replace it. A "n" answer at either question aborts without a reply.
func (s *Server) handleLaptopAdd(ctx context.Context, job protocol.Message, callbackPort int) string {
	conv := s.newConversation(callbackPort)

	model, err := job.String("model")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(laptopMissingField, "insert", "model"))
		return protocol.StatusError
	}
	year, err := job.Int("loan_year")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(laptopMissingField, "insert", "loan_year"))
		return protocol.StatusError
	}
	month, err := job.Int("loan_month")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(laptopMissingField, "insert", "loan_month"))
		return protocol.StatusError
	}
	day, err := job.Int("loan_date")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(laptopMissingField, "insert", "loan_date"))
		return protocol.StatusError
	}
	ownerName, err := job.String("engineer")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(laptopMissingField, "insert", "engineer"))
		return protocol.StatusError
	}

	if model == "" {
		s.sendError(callbackPort, `Client laptop insert job entry "model" must not be blank.`)
		return protocol.StatusError
	}
	loaned, err := buildDate(year, month, day)
	if err != nil {
		s.sendError(callbackPort, "Invalid loan date: "+err.Error())
		return protocol.StatusError
	}

	if err := conv.open(); err != nil {
		s.sendError(callbackPort, "Failed to open a follow-up port: "+err.Error())
		return protocol.StatusError
	}
	defer conv.close()

	owner, err := s.engineers.GetByName(ctx, ownerName)
	if err != nil {
		s.sendError(callbackPort, "Failed to look up engineer: "+err.Error())
		return protocol.StatusError
	}

	if owner == nil {
		conv.state = stateConfirmNoOwner
		s.logger.Info("laptop_owner_unknown", "engineer", ownerName, "conversation_id", conv.id)
		s.send(callbackPort, protocol.Message{
			"status": protocol.StatusNoEngineer,
			"port":   conv.port,
			"text": fmt.Sprintf(
				"No engineer named %s exists in the database. The laptop can be added without a loaner.",
				ownerName),
		})
		answer, ok := conv.confirm(s, callbackPort)
		if !ok {
			return protocol.StatusError
		}
		if answer != "y" {
			conv.state = stateAborted
			s.logger.Info("laptop_add_declined", "state", conv.state.String())
			return protocol.StatusError
		}
	}

	replaced := false
	if owner != nil {
		previous, err := s.laptops.GetByOwner(ctx, ownerName)
		if err != nil {
			s.sendError(callbackPort, "Failed to look up the engineer's laptop: "+err.Error())
			return protocol.StatusError
		}
		if previous != nil {
			conv.state = stateConfirmReplace
			s.logger.Info("laptop_owner_already_loaned",
				"engineer", ownerName, "laptop_id", previous.ID, "conversation_id", conv.id)
			s.send(callbackPort, protocol.Message{
				"status": protocol.StatusPreviousLaptop,
				"port":   conv.port,
			}.Merge(previous.Payload()))
			answer, ok := conv.confirm(s, callbackPort)
			if !ok {
				return protocol.StatusError
			}
			if answer != "y" {
				conv.state = stateAborted
				s.logger.Info("laptop_add_declined", "state", conv.state.String())
				return protocol.StatusError
			}
			if err := s.mutate(func() error {
				_, mErr := s.laptops.DeleteByID(ctx, previous.ID)
				return mErr
			}); err != nil {
				s.sendError(callbackPort, "Failed to remove the previous laptop: "+err.Error())
				return protocol.StatusError
			}
			replaced = true
		}
	}

	conv.state = stateMutating
	var laptop *models.Laptop
	if err := s.mutate(func() error {
		var mErr error
		laptop, mErr = s.laptops.Add(ctx, model, loaned, owner)
		return mErr
	}); err != nil {
		s.sendError(callbackPort, "Failed to add laptop: "+err.Error())
		return protocol.StatusError
	}
	if laptop == nil {
		s.sendError(callbackPort, fmt.Sprintf(
			"Engineer %s already has a %s on loan.\nAborted adding duplicate laptop to the database.",
			ownerName, model))
		return protocol.StatusError
	}

	conv.state = stateCompleted
	s.logger.Info("laptop_added", "model", model, "engineer", ownerName, "replaced", replaced)
	s.send(callbackPort, protocol.Message{
		"status":   protocol.StatusSuccess,
		"replaced": replaced,
	}.Merge(laptop.Payload()))
	return protocol.StatusSuccess
}

// confirm waits for one y/n follow-up and returns the answer. A missing
// "response" entry is reported to the client and ends the conversation.
func (c *conversation) confirm(s *Server, callbackPort int) (string, bool) {
	resp, err := c.await()
	if err != nil {
		c.state = stateAborted
		c.logger.Warn("laptop_confirmation_abandoned", "error", err.Error())
		return "", false
	}
	answer, err := resp.String("response")
	if err != nil {
		c.state = stateAborted
		s.sendError(callbackPort,
			`Client did not include entry "response" to answer the server's confirmation question.`)
		return "", false
	}
	return answer, true
}

func (s *Server) handleLaptopDelete(ctx context.Context, job protocol.Message, callbackPort int) string {
	ownerName, err := job.String("engineer")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(laptopMissingField, "delete", "engineer"))
		return protocol.StatusError
	}

	var deleted bool
	if ownerName == "" {
		id, err := job.Int("id")
		if err != nil {
			s.sendError(callbackPort,
				`Client left the engineer name blank, but did not provide an entry for "id".`)
			return protocol.StatusError
		}
		if err := s.mutate(func() error {
			var mErr error
			deleted, mErr = s.laptops.DeleteByID(ctx, int64(id))
			return mErr
		}); err != nil {
			s.sendError(callbackPort, "Failed to delete laptop: "+err.Error())
			return protocol.StatusError
		}
		if !deleted {
			s.sendError(callbackPort, fmt.Sprintf(
				"No laptop with id %d exists in the database. Aborted deleting non-existent laptop.", id))
			return protocol.StatusError
		}
	} else {
		if err := s.mutate(func() error {
			var mErr error
			deleted, mErr = s.laptops.DeleteByOwner(ctx, ownerName)
			return mErr
		}); err != nil {
			s.sendError(callbackPort, "Failed to delete laptop: "+err.Error())
			return protocol.StatusError
		}
		if !deleted {
			s.sendError(callbackPort, fmt.Sprintf(
				"Engineer %s has no laptop on loan. Aborted deleting non-existent laptop.", ownerName))
			return protocol.StatusError
		}
	}

	s.logger.Info("laptop_deleted", "engineer", ownerName)
	s.send(callbackPort, protocol.Message{"status": protocol.StatusSuccess})
	return protocol.StatusSuccess
}

func (s *Server) handleLaptopRead(ctx context.Context, job protocol.Message, callbackPort int) string {
	model, err := job.String("model")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(laptopMissingField, "read", "model"))
		return protocol.StatusError
	}

	var laptops []models.Laptop
	switch model {
	case "":
		ownerName, err := job.String("engineer")
		if err != nil {
			s.sendError(callbackPort,
				`Client left the laptop model blank, but did not provide an entry for "engineer".`)
			return protocol.StatusError
		}
		laptop, err := s.laptops.GetByOwner(ctx, ownerName)
		if err != nil {
			s.sendError(callbackPort, "Failed to read laptop: "+err.Error())
			return protocol.StatusError
		}
		if laptop == nil {
			s.sendError(callbackPort, fmt.Sprintf(
				"Engineer %s has no laptop on loan.", ownerName))
			return protocol.StatusError
		}
		laptops = []models.Laptop{*laptop}
	case "all":
		laptops, err = s.laptops.GetAll(ctx)
		if err != nil {
			s.sendError(callbackPort, "Failed to read laptops: "+err.Error())
			return protocol.StatusError
		}
	default:
		laptops, err = s.laptops.GetByModel(ctx, model)
		if err != nil {
			s.sendError(callbackPort, "Failed to read laptops: "+err.Error())
			return protocol.StatusError
		}
		if len(laptops) == 0 {
			s.sendError(callbackPort, fmt.Sprintf("No laptops of model %s exist in the database.", model))
			return protocol.StatusError
		}
	}

	payloads := make([]map[string]any, len(laptops))
	for i := range laptops {
		payloads[i] = laptops[i].Payload()
	}
	s.send(callbackPort, protocol.Message{
		"status":  protocol.StatusSuccess,
		"laptops": payloads,
	})
	return protocol.StatusSuccess
}

func (s *Server) handleLaptopUpdate(ctx context.Context, job protocol.Message, callbackPort int) string {
	id, err := job.Int("id")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(laptopMissingField, "update", "id"))
		return protocol.StatusError
	}

	laptop, err := s.laptops.GetByID(ctx, int64(id))
	if err != nil {
		s.sendError(callbackPort, "Failed to read laptop: "+err.Error())
		return protocol.StatusError
	}
	if laptop == nil {
		s.sendError(callbackPort, fmt.Sprintf("No laptop with id %d exists in the database.", id))
		return protocol.StatusError
	}

	var upd repository.LaptopUpdate
	if job.Has("model") {
		model, err := job.String("model")
		if err != nil || model == "" {
			s.sendError(callbackPort, `Client laptop update job entry "model" must be a non-blank string.`)
			return protocol.StatusError
		}
		upd.Model = &model
	}
	if job.Has("loan_year") || job.Has("loan_month") || job.Has("loan_date") {
		year, month, day := laptop.DateLoaned.Year(), int(laptop.DateLoaned.Month()), laptop.DateLoaned.Day()
		if job.Has("loan_year") {
			if year, err = job.Int("loan_year"); err != nil {
				s.sendError(callbackPort, `Client laptop update job entry "loan_year" must be a number.`)
				return protocol.StatusError
			}
		}
		if job.Has("loan_month") {
			if month, err = job.Int("loan_month"); err != nil {
				s.sendError(callbackPort, `Client laptop update job entry "loan_month" must be a number.`)
				return protocol.StatusError
			}
		}
		if job.Has("loan_date") {
			if day, err = job.Int("loan_date"); err != nil {
				s.sendError(callbackPort, `Client laptop update job entry "loan_date" must be a number.`)
				return protocol.StatusError
			}
		}
		loaned, err := buildDate(year, month, day)
		if err != nil {
			s.sendError(callbackPort, "Invalid loan date: "+err.Error())
			return protocol.StatusError
		}
		upd.DateLoaned = &loaned
	}
	if job.Has("engineer") {
		ownerName, err := job.String("engineer")
		if err != nil {
			s.sendError(callbackPort, `Client laptop update job entry "engineer" must be a string.`)
			return protocol.StatusError
		}
		upd.EngineerName = &ownerName
	}

	if err := s.mutate(func() error {
		var mErr error
		laptop, mErr = s.laptops.Update(ctx, int64(id), upd)
		return mErr
	}); err != nil {
		s.sendError(callbackPort, "Failed to update laptop: "+err.Error())
		return protocol.StatusError
	}
	if laptop == nil {
		s.sendError(callbackPort, fmt.Sprintf("Laptop with id %d disappeared during the update.", id))
		return protocol.StatusError
	}

	s.logger.Info("laptop_updated", "id", id)
	s.send(callbackPort, protocol.Message{
		"status": protocol.StatusSuccess,
		"laptop": laptop.Payload(),
	})
	return protocol.StatusSuccess
}
