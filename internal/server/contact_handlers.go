package server

import (
	"context"
	"fmt"

	"fleethub/internal/models"
	"fleethub/internal/protocol"
)

const contactMissingField = `Client contact details %s job has no entry for %q`

// handleContactAdd is the one add flow with no follow-up: contact details
// always belong to an existing engineer, so there is nothing to confirm.
func (s *Server) handleContactAdd(ctx context.Context, job protocol.Message, callbackPort int) string {
	phone, err := job.String("phone_number")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(contactMissingField, "insert", "phone_number"))
		return protocol.StatusError
	}
	address, err := job.String("address")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(contactMissingField, "insert", "address"))
		return protocol.StatusError
	}
	ownerName, err := job.String("engineer")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(contactMissingField, "insert", "engineer"))
		return protocol.StatusError
	}

	if phone == "" {
		s.sendError(callbackPort, `Client contact details insert job entry "phone_number" must not be blank.`)
		return protocol.StatusError
	}

	owner, err := s.engineers.GetByName(ctx, ownerName)
	if err != nil {
		s.sendError(callbackPort, "Failed to look up engineer: "+err.Error())
		return protocol.StatusError
	}
	if owner == nil {
		s.sendError(callbackPort, fmt.Sprintf(
			"No engineer named %s exists in the database. Contact details must belong to an engineer.",
			ownerName))
		return protocol.StatusError
	}

	var contact *models.ContactDetails
	if err := s.mutate(func() error {
		var mErr error
		contact, mErr = s.contacts.Add(ctx, phone, address, owner)
		return mErr
	}); err != nil {
		s.sendError(callbackPort, "Failed to add contact details: "+err.Error())
		return protocol.StatusError
	}
	if contact == nil {
		s.sendError(callbackPort, fmt.Sprintf(
			"Contact details with phone number %s already exist in the database.\nAborted adding duplicate contact details to the database.",
			phone))
		return protocol.StatusError
	}

	s.logger.Info("contact_details_added", "engineer", ownerName)
	s.send(callbackPort, protocol.Message{
		"status": protocol.StatusSuccess,
	}.Merge(contact.Payload()))
	return protocol.StatusSuccess
}

func (s *Server) handleContactDelete(ctx context.Context, job protocol.Message, callbackPort int) string {
	ownerName, err := job.String("engineer")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(contactMissingField, "delete", "engineer"))
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
			deleted, mErr = s.contacts.DeleteByID(ctx, int64(id))
			return mErr
		}); err != nil {
			s.sendError(callbackPort, "Failed to delete contact details: "+err.Error())
			return protocol.StatusError
		}
		if !deleted {
			s.sendError(callbackPort, fmt.Sprintf(
				"No contact details with id %d exist in the database. Aborted deleting non-existent contact details.", id))
			return protocol.StatusError
		}
	} else {
		owner, err := s.engineers.GetByName(ctx, ownerName)
		if err != nil {
			s.sendError(callbackPort, "Failed to look up engineer: "+err.Error())
			return protocol.StatusError
		}
		if owner == nil {
			s.sendError(callbackPort, fmt.Sprintf("No engineer named %s exists in the database.", ownerName))
			return protocol.StatusError
		}
		if err := s.mutate(func() error {
			var mErr error
			deleted, mErr = s.contacts.DeleteByEngineerID(ctx, owner.ID)
			return mErr
		}); err != nil {
			s.sendError(callbackPort, "Failed to delete contact details: "+err.Error())
			return protocol.StatusError
		}
		if !deleted {
			s.sendError(callbackPort, fmt.Sprintf(
				"Engineer %s has no contact details in the database. Aborted deleting non-existent contact details.",
				ownerName))
			return protocol.StatusError
		}
	}

	s.logger.Info("contact_details_deleted", "engineer", ownerName)
	s.send(callbackPort, protocol.Message{"status": protocol.StatusSuccess})
	return protocol.StatusSuccess
}

func (s *Server) handleContactRead(ctx context.Context, job protocol.Message, callbackPort int) string {
	ownerName, err := job.String("engineer")
	if err != nil {
		s.sendError(callbackPort, fmt.Sprintf(contactMissingField, "read", "engineer"))
		return protocol.StatusError
	}

	var contacts []models.ContactDetails
	switch ownerName {
	case "":
		id, err := job.Int("id")
		if err != nil {
			s.sendError(callbackPort,
				`Client left the engineer name blank, but did not provide an entry for "id".`)
			return protocol.StatusError
		}
		contact, err := s.contacts.GetByID(ctx, int64(id))
		if err != nil {
			s.sendError(callbackPort, "Failed to read contact details: "+err.Error())
			return protocol.StatusError
		}
		if contact == nil {
			s.sendError(callbackPort, fmt.Sprintf("No contact details with id %d exist in the database.", id))
			return protocol.StatusError
		}
		contacts = []models.ContactDetails{*contact}
	case "all":
		contacts, err = s.contacts.GetAll(ctx)
		if err != nil {
			s.sendError(callbackPort, "Failed to read contact details: "+err.Error())
			return protocol.StatusError
		}
	default:
		owner, err := s.engineers.GetByName(ctx, ownerName)
		if err != nil {
			s.sendError(callbackPort, "Failed to look up engineer: "+err.Error())
			return protocol.StatusError
		}
		if owner == nil {
			s.sendError(callbackPort, fmt.Sprintf("No engineer named %s exists in the database.", ownerName))
			return protocol.StatusError
		}
		contacts, err = s.contacts.GetByEngineerID(ctx, owner.ID)
		if err != nil {
			s.sendError(callbackPort, "Failed to read contact details: "+err.Error())
			return protocol.StatusError
		}
	}

	payloads := make([]map[string]any, len(contacts))
	for i := range contacts {
		payloads[i] = contacts[i].Payload()
	}
	s.send(callbackPort, protocol.Message{
		"status":          protocol.StatusSuccess,
		"contact_details": payloads,
	})
	return protocol.StatusSuccess
}
