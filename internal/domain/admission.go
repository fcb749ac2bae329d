package domain

import (
	"context"
	"fmt"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/utils"
)

// Admit decides a registration request for (event, user, quantity):
// CONFIRMED when the requested quantity fits the remaining capacity,
// WAITLISTED otherwise. Admission of a quantity is all-or-nothing;
// there is no partial confirmation. The whole decision — duplicate
// check included — runs inside one transaction under the event row
// lock, so concurrent requests for the same event serialize and the
// capacity counter can never be double-decremented.
func (s *Service) Admit(ctx context.Context, eventID, userID uint64, quantity int) (*model.Registration, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var (
		reg     *model.Registration
		event   *model.Event
		tickets []*model.Ticket
	)
	err := s.store.Transact(ctx, func(tx Tx) error {
		// Re-initialize on retry.
		reg, tickets = nil, nil

		ev, err := tx.EventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		event = ev
		if !ev.Accepting(s.now()) {
			return ErrEventClosed
		}
		suspended, err := tx.OrgSuspended(ctx, ev.OrgID)
		if err != nil {
			return fmt.Errorf("check org suspension: %w", err)
		}
		if suspended {
			return ErrOrgSuspended
		}
		exists, err := tx.ActiveRegistrationExists(ctx, eventID, userID)
		if err != nil {
			return fmt.Errorf("check duplicate registration: %w", err)
		}
		if exists {
			return ErrAlreadyRegistered
		}

		reg = &model.Registration{
			PublicID: utils.NewRegistrationID(),
			EventID:  eventID,
			UserID:   userID,
			Quantity: quantity,
		}
		if quantity <= ev.Capacity {
			reg.Status = model.RegistrationConfirmed
			if err := tx.InsertRegistration(ctx, reg); err != nil {
				return fmt.Errorf("insert registration: %w", err)
			}
			if err := tx.AdjustCapacity(ctx, eventID, -quantity); err != nil {
				return fmt.Errorf("decrement capacity: %w", err)
			}
			if err := tx.AddAttendee(ctx, eventID, userID); err != nil {
				return fmt.Errorf("add attendee: %w", err)
			}
			issued, err := s.issueTickets(ctx, tx, reg, ev, quantity)
			if err != nil {
				return err
			}
			tickets = issued
		} else {
			reg.Status = model.RegistrationWaitlisted
			if err := tx.InsertRegistration(ctx, reg); err != nil {
				return fmt.Errorf("insert registration: %w", err)
			}
			if err := tx.WaitlistPush(ctx, eventID, reg.ID); err != nil {
				return fmt.Errorf("enqueue on waitlist: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Uint64("event_id", eventID).
		Uint64("user_id", userID).
		Str("registration_id", reg.PublicID).
		Int("quantity", quantity).
		Str("status", string(reg.Status)).
		Msg("registration admitted")

	switch reg.Status {
	case model.RegistrationConfirmed:
		s.notify(ctx, NotifyConfirmed, userID, event.Name, reg.PublicID, quantity)
		s.renderTickets(ctx, tickets)
	case model.RegistrationWaitlisted:
		s.notify(ctx, NotifyWaitlisted, userID, event.Name, reg.PublicID, quantity)
	}
	return reg, nil
}
