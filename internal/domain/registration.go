package domain

import (
	"context"
	"fmt"

	"github.com/iliyamo/event-registration/internal/model"
)

// UpdateQuantity changes the seat count of a registration.
//
// For a CONFIRMED registration a growth of delta seats requires that
// much free capacity right now (checked under the event row lock,
// otherwise ErrEventFull) and issues delta new tickets; a shrink
// deletes the trailing |delta| tickets and releases the seats back to
// the ledger, with promotion running as a follow-up once the shrink
// has committed. A WAITLISTED registration may change quantity freely
// since it holds no capacity.
func (s *Service) UpdateQuantity(ctx context.Context, regID uint64, newQuantity int, callerID uint64, isAdmin bool) (*model.Registration, error) {
	if newQuantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var (
		reg     *model.Registration
		tickets []*model.Ticket
		freed   bool
		eventID uint64
	)
	err := s.store.Transact(ctx, func(tx Tx) error {
		reg, tickets, freed = nil, nil, false

		r, err := tx.RegistrationForUpdate(ctx, regID)
		if err != nil {
			return err
		}
		if r.UserID != callerID && !isAdmin {
			return ErrForbidden
		}
		if r.Status == model.RegistrationCancelled {
			return ErrAlreadyCancelled
		}
		eventID = r.EventID
		delta := newQuantity - r.Quantity
		if delta == 0 {
			reg = r
			return nil
		}

		switch r.Status {
		case model.RegistrationWaitlisted:
			// No capacity held; just record the new quantity.
			if err := tx.SetRegistrationQuantity(ctx, r.ID, newQuantity, r.TicketsIssued); err != nil {
				return fmt.Errorf("update waitlisted quantity: %w", err)
			}
			r.Quantity = newQuantity

		case model.RegistrationConfirmed:
			ev, err := tx.EventForUpdate(ctx, r.EventID)
			if err != nil {
				return err
			}
			if delta > 0 {
				if delta > ev.Capacity {
					return ErrEventFull
				}
				if err := tx.AdjustCapacity(ctx, r.EventID, -delta); err != nil {
					return fmt.Errorf("decrement capacity: %w", err)
				}
				r.Quantity = newQuantity
				if err := tx.SetRegistrationQuantity(ctx, r.ID, newQuantity, r.TicketsIssued); err != nil {
					return fmt.Errorf("grow registration: %w", err)
				}
				issued, err := s.issueTickets(ctx, tx, r, ev, delta)
				if err != nil {
					return err
				}
				tickets = issued
			} else {
				drop := -delta
				if err := tx.DeleteTrailingTickets(ctx, r.ID, drop); err != nil {
					return fmt.Errorf("delete trailing tickets: %w", err)
				}
				if err := tx.AdjustCapacity(ctx, r.EventID, drop); err != nil {
					return fmt.Errorf("release capacity: %w", err)
				}
				issued := r.TicketsIssued - drop
				if issued < 0 {
					issued = 0
				}
				r.Quantity = newQuantity
				r.TicketsIssued = issued
				if err := tx.SetRegistrationQuantity(ctx, r.ID, newQuantity, issued); err != nil {
					return fmt.Errorf("shrink registration: %w", err)
				}
				freed = true
			}
		}
		reg = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("registration_id", reg.PublicID).
		Int("quantity", reg.Quantity).
		Msg("registration quantity updated")
	s.renderTickets(ctx, tickets)
	if freed {
		// Promotion must observe the committed capacity, never run
		// atomically with the shrink.
		s.promotionNeeded(ctx, eventID)
	}
	return reg, nil
}

// Cancel transitions a registration to CANCELLED, releases any held
// capacity, removes the user from the event's attendee set, deletes
// all associated tickets and schedules a promotion run. Cancelling an
// already-cancelled registration fails with ErrAlreadyCancelled.
func (s *Service) Cancel(ctx context.Context, regID uint64, callerID uint64, isAdmin bool) error {
	eventID, err := s.teardown(ctx, regID, callerID, isAdmin, false)
	if err != nil {
		return err
	}
	s.promotionNeeded(ctx, eventID)
	return nil
}

// Delete hard-deletes a registration and its tickets as an
// administrative cascade. Capacity handling matches Cancel.
func (s *Service) Delete(ctx context.Context, regID uint64, callerID uint64, isAdmin bool) error {
	if !isAdmin {
		return ErrForbidden
	}
	eventID, err := s.teardown(ctx, regID, callerID, isAdmin, true)
	if err != nil {
		return err
	}
	s.promotionNeeded(ctx, eventID)
	return nil
}

// teardown is the shared cancel/delete transaction. A CONFIRMED
// registration gives back exactly the capacity it held; a WAITLISTED
// one only leaves the queue. Tickets are destroyed in both cases.
func (s *Service) teardown(ctx context.Context, regID, callerID uint64, isAdmin, hardDelete bool) (uint64, error) {
	var (
		eventID uint64
		userID  uint64
		public  string
		evName  string
		qty     int
	)
	err := s.store.Transact(ctx, func(tx Tx) error {
		r, err := tx.RegistrationForUpdate(ctx, regID)
		if err != nil {
			return err
		}
		if r.UserID != callerID && !isAdmin {
			return ErrForbidden
		}
		if r.Status == model.RegistrationCancelled && !hardDelete {
			return ErrAlreadyCancelled
		}
		ev, err := tx.EventForUpdate(ctx, r.EventID)
		if err != nil {
			return err
		}
		eventID, userID, public, evName, qty = r.EventID, r.UserID, r.PublicID, ev.Name, r.Quantity

		switch r.Status {
		case model.RegistrationConfirmed:
			if err := tx.AdjustCapacity(ctx, r.EventID, r.Quantity); err != nil {
				return fmt.Errorf("release capacity: %w", err)
			}
			if err := tx.RemoveAttendee(ctx, r.EventID, r.UserID); err != nil {
				return fmt.Errorf("remove attendee: %w", err)
			}
		case model.RegistrationWaitlisted:
			if err := tx.WaitlistRemove(ctx, r.EventID, r.ID); err != nil {
				return fmt.Errorf("leave waitlist: %w", err)
			}
		}
		if err := tx.DeleteTicketsByRegistration(ctx, r.ID); err != nil {
			return fmt.Errorf("delete tickets: %w", err)
		}
		if hardDelete {
			if err := tx.DeleteRegistration(ctx, r.ID); err != nil {
				return fmt.Errorf("delete registration: %w", err)
			}
			return nil
		}
		if err := tx.SetRegistrationQuantity(ctx, r.ID, r.Quantity, 0); err != nil {
			return fmt.Errorf("reset issued counter: %w", err)
		}
		if err := tx.SetRegistrationStatus(ctx, r.ID, model.RegistrationCancelled); err != nil {
			return fmt.Errorf("cancel registration: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info().
		Str("registration_id", public).
		Uint64("event_id", eventID).
		Bool("hard_delete", hardDelete).
		Msg("registration torn down")
	s.notify(ctx, NotifyCancelled, userID, evName, public, qty)
	return eventID, nil
}
