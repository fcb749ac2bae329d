package domain

import (
	"context"
	"fmt"

	"github.com/iliyamo/event-registration/internal/model"
)

// AdjustEventCapacity applies a signed delta to the event's remaining
// capacity. Only the owning organizer or an admin may do this. An
// increase schedules a promotion run after commit so waitlisted
// registrations can claim the new seats; a decrease may only consume
// seats that are currently free, never ones already held by confirmed
// registrations.
func (s *Service) AdjustEventCapacity(ctx context.Context, eventID uint64, delta int, callerID uint64, isAdmin bool) (*model.Event, error) {
	if delta == 0 {
		return nil, ErrInvalidQuantity
	}

	var event *model.Event
	err := s.store.Transact(ctx, func(tx Tx) error {
		ev, err := tx.EventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.OwnerID != callerID && !isAdmin {
			return ErrForbidden
		}
		if delta < 0 && ev.Capacity+delta < 0 {
			return ErrEventFull
		}
		if err := tx.AdjustCapacity(ctx, eventID, delta); err != nil {
			return fmt.Errorf("adjust capacity: %w", err)
		}
		ev.Capacity += delta
		event = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Uint64("event_id", eventID).
		Int("delta", delta).
		Int("capacity", event.Capacity).
		Msg("event capacity adjusted")
	if delta > 0 {
		s.promotionNeeded(ctx, eventID)
	}
	return event, nil
}

// CancelEvent marks the event CANCELLED and voids every ticket issued
// for it. Registrations transition to CANCELLED as well; nobody is
// promoted off a cancelled event's waitlist.
func (s *Service) CancelEvent(ctx context.Context, eventID uint64, callerID uint64, isAdmin bool) error {
	err := s.store.Transact(ctx, func(tx Tx) error {
		ev, err := tx.EventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.OwnerID != callerID && !isAdmin {
			return ErrForbidden
		}
		if ev.Status == model.EventCancelled {
			return ErrAlreadyCancelled
		}
		if err := tx.SetEventStatus(ctx, eventID, model.EventCancelled); err != nil {
			return fmt.Errorf("cancel event: %w", err)
		}
		if err := tx.CancelTicketsByEvent(ctx, eventID); err != nil {
			return fmt.Errorf("void event tickets: %w", err)
		}
		regs, err := tx.ListRegistrationsByEvent(ctx, eventID)
		if err != nil {
			return fmt.Errorf("list registrations: %w", err)
		}
		for i := range regs {
			r := &regs[i]
			if r.Status == model.RegistrationCancelled {
				continue
			}
			if r.Status == model.RegistrationWaitlisted {
				if err := tx.WaitlistRemove(ctx, eventID, r.ID); err != nil {
					return fmt.Errorf("clear waitlist: %w", err)
				}
			}
			if err := tx.SetRegistrationQuantity(ctx, r.ID, r.Quantity, 0); err != nil {
				return fmt.Errorf("reset issued counter: %w", err)
			}
			if err := tx.SetRegistrationStatus(ctx, r.ID, model.RegistrationCancelled); err != nil {
				return fmt.Errorf("cancel registration: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Uint64("event_id", eventID).Msg("event cancelled")
	return nil
}
