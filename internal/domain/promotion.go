package domain

import (
	"context"
	"fmt"

	"github.com/iliyamo/event-registration/internal/model"
)

// PromoteWaitlist drains the event's FIFO waitlist into the capacity
// freed since the last run. The policy is FIFO-with-skip: a head
// entry whose quantity does not fit the remaining capacity is rotated
// to the tail so smaller entries behind it can still be seated. This
// deliberately allows a large waitlisted quantity to be overtaken
// indefinitely; the fairness question is recorded in DESIGN.md rather
// than resolved here.
//
// The entire drain runs in one transaction under the event row lock,
// so concurrent invocations for the same event serialize and freed
// capacity is never allocated twice. Termination is guaranteed: one
// full rotation of the queue without seating anyone halts the loop.
// An empty result is a normal outcome, not an error.
func (s *Service) PromoteWaitlist(ctx context.Context, eventID uint64) ([]Promotion, error) {
	var (
		promotions []Promotion
		event      *model.Event
		issued     []*model.Ticket
	)
	err := s.store.Transact(ctx, func(tx Tx) error {
		promotions, issued = nil, nil

		ev, err := tx.EventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		event = ev
		capacity := ev.Capacity
		rotations := 0
		for capacity > 0 {
			size, err := tx.WaitlistSize(ctx, eventID)
			if err != nil {
				return fmt.Errorf("waitlist size: %w", err)
			}
			if size == 0 || rotations >= size {
				// Empty queue, or a full pass made no progress.
				break
			}
			head, err := tx.WaitlistFront(ctx, eventID)
			if err != nil {
				return fmt.Errorf("waitlist front: %w", err)
			}
			if head.Quantity > capacity {
				if err := tx.WaitlistRotate(ctx, eventID); err != nil {
					return fmt.Errorf("rotate waitlist head: %w", err)
				}
				rotations++
				continue
			}

			if err := tx.WaitlistRemove(ctx, eventID, head.ID); err != nil {
				return fmt.Errorf("pop waitlist head: %w", err)
			}
			if err := tx.SetRegistrationStatus(ctx, head.ID, model.RegistrationConfirmed); err != nil {
				return fmt.Errorf("confirm registration: %w", err)
			}
			if err := tx.AdjustCapacity(ctx, eventID, -head.Quantity); err != nil {
				return fmt.Errorf("decrement capacity: %w", err)
			}
			capacity -= head.Quantity
			if err := tx.AddAttendee(ctx, eventID, head.UserID); err != nil {
				return fmt.Errorf("add attendee: %w", err)
			}
			head.Status = model.RegistrationConfirmed
			tickets, err := s.issueTickets(ctx, tx, head, ev, head.Quantity)
			if err != nil {
				return err
			}
			issued = append(issued, tickets...)
			promotions = append(promotions, Promotion{
				RegistrationID: head.ID,
				PublicID:       head.PublicID,
				UserID:         head.UserID,
				Quantity:       head.Quantity,
			})
			rotations = 0
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(promotions) > 0 {
		s.log.Info().
			Uint64("event_id", eventID).
			Int("promoted", len(promotions)).
			Msg("waitlist promotion completed")
	}
	for _, p := range promotions {
		s.notify(ctx, NotifyPromoted, p.UserID, event.Name, p.PublicID, p.Quantity)
	}
	s.renderTickets(ctx, issued)
	return promotions, nil
}
