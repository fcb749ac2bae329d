package domain

import (
	"context"
	"fmt"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/utils"
)

// issueTickets creates n ticket records bound to reg inside tx and
// advances the registration's issued counter. Each ticket gets a
// fresh opaque code and expires when the event ends. Callers must
// have verified that n seats are actually available on the
// registration.
func (s *Service) issueTickets(ctx context.Context, tx Tx, reg *model.Registration, ev *model.Event, n int) ([]*model.Ticket, error) {
	expires := ev.EndsAt
	tickets := make([]*model.Ticket, 0, n)
	for i := 0; i < n; i++ {
		tickets = append(tickets, &model.Ticket{
			RegistrationID: reg.ID,
			EventID:        ev.ID,
			UserID:         reg.UserID,
			Status:         model.TicketValid,
			Code:           utils.NewTicketCode(),
			QRExpiresAt:    &expires,
		})
	}
	if err := tx.InsertTickets(ctx, tickets); err != nil {
		return nil, fmt.Errorf("insert tickets: %w", err)
	}
	reg.TicketsIssued += n
	if err := tx.SetRegistrationQuantity(ctx, reg.ID, reg.Quantity, reg.TicketsIssued); err != nil {
		return nil, fmt.Errorf("update issued counter: %w", err)
	}
	return tickets, nil
}

// IssueTickets materializes n additional tickets for an already
// confirmed registration. The issued counter is re-read under the
// registration row lock so two concurrent calls cannot overshoot the
// registration's quantity.
func (s *Service) IssueTickets(ctx context.Context, regID uint64, n int, callerID uint64, isAdmin bool) ([]*model.Ticket, error) {
	if n < 1 {
		return nil, ErrInvalidQuantity
	}

	var tickets []*model.Ticket
	err := s.store.Transact(ctx, func(tx Tx) error {
		tickets = nil

		reg, err := tx.RegistrationForUpdate(ctx, regID)
		if err != nil {
			return err
		}
		if reg.UserID != callerID && !isAdmin {
			return ErrForbidden
		}
		if reg.Status != model.RegistrationConfirmed {
			return ErrNotConfirmed
		}
		if reg.TicketsIssued >= reg.Quantity {
			return ErrAlreadyIssued
		}
		if reg.TicketsIssued+n > reg.Quantity {
			return ErrQuantityExceeds
		}
		ev, err := tx.EventForUpdate(ctx, reg.EventID)
		if err != nil {
			return err
		}
		tickets, err = s.issueTickets(ctx, tx, reg, ev, n)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint64("registration_id", regID).Int("count", n).Msg("tickets issued")
	s.renderTickets(ctx, tickets)
	return tickets, nil
}

// CancelTicket voids a single VALID ticket and gives its seat back to
// the event's capacity. The owning registration shrinks by one seat;
// when its last seat is cancelled the registration itself becomes
// CANCELLED. Promotion runs as a follow-up after commit since the
// freed seat is only visible once the transaction lands.
func (s *Service) CancelTicket(ctx context.Context, ticketID uint64, callerID uint64, isAdmin bool) error {
	var eventID uint64
	err := s.store.Transact(ctx, func(tx Tx) error {
		t, err := tx.TicketForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if t.UserID != callerID && !isAdmin {
			return ErrForbidden
		}
		switch t.Status {
		case model.TicketUsed:
			return ErrTicketUsed
		case model.TicketCancelled:
			return ErrAlreadyCancelled
		}
		if err := tx.SetTicketStatus(ctx, ticketID, model.TicketCancelled); err != nil {
			return fmt.Errorf("cancel ticket: %w", err)
		}

		reg, err := tx.RegistrationForUpdate(ctx, t.RegistrationID)
		if err != nil {
			return err
		}
		if _, err := tx.EventForUpdate(ctx, t.EventID); err != nil {
			return err
		}
		if err := tx.AdjustCapacity(ctx, t.EventID, +1); err != nil {
			return fmt.Errorf("release capacity: %w", err)
		}
		quantity := reg.Quantity - 1
		issued := reg.TicketsIssued - 1
		if issued < 0 {
			issued = 0
		}
		if quantity <= 0 {
			if err := tx.SetRegistrationQuantity(ctx, reg.ID, 0, 0); err != nil {
				return fmt.Errorf("zero registration: %w", err)
			}
			if err := tx.SetRegistrationStatus(ctx, reg.ID, model.RegistrationCancelled); err != nil {
				return fmt.Errorf("cancel emptied registration: %w", err)
			}
			if err := tx.RemoveAttendee(ctx, t.EventID, reg.UserID); err != nil {
				return fmt.Errorf("remove attendee: %w", err)
			}
		} else if err := tx.SetRegistrationQuantity(ctx, reg.ID, quantity, issued); err != nil {
			return fmt.Errorf("shrink registration: %w", err)
		}
		eventID = t.EventID
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Uint64("ticket_id", ticketID).Uint64("event_id", eventID).Msg("ticket cancelled")
	s.promotionNeeded(ctx, eventID)
	return nil
}

// Scan validates a ticket by its opaque code and marks it USED. The
// transition is one-way: re-scanning a USED ticket is rejected with a
// distinct error and logged with the prior scan's metadata, since a
// second presentation of the same code is a security-relevant event.
// An unscanned ticket past its expiry is rejected as expired.
func (s *Service) Scan(ctx context.Context, code string, scannedBy uint64) (*model.Ticket, error) {
	var ticket *model.Ticket
	err := s.store.Transact(ctx, func(tx Tx) error {
		t, err := tx.TicketForUpdateByCode(ctx, code)
		if err != nil {
			return err
		}
		if err := s.markUsed(ctx, tx, t, scannedBy); err != nil {
			return err
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// MarkUsed marks a ticket USED by its internal id. Reserved for
// administrative correction; scanners only ever see codes.
func (s *Service) MarkUsed(ctx context.Context, ticketID uint64, scannedBy uint64) (*model.Ticket, error) {
	var ticket *model.Ticket
	err := s.store.Transact(ctx, func(tx Tx) error {
		t, err := tx.TicketForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if err := s.markUsed(ctx, tx, t, scannedBy); err != nil {
			return err
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// markUsed applies the VALID→USED transition to a locked ticket.
func (s *Service) markUsed(ctx context.Context, tx Tx, t *model.Ticket, scannedBy uint64) error {
	now := s.now().UTC()
	switch t.Status {
	case model.TicketUsed:
		evt := s.log.Warn().
			Uint64("ticket_id", t.ID).
			Uint64("scanned_by", scannedBy)
		if t.ScannedAt != nil {
			evt = evt.Time("prior_scan_at", *t.ScannedAt)
		}
		if t.ScannedBy != nil {
			evt = evt.Uint64("prior_scan_by", *t.ScannedBy)
		}
		evt.Msg("rejected re-scan of used ticket")
		return ErrTicketUsed
	case model.TicketCancelled:
		return ErrTicketCancelled
	}
	if t.QRExpiresAt != nil && now.After(*t.QRExpiresAt) {
		return ErrTicketExpired
	}
	if err := tx.MarkTicketUsed(ctx, t.ID, scannedBy, now); err != nil {
		return fmt.Errorf("mark ticket used: %w", err)
	}
	t.Status = model.TicketUsed
	t.ScannedAt = &now
	scanner := scannedBy
	t.ScannedBy = &scanner
	return nil
}
