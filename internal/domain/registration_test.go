package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/event-registration/internal/model"
)

func TestUpdateQuantityGrow(t *testing.T) {
	t.Parallel()
	svc, store, fu := newTestService(10)
	ctx := context.Background()

	reg, err := svc.Admit(ctx, 1, 100, 2)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	updated, err := svc.UpdateQuantity(ctx, reg.ID, 5, 100, false)
	if err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if updated.Quantity != 5 || updated.TicketsIssued != 5 {
		t.Errorf("registration: quantity %d issued %d, want 5/5", updated.Quantity, updated.TicketsIssued)
	}

	ev, _ := store.GetEvent(ctx, 1)
	if ev.Capacity != 5 {
		t.Errorf("capacity: got %d, want 5", ev.Capacity)
	}
	tickets, _ := store.ListTicketsByRegistration(ctx, reg.ID)
	if len(tickets) != 5 {
		t.Errorf("tickets: got %d, want 5", len(tickets))
	}
	if fu.promotionCount() != 0 {
		t.Errorf("growth must not request promotion, got %d runs", fu.promotionCount())
	}
}

func TestUpdateQuantityGrowBeyondCapacity(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(3)
	ctx := context.Background()

	reg, err := svc.Admit(ctx, 1, 100, 2)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	// 1 seat free, growing by 2 must fail and leave everything intact.
	if _, err := svc.UpdateQuantity(ctx, reg.ID, 4, 100, false); !errors.Is(err, ErrEventFull) {
		t.Fatalf("error: got %v, want ErrEventFull", err)
	}

	r, _ := store.GetRegistration(ctx, reg.ID)
	if r.Quantity != 2 || r.TicketsIssued != 2 {
		t.Errorf("registration changed on failed grow: quantity %d issued %d", r.Quantity, r.TicketsIssued)
	}
	ev, _ := store.GetEvent(ctx, 1)
	if ev.Capacity != 1 {
		t.Errorf("capacity: got %d, want 1", ev.Capacity)
	}
}

func TestUpdateQuantityShrink(t *testing.T) {
	t.Parallel()
	svc, store, fu := newTestService(10)
	ctx := context.Background()

	reg, err := svc.Admit(ctx, 1, 100, 5)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	before, _ := store.ListTicketsByRegistration(ctx, reg.ID)

	updated, err := svc.UpdateQuantity(ctx, reg.ID, 2, 100, false)
	if err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if updated.Quantity != 2 || updated.TicketsIssued != 2 {
		t.Errorf("registration: quantity %d issued %d, want 2/2", updated.Quantity, updated.TicketsIssued)
	}

	ev, _ := store.GetEvent(ctx, 1)
	if ev.Capacity != 8 {
		t.Errorf("capacity: got %d, want 8", ev.Capacity)
	}
	after, _ := store.ListTicketsByRegistration(ctx, reg.ID)
	if len(after) != 2 {
		t.Fatalf("tickets: got %d, want 2", len(after))
	}
	// The two oldest tickets survive the shrink.
	if after[0].ID != before[0].ID || after[1].ID != before[1].ID {
		t.Errorf("shrink removed the wrong tickets: kept %d,%d want %d,%d",
			after[0].ID, after[1].ID, before[0].ID, before[1].ID)
	}
	if fu.promotionCount() != 1 {
		t.Errorf("shrink should request one promotion run, got %d", fu.promotionCount())
	}
}

func TestUpdateQuantityWaitlistedIsFree(t *testing.T) {
	t.Parallel()
	svc, store, fu := newTestService(0)
	ctx := context.Background()

	reg, err := svc.Admit(ctx, 1, 100, 2)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	updated, err := svc.UpdateQuantity(ctx, reg.ID, 7, 100, false)
	if err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if updated.Status != model.RegistrationWaitlisted || updated.Quantity != 7 {
		t.Errorf("registration: status %s quantity %d, want WAITLISTED/7", updated.Status, updated.Quantity)
	}
	ev, _ := store.GetEvent(ctx, 1)
	if ev.Capacity != 0 {
		t.Errorf("waitlisted update must not touch capacity, got %d", ev.Capacity)
	}
	if fu.promotionCount() != 0 {
		t.Errorf("waitlisted update must not request promotion, got %d", fu.promotionCount())
	}
}

func TestUpdateQuantityNoChange(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(10)
	ctx := context.Background()

	reg, err := svc.Admit(ctx, 1, 100, 3)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	updated, err := svc.UpdateQuantity(ctx, reg.ID, 3, 100, false)
	if err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if updated.Quantity != 3 {
		t.Errorf("quantity: got %d, want 3", updated.Quantity)
	}
	ev, _ := store.GetEvent(ctx, 1)
	if ev.Capacity != 7 {
		t.Errorf("capacity: got %d, want 7", ev.Capacity)
	}
}

func TestUpdateQuantityRejectsInvalid(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(10)
	ctx := context.Background()

	reg, err := svc.Admit(ctx, 1, 100, 3)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	for _, q := range []int{0, -1} {
		if _, err := svc.UpdateQuantity(ctx, reg.ID, q, 100, false); !errors.Is(err, ErrInvalidQuantity) {
			t.Errorf("quantity %d: got %v, want ErrInvalidQuantity", q, err)
		}
	}
}

func TestUpdateQuantityForbiddenForStranger(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(10)
	ctx := context.Background()

	reg, err := svc.Admit(ctx, 1, 100, 3)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if _, err := svc.UpdateQuantity(ctx, reg.ID, 4, 101, false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger update: got %v, want ErrForbidden", err)
	}
	if _, err := svc.UpdateQuantity(ctx, reg.ID, 4, 101, true); err != nil {
		t.Fatalf("admin update: %v", err)
	}
}

func TestUpdateQuantityCancelledRegistration(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(10)
	ctx := context.Background()

	reg, err := svc.Admit(ctx, 1, 100, 3)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if err := svc.Cancel(ctx, reg.ID, 100, false); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := svc.UpdateQuantity(ctx, reg.ID, 2, 100, false); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("error: got %v, want ErrAlreadyCancelled", err)
	}
}

func TestCancelReleasesCapacityAndTickets(t *testing.T) {
	t.Parallel()
	svc, store, fu := newTestService(10)
	ctx := context.Background()

	reg, err := svc.Admit(ctx, 1, 100, 4)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if err := svc.Cancel(ctx, reg.ID, 100, false); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	r, _ := store.GetRegistration(ctx, reg.ID)
	if r.Status != model.RegistrationCancelled || r.TicketsIssued != 0 {
		t.Errorf("registration: status %s issued %d, want CANCELLED/0", r.Status, r.TicketsIssued)
	}
	ev, _ := store.GetEvent(ctx, 1)
	if ev.Capacity != 10 {
		t.Errorf("capacity: got %d, want 10", ev.Capacity)
	}
	tickets, _ := store.ListTicketsByRegistration(ctx, reg.ID)
	if len(tickets) != 0 {
		t.Errorf("tickets should be deleted, got %d", len(tickets))
	}
	if fu.promotionCount() != 1 {
		t.Errorf("cancel should request one promotion run, got %d", fu.promotionCount())
	}
	kinds := fu.notificationKinds()
	if kinds[len(kinds)-1] != NotifyCancelled {
		t.Errorf("last notification: got %s, want cancelled", kinds[len(kinds)-1])
	}
}

func TestCancelWaitlistedLeavesQueue(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(0)
	ctx := context.Background()

	reg, err := svc.Admit(ctx, 1, 100, 2)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if err := svc.Cancel(ctx, reg.ID, 100, false); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	r, _ := store.GetRegistration(ctx, reg.ID)
	if r.Status != model.RegistrationCancelled {
		t.Errorf("status: got %s, want CANCELLED", r.Status)
	}
	ev, _ := store.GetEvent(ctx, 1)
	if ev.Capacity != 0 {
		t.Errorf("waitlisted cancel must not add capacity, got %d", ev.Capacity)
	}
}

func TestCancelTwiceFails(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(10)
	ctx := context.Background()

	reg, err := svc.Admit(ctx, 1, 100, 2)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if err := svc.Cancel(ctx, reg.ID, 100, false); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := svc.Cancel(ctx, reg.ID, 100, false); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("second cancel: got %v, want ErrAlreadyCancelled", err)
	}
}

func TestDeleteIsAdminOnly(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(10)
	ctx := context.Background()

	reg, err := svc.Admit(ctx, 1, 100, 2)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if err := svc.Delete(ctx, reg.ID, 100, false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-admin delete: got %v, want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, reg.ID, 1, true); err != nil {
		t.Fatalf("admin delete: %v", err)
	}

	if _, err := store.GetRegistration(ctx, reg.ID); !errors.Is(err, ErrRegistrationNotFound) {
		t.Errorf("registration should be gone, got %v", err)
	}
	ev, _ := store.GetEvent(ctx, 1)
	if ev.Capacity != 10 {
		t.Errorf("capacity: got %d, want 10", ev.Capacity)
	}
	tickets, _ := store.ListTicketsByRegistration(ctx, reg.ID)
	if len(tickets) != 0 {
		t.Errorf("tickets should be deleted, got %d", len(tickets))
	}
}

func TestCancelUnknownRegistration(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(10)

	if err := svc.Cancel(context.Background(), 42, 100, false); !errors.Is(err, ErrRegistrationNotFound) {
		t.Fatalf("error: got %v, want ErrRegistrationNotFound", err)
	}
}
