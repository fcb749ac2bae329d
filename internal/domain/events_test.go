package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/event-registration/internal/model"
)

func TestAdjustEventCapacityIncrease(t *testing.T) {
	t.Parallel()
	svc, store, fu := newTestService(5)
	ctx := context.Background()

	ev, err := svc.AdjustEventCapacity(ctx, 1, +3, 10, false)
	if err != nil {
		t.Fatalf("AdjustEventCapacity: %v", err)
	}
	if ev.Capacity != 8 {
		t.Errorf("returned capacity: got %d, want 8", ev.Capacity)
	}
	stored, _ := store.GetEvent(ctx, 1)
	if stored.Capacity != 8 {
		t.Errorf("stored capacity: got %d, want 8", stored.Capacity)
	}
	if fu.promotionCount() != 1 {
		t.Errorf("increase should request one promotion run, got %d", fu.promotionCount())
	}
}

func TestAdjustEventCapacityDecrease(t *testing.T) {
	t.Parallel()
	svc, store, fu := newTestService(5)
	ctx := context.Background()

	ev, err := svc.AdjustEventCapacity(ctx, 1, -2, 10, false)
	if err != nil {
		t.Fatalf("AdjustEventCapacity: %v", err)
	}
	if ev.Capacity != 3 {
		t.Errorf("capacity: got %d, want 3", ev.Capacity)
	}
	if fu.promotionCount() != 0 {
		t.Errorf("decrease must not request promotion, got %d", fu.promotionCount())
	}

	// Only free seats may be removed.
	if _, err := svc.AdjustEventCapacity(ctx, 1, -4, 10, false); !errors.Is(err, ErrEventFull) {
		t.Fatalf("over-decrease: got %v, want ErrEventFull", err)
	}
	stored, _ := store.GetEvent(ctx, 1)
	if stored.Capacity != 3 {
		t.Errorf("capacity after failed decrease: got %d, want 3", stored.Capacity)
	}
}

func TestAdjustEventCapacityNeverTakesHeldSeats(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(5)
	ctx := context.Background()

	if _, err := svc.Admit(ctx, 1, 100, 4); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	// 1 seat free; removing 2 would dip into confirmed seats.
	if _, err := svc.AdjustEventCapacity(ctx, 1, -2, 10, false); !errors.Is(err, ErrEventFull) {
		t.Fatalf("error: got %v, want ErrEventFull", err)
	}
	ev, _ := store.GetEvent(ctx, 1)
	if ev.Capacity != 1 {
		t.Errorf("capacity: got %d, want 1", ev.Capacity)
	}
}

func TestAdjustEventCapacityAuthorization(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(5)
	ctx := context.Background()

	if _, err := svc.AdjustEventCapacity(ctx, 1, +1, 999, false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger: got %v, want ErrForbidden", err)
	}
	if _, err := svc.AdjustEventCapacity(ctx, 1, +1, 999, true); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if _, err := svc.AdjustEventCapacity(ctx, 1, 0, 10, false); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("zero delta: got %v, want ErrInvalidQuantity", err)
	}
}

func TestCancelEventVoidsEverything(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(3)
	ctx := context.Background()

	confirmed, err := svc.Admit(ctx, 1, 100, 2)
	if err != nil {
		t.Fatalf("Admit confirmed: %v", err)
	}
	waitlisted, err := svc.Admit(ctx, 1, 101, 2)
	if err != nil {
		t.Fatalf("Admit waitlisted: %v", err)
	}
	if waitlisted.Status != model.RegistrationWaitlisted {
		t.Fatalf("seed should be waitlisted, got %s", waitlisted.Status)
	}

	if err := svc.CancelEvent(ctx, 1, 10, false); err != nil {
		t.Fatalf("CancelEvent: %v", err)
	}

	ev, _ := store.GetEvent(ctx, 1)
	if ev.Status != model.EventCancelled {
		t.Errorf("event status: got %s, want CANCELLED", ev.Status)
	}
	for _, id := range []uint64{confirmed.ID, waitlisted.ID} {
		r, _ := store.GetRegistration(ctx, id)
		if r.Status != model.RegistrationCancelled {
			t.Errorf("registration %d: got %s, want CANCELLED", id, r.Status)
		}
	}
	tickets, _ := store.ListTicketsByRegistration(ctx, confirmed.ID)
	for _, tk := range tickets {
		if tk.Status != model.TicketCancelled {
			t.Errorf("ticket %d: got %s, want CANCELLED", tk.ID, tk.Status)
		}
	}

	// A cancelled event admits nobody and promotes nobody.
	if _, err := svc.Admit(ctx, 1, 102, 1); !errors.Is(err, ErrEventClosed) {
		t.Errorf("admit after cancel: got %v, want ErrEventClosed", err)
	}
	promoted, err := svc.PromoteWaitlist(ctx, 1)
	if err != nil {
		t.Fatalf("PromoteWaitlist: %v", err)
	}
	if len(promoted) != 0 {
		t.Errorf("promotions off a cancelled event: got %d, want 0", len(promoted))
	}
}

func TestCancelEventTwiceFails(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(3)
	ctx := context.Background()

	if err := svc.CancelEvent(ctx, 1, 10, false); err != nil {
		t.Fatalf("CancelEvent: %v", err)
	}
	if err := svc.CancelEvent(ctx, 1, 10, false); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("second cancel: got %v, want ErrAlreadyCancelled", err)
	}
}

func TestCancelEventAuthorization(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(3)
	ctx := context.Background()

	if err := svc.CancelEvent(ctx, 1, 999, false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger: got %v, want ErrForbidden", err)
	}
	if err := svc.CancelEvent(ctx, 1, 999, true); err != nil {
		t.Fatalf("admin: %v", err)
	}
}
