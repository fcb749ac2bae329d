package domain

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/event-registration/internal/model"
)

// memStore is an in-memory Store used by the domain tests. A single
// mutex serializes transactions, standing in for the event row lock,
// and a pre-transaction snapshot provides rollback so failed
// operations leave no partial writes, just like the SQL store.
type memStore struct {
	mu sync.Mutex

	events    map[uint64]model.Event
	orgs      map[uint64]bool // id -> suspended
	regs      map[uint64]model.Registration
	tickets   map[uint64]model.Ticket
	waitlists map[uint64][]uint64 // eventID -> registration ids in order
	attendees map[uint64]map[uint64]bool
	emails    map[uint64]string

	nextRegID    uint64
	nextTicketID uint64
}

func newMemStore() *memStore {
	return &memStore{
		events:    make(map[uint64]model.Event),
		orgs:      make(map[uint64]bool),
		regs:      make(map[uint64]model.Registration),
		tickets:   make(map[uint64]model.Ticket),
		waitlists: make(map[uint64][]uint64),
		attendees: make(map[uint64]map[uint64]bool),
		emails:    make(map[uint64]string),
	}
}

func (m *memStore) addEvent(ev model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.ID] = ev
	if _, ok := m.orgs[ev.OrgID]; !ok {
		m.orgs[ev.OrgID] = false
	}
}

func (m *memStore) suspendOrg(orgID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orgs[orgID] = true
}

func (m *memStore) setEmail(userID uint64, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails[userID] = email
}

func (m *memStore) snapshot() *memStore {
	c := newMemStore()
	for k, v := range m.events {
		c.events[k] = v
	}
	for k, v := range m.orgs {
		c.orgs[k] = v
	}
	for k, v := range m.regs {
		c.regs[k] = v
	}
	for k, v := range m.tickets {
		c.tickets[k] = v
	}
	for k, v := range m.waitlists {
		c.waitlists[k] = append([]uint64(nil), v...)
	}
	for k, v := range m.attendees {
		set := make(map[uint64]bool, len(v))
		for id := range v {
			set[id] = true
		}
		c.attendees[k] = set
	}
	for k, v := range m.emails {
		c.emails[k] = v
	}
	c.nextRegID = m.nextRegID
	c.nextTicketID = m.nextTicketID
	return c
}

func (m *memStore) restore(snap *memStore) {
	m.events = snap.events
	m.orgs = snap.orgs
	m.regs = snap.regs
	m.tickets = snap.tickets
	m.waitlists = snap.waitlists
	m.attendees = snap.attendees
	m.emails = snap.emails
	m.nextRegID = snap.nextRegID
	m.nextTicketID = snap.nextTicketID
}

func (m *memStore) Transact(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	if err := fn(&memTx{s: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) GetEvent(_ context.Context, eventID uint64) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok {
		return nil, ErrEventNotFound
	}
	return &ev, nil
}

func (m *memStore) GetRegistration(_ context.Context, regID uint64) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[regID]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	return &r, nil
}

func (m *memStore) GetTicket(_ context.Context, ticketID uint64) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[ticketID]
	if !ok {
		return nil, ErrTicketNotFound
	}
	return &t, nil
}

func (m *memStore) ListTicketsByRegistration(_ context.Context, regID uint64) ([]model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticketsOf(regID), nil
}

func (m *memStore) ticketsOf(regID uint64) []model.Ticket {
	var out []model.Ticket
	for _, t := range m.tickets {
		if t.RegistrationID == regID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) ListRegistrationsByUser(_ context.Context, userID uint64) ([]model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Registration
	for _, r := range m.regs {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UserEmail(_ context.Context, userID uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if email, ok := m.emails[userID]; ok {
		return email, nil
	}
	return "", ErrRegistrationNotFound
}

// memTx operates on the store directly; Transact holds the lock and
// rolls back via snapshot on error.
type memTx struct {
	s *memStore
}

func (t *memTx) EventForUpdate(_ context.Context, eventID uint64) (*model.Event, error) {
	ev, ok := t.s.events[eventID]
	if !ok {
		return nil, ErrEventNotFound
	}
	return &ev, nil
}

func (t *memTx) AdjustCapacity(_ context.Context, eventID uint64, delta int) error {
	ev, ok := t.s.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	if ev.Capacity+delta < 0 {
		return ErrEventFull
	}
	ev.Capacity += delta
	t.s.events[eventID] = ev
	return nil
}

func (t *memTx) SetEventStatus(_ context.Context, eventID uint64, status model.EventStatus) error {
	ev, ok := t.s.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	ev.Status = status
	t.s.events[eventID] = ev
	return nil
}

func (t *memTx) OrgSuspended(_ context.Context, orgID uint64) (bool, error) {
	return t.s.orgs[orgID], nil
}

func (t *memTx) AddAttendee(_ context.Context, eventID, userID uint64) error {
	set := t.s.attendees[eventID]
	if set == nil {
		set = make(map[uint64]bool)
		t.s.attendees[eventID] = set
	}
	set[userID] = true
	return nil
}

func (t *memTx) RemoveAttendee(_ context.Context, eventID, userID uint64) error {
	delete(t.s.attendees[eventID], userID)
	return nil
}

func (t *memTx) ActiveRegistrationExists(_ context.Context, eventID, userID uint64) (bool, error) {
	for _, r := range t.s.regs {
		if r.EventID == eventID && r.UserID == userID && r.Status != model.RegistrationCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertRegistration(_ context.Context, reg *model.Registration) error {
	t.s.nextRegID++
	reg.ID = t.s.nextRegID
	reg.CreatedAt = time.Now().UTC()
	t.s.regs[reg.ID] = *reg
	return nil
}

func (t *memTx) RegistrationForUpdate(_ context.Context, regID uint64) (*model.Registration, error) {
	r, ok := t.s.regs[regID]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	return &r, nil
}

func (t *memTx) SetRegistrationStatus(_ context.Context, regID uint64, status model.RegistrationStatus) error {
	r, ok := t.s.regs[regID]
	if !ok {
		return ErrRegistrationNotFound
	}
	r.Status = status
	t.s.regs[regID] = r
	return nil
}

func (t *memTx) SetRegistrationQuantity(_ context.Context, regID uint64, quantity, ticketsIssued int) error {
	r, ok := t.s.regs[regID]
	if !ok {
		return ErrRegistrationNotFound
	}
	r.Quantity = quantity
	r.TicketsIssued = ticketsIssued
	t.s.regs[regID] = r
	return nil
}

func (t *memTx) DeleteRegistration(_ context.Context, regID uint64) error {
	delete(t.s.regs, regID)
	return nil
}

func (t *memTx) ListRegistrationsByEvent(_ context.Context, eventID uint64) ([]model.Registration, error) {
	var out []model.Registration
	for _, r := range t.s.regs {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) WaitlistPush(_ context.Context, eventID, regID uint64) error {
	t.s.waitlists[eventID] = append(t.s.waitlists[eventID], regID)
	return nil
}

func (t *memTx) WaitlistFront(_ context.Context, eventID uint64) (*model.Registration, error) {
	q := t.s.waitlists[eventID]
	if len(q) == 0 {
		return nil, ErrRegistrationNotFound
	}
	r, ok := t.s.regs[q[0]]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	return &r, nil
}

func (t *memTx) WaitlistRotate(_ context.Context, eventID uint64) error {
	q := t.s.waitlists[eventID]
	if len(q) < 2 {
		return nil
	}
	t.s.waitlists[eventID] = append(q[1:], q[0])
	return nil
}

func (t *memTx) WaitlistRemove(_ context.Context, eventID, regID uint64) error {
	q := t.s.waitlists[eventID]
	for i, id := range q {
		if id == regID {
			t.s.waitlists[eventID] = append(append([]uint64(nil), q[:i]...), q[i+1:]...)
			return nil
		}
	}
	return nil
}

func (t *memTx) WaitlistSize(_ context.Context, eventID uint64) (int, error) {
	return len(t.s.waitlists[eventID]), nil
}

func (t *memTx) InsertTickets(_ context.Context, tickets []*model.Ticket) error {
	for _, tk := range tickets {
		t.s.nextTicketID++
		tk.ID = t.s.nextTicketID
		tk.CreatedAt = time.Now().UTC()
		t.s.tickets[tk.ID] = *tk
	}
	return nil
}

func (t *memTx) TicketForUpdate(_ context.Context, ticketID uint64) (*model.Ticket, error) {
	tk, ok := t.s.tickets[ticketID]
	if !ok {
		return nil, ErrTicketNotFound
	}
	return &tk, nil
}

func (t *memTx) TicketForUpdateByCode(_ context.Context, code string) (*model.Ticket, error) {
	for _, tk := range t.s.tickets {
		if tk.Code == code {
			return &tk, nil
		}
	}
	return nil, ErrTicketNotFound
}

func (t *memTx) SetTicketStatus(_ context.Context, ticketID uint64, status model.TicketStatus) error {
	tk, ok := t.s.tickets[ticketID]
	if !ok {
		return ErrTicketNotFound
	}
	tk.Status = status
	t.s.tickets[ticketID] = tk
	return nil
}

func (t *memTx) MarkTicketUsed(_ context.Context, ticketID uint64, scannedBy uint64, scannedAt time.Time) error {
	tk, ok := t.s.tickets[ticketID]
	if !ok {
		return ErrTicketNotFound
	}
	tk.Status = model.TicketUsed
	tk.ScannedAt = &scannedAt
	tk.ScannedBy = &scannedBy
	t.s.tickets[ticketID] = tk
	return nil
}

func (t *memTx) DeleteTicketsByRegistration(_ context.Context, regID uint64) error {
	for id, tk := range t.s.tickets {
		if tk.RegistrationID == regID {
			delete(t.s.tickets, id)
		}
	}
	return nil
}

func (t *memTx) DeleteTrailingTickets(_ context.Context, regID uint64, n int) error {
	owned := t.s.ticketsOf(regID)
	for i := len(owned) - 1; i >= 0 && n > 0; i-- {
		delete(t.s.tickets, owned[i].ID)
		n--
	}
	return nil
}

func (t *memTx) CancelTicketsByEvent(_ context.Context, eventID uint64) error {
	for id, tk := range t.s.tickets {
		if tk.EventID == eventID && tk.Status == model.TicketValid {
			tk.Status = model.TicketCancelled
			t.s.tickets[id] = tk
		}
	}
	return nil
}

// recordingFollowUp captures side-effect dispatches for assertions.
type recordingFollowUp struct {
	mu            sync.Mutex
	promotions    []uint64
	notifications []Notification
	qrJobs        []QRJob
}

func (f *recordingFollowUp) PromotionNeeded(_ context.Context, eventID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.promotions = append(f.promotions, eventID)
}

func (f *recordingFollowUp) Notify(_ context.Context, n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, n)
}

func (f *recordingFollowUp) RenderQR(_ context.Context, jobs []QRJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.qrJobs = append(f.qrJobs, jobs...)
}

func (f *recordingFollowUp) promotionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.promotions)
}

func (f *recordingFollowUp) notificationKinds() []NotificationKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	kinds := make([]NotificationKind, 0, len(f.notifications))
	for _, n := range f.notifications {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

// newTestService wires a Service to a fresh memStore with one upcoming
// event (id 1, org 1) holding the given capacity.
func newTestService(capacity int) (*Service, *memStore, *recordingFollowUp) {
	store := newMemStore()
	store.addEvent(model.Event{
		ID:       1,
		OrgID:    1,
		OwnerID:  10,
		Name:     "GopherCon",
		Status:   model.EventUpcoming,
		StartsAt: time.Now().Add(24 * time.Hour),
		EndsAt:   time.Now().Add(48 * time.Hour),
		Capacity: capacity,
	})
	store.setEmail(100, "alice@example.com")
	store.setEmail(101, "bob@example.com")
	store.setEmail(102, "carol@example.com")
	fu := &recordingFollowUp{}
	svc := NewService(store, fu, zerolog.Nop())
	return svc, store, fu
}
