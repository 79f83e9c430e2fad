package repository

import (
	"context"
	"sync"
	"time"

	"github.com/eventstay/booking-api/internal/model"
)

// MemoryStore is an in-memory implementation of the same gateway contract
// the Postgres repository fulfils. WithTx serializes on a single mutex,
// giving the store the same all-or-nothing visibility the row lock gives
// the database path. It backs the service and handler test suites.
type MemoryStore struct {
	mu sync.Mutex

	nextID      int64
	enrollments map[int64]model.Enrollment // keyed by user id
	tickets     map[int64]model.Ticket     // keyed by enrollment id
	rooms       map[int64]model.Room       // keyed by room id
	bookings    map[int64]model.Booking    // keyed by booking id
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:      1,
		enrollments: make(map[int64]model.Enrollment),
		tickets:     make(map[int64]model.Ticket),
		rooms:       make(map[int64]model.Room),
		bookings:    make(map[int64]model.Booking),
	}
}

func (m *MemoryStore) nextSeq() int64 {
	id := m.nextID
	m.nextID++
	return id
}

// ── Seed helpers ──────────────────────────────────────────────────────────

// AddEnrollment registers an enrollment for the user and returns it.
func (m *MemoryStore) AddEnrollment(userID int64, name string) model.Enrollment {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := model.Enrollment{ID: m.nextSeq(), UserID: userID, Name: name, CreatedAt: time.Now().UTC()}
	m.enrollments[userID] = e
	return e
}

// AddTicket attaches a ticket with the given status and type to an enrollment.
func (m *MemoryStore) AddTicket(enrollmentID int64, status model.TicketStatus, tt model.TicketType) model.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tt.ID == 0 {
		tt.ID = m.nextSeq()
	}
	t := model.Ticket{ID: m.nextSeq(), EnrollmentID: enrollmentID, Status: status, Type: tt}
	m.tickets[enrollmentID] = t
	return t
}

// AddRoom registers a room with the given capacity and returns it.
func (m *MemoryStore) AddRoom(hotelID int64, capacity int) model.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	r := model.Room{ID: m.nextSeq(), HotelID: hotelID, Name: "room", Capacity: capacity, CreatedAt: now, UpdatedAt: now}
	m.rooms[r.ID] = r
	return r
}

// AddBooking inserts a booking directly, bypassing the engine's checks.
func (m *MemoryStore) AddBooking(userID, roomID int64) model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	b := model.Booking{ID: m.nextSeq(), UserID: userID, RoomID: roomID, CreatedAt: now, UpdatedAt: now}
	m.bookings[b.ID] = b
	return b
}

// ── Gateway contract ──────────────────────────────────────────────────────

// WithTx serializes the whole read-check-write sequence behind one mutex.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(context.WithValue(ctx, memTxKey{}, m))
}

type memTxKey struct{}

func (m *MemoryStore) locked(ctx context.Context) bool {
	_, ok := ctx.Value(memTxKey{}).(*MemoryStore)
	return ok
}

func (m *MemoryStore) lockUnlessTx(ctx context.Context) func() {
	if m.locked(ctx) {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *MemoryStore) FindEnrollmentByUser(ctx context.Context, userID int64) (*model.Enrollment, error) {
	defer m.lockUnlessTx(ctx)()
	if e, ok := m.enrollments[userID]; ok {
		return &e, nil
	}
	return nil, nil
}

func (m *MemoryStore) FindTicketByEnrollment(ctx context.Context, enrollmentID int64) (*model.Ticket, error) {
	defer m.lockUnlessTx(ctx)()
	if t, ok := m.tickets[enrollmentID]; ok {
		return &t, nil
	}
	return nil, nil
}

func (m *MemoryStore) FindRoom(ctx context.Context, roomID int64) (*model.Room, error) {
	defer m.lockUnlessTx(ctx)()
	if r, ok := m.rooms[roomID]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *MemoryStore) FindRoomForUpdate(ctx context.Context, roomID int64) (*model.Room, error) {
	return m.FindRoom(ctx, roomID)
}

func (m *MemoryStore) CountBookingsForRoom(ctx context.Context, roomID int64) (int, error) {
	defer m.lockUnlessTx(ctx)()
	count := 0
	for _, b := range m.bookings {
		if b.RoomID == roomID {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) CreateBooking(ctx context.Context, userID, roomID int64) (*model.Booking, error) {
	defer m.lockUnlessTx(ctx)()
	for _, b := range m.bookings {
		if b.UserID == userID {
			return nil, ErrAlreadyBooked
		}
	}
	now := time.Now().UTC()
	b := model.Booking{ID: m.nextSeq(), UserID: userID, RoomID: roomID, CreatedAt: now, UpdatedAt: now}
	m.bookings[b.ID] = b
	return &b, nil
}

func (m *MemoryStore) FindBookingByUser(ctx context.Context, userID int64) (*model.Booking, error) {
	defer m.lockUnlessTx(ctx)()
	for _, b := range m.bookings {
		if b.UserID == userID {
			return &b, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) UpdateBookingRoom(ctx context.Context, bookingID, roomID int64) error {
	defer m.lockUnlessTx(ctx)()
	b, ok := m.bookings[bookingID]
	if !ok {
		return ErrNotFound
	}
	b.RoomID = roomID
	b.UpdatedAt = time.Now().UTC()
	m.bookings[bookingID] = b
	return nil
}
