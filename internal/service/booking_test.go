package service

import (
	"context"
	"sync"
	"testing"

	"github.com/eventstay/booking-api/internal/model"
	"github.com/eventstay/booking-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hotelTicketType() model.TicketType {
	return model.TicketType{Name: "Presential + Hotel", IsRemote: false, IncludesHotel: true}
}

// seedEligibleUser enrolls the user and gives them a paid, in-person,
// hotel-inclusive ticket.
func seedEligibleUser(store *repository.MemoryStore, userID int64) {
	enrollment := store.AddEnrollment(userID, "guest")
	store.AddTicket(enrollment.ID, model.TicketStatusPaid, hotelTicketType())
}

func requireRejection(t *testing.T, err error, reason string) {
	t.Helper()
	var rejection *CannotCreateBookingError
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, reason, rejection.Reason)
}

func TestBookingService_CreateBooking(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates booking when ticket is valid and room has vacancy", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedEligibleUser(store, 1)
		room := store.AddRoom(1, 2)
		svc := NewBookingService(store, nil)

		bookingID, err := svc.CreateBooking(ctx, 1, room.ID)
		require.NoError(t, err)
		assert.NotZero(t, bookingID)

		occupied, err := store.CountBookingsForRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, occupied)
	})

	t.Run("rejects user without enrollment", func(t *testing.T) {
		store := repository.NewMemoryStore()
		room := store.AddRoom(1, 2)
		svc := NewBookingService(store, nil)

		_, err := svc.CreateBooking(ctx, 1, room.ID)
		requireRejection(t, err, "no enrollment found for user")
	})

	t.Run("rejects unpaid ticket", func(t *testing.T) {
		store := repository.NewMemoryStore()
		enrollment := store.AddEnrollment(1, "guest")
		store.AddTicket(enrollment.ID, model.TicketStatusReserved, hotelTicketType())
		room := store.AddRoom(1, 2)
		svc := NewBookingService(store, nil)

		_, err := svc.CreateBooking(ctx, 1, room.ID)
		requireRejection(t, err, "invalid ticket")
	})

	t.Run("rejects remote ticket type", func(t *testing.T) {
		store := repository.NewMemoryStore()
		enrollment := store.AddEnrollment(1, "guest")
		store.AddTicket(enrollment.ID, model.TicketStatusPaid,
			model.TicketType{Name: "Online", IsRemote: true, IncludesHotel: false})
		room := store.AddRoom(1, 2)
		svc := NewBookingService(store, nil)

		_, err := svc.CreateBooking(ctx, 1, room.ID)
		requireRejection(t, err, "invalid ticket")
	})

	t.Run("rejects ticket type without hotel", func(t *testing.T) {
		store := repository.NewMemoryStore()
		enrollment := store.AddEnrollment(1, "guest")
		store.AddTicket(enrollment.ID, model.TicketStatusPaid,
			model.TicketType{Name: "Presential", IsRemote: false, IncludesHotel: false})
		room := store.AddRoom(1, 2)
		svc := NewBookingService(store, nil)

		_, err := svc.CreateBooking(ctx, 1, room.ID)
		requireRejection(t, err, "invalid ticket")
	})

	t.Run("returns not found for missing room", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedEligibleUser(store, 1)
		svc := NewBookingService(store, nil)

		_, err := svc.CreateBooking(ctx, 1, 999)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("rejects full room and accepts last free slot", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedEligibleUser(store, 1)
		seedEligibleUser(store, 2)
		room := store.AddRoom(1, 1)
		svc := NewBookingService(store, nil)

		bookingID, err := svc.CreateBooking(ctx, 1, room.ID)
		require.NoError(t, err)
		assert.NotZero(t, bookingID)

		_, err = svc.CreateBooking(ctx, 2, room.ID)
		requireRejection(t, err, "no vacancies for selected room")
	})

	t.Run("rejects second booking for the same user", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedEligibleUser(store, 1)
		roomA := store.AddRoom(1, 2)
		roomB := store.AddRoom(1, 2)
		svc := NewBookingService(store, nil)

		_, err := svc.CreateBooking(ctx, 1, roomA.ID)
		require.NoError(t, err)

		_, err = svc.CreateBooking(ctx, 1, roomB.ID)
		requireRejection(t, err, "user already has a booking")
	})
}

func TestBookingService_GetBooking(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("not found without enrollment", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewBookingService(store, nil)

		_, err := svc.GetBooking(ctx, 1)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("not found without ticket", func(t *testing.T) {
		store := repository.NewMemoryStore()
		store.AddEnrollment(1, "guest")
		svc := NewBookingService(store, nil)

		_, err := svc.GetBooking(ctx, 1)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("not found without booking", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedEligibleUser(store, 1)
		svc := NewBookingService(store, nil)

		_, err := svc.GetBooking(ctx, 1)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("returns booking id and room snapshot", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedEligibleUser(store, 1)
		room := store.AddRoom(1, 2)
		booking := store.AddBooking(1, room.ID)
		svc := NewBookingService(store, nil)

		detail, err := svc.GetBooking(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, booking.ID, detail.ID)
		assert.Equal(t, room.ID, detail.Room.ID)
		assert.Equal(t, room.Capacity, detail.Room.Capacity)
	})
}

func TestBookingService_UpdateBooking(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("rejects user without prior booking", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedEligibleUser(store, 1)
		room := store.AddRoom(1, 2)
		svc := NewBookingService(store, nil)

		_, err := svc.UpdateBooking(ctx, 1, room.ID)
		requireRejection(t, err, "no previous booking")
	})

	t.Run("returns not found for missing new room", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedEligibleUser(store, 1)
		room := store.AddRoom(1, 2)
		store.AddBooking(1, room.ID)
		svc := NewBookingService(store, nil)

		_, err := svc.UpdateBooking(ctx, 1, 999)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("rejects move to an occupied room", func(t *testing.T) {
		// User booked in room A (capacity 2, occupied 1); room B capacity 1
		// is already taken by someone else.
		store := repository.NewMemoryStore()
		seedEligibleUser(store, 1)
		roomA := store.AddRoom(1, 2)
		roomB := store.AddRoom(1, 1)
		store.AddBooking(1, roomA.ID)
		store.AddBooking(2, roomB.ID)
		svc := NewBookingService(store, nil)

		_, err := svc.UpdateBooking(ctx, 1, roomB.ID)
		requireRejection(t, err, "no vacancies for selected room")
	})

	t.Run("moves booking keeping its id", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedEligibleUser(store, 1)
		roomA := store.AddRoom(1, 2)
		roomB := store.AddRoom(1, 1)
		booking := store.AddBooking(1, roomA.ID)
		svc := NewBookingService(store, nil)

		bookingID, err := svc.UpdateBooking(ctx, 1, roomB.ID)
		require.NoError(t, err)
		assert.Equal(t, booking.ID, bookingID)

		moved, err := store.FindBookingByUser(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, moved)
		assert.Equal(t, roomB.ID, moved.RoomID)

		occupiedA, err := store.CountBookingsForRoom(ctx, roomA.ID)
		require.NoError(t, err)
		assert.Zero(t, occupiedA)
	})
}

// TestBookingService_CapacityNeverOversold drives concurrent creates against
// a nearly-full room. The transaction around lock-count-insert must let
// exactly capacity bookings through, never more.
func TestBookingService_CapacityNeverOversold(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	const capacity = 3
	const contenders = 8

	store := repository.NewMemoryStore()
	room := store.AddRoom(1, capacity)
	for userID := int64(1); userID <= contenders; userID++ {
		seedEligibleUser(store, userID)
	}
	svc := NewBookingService(store, nil)

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateBooking(ctx, int64(i+1), room.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireRejection(t, err, "no vacancies for selected room")
	}
	assert.Equal(t, capacity, succeeded)

	occupied, err := store.CountBookingsForRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, occupied, capacity)
	assert.Equal(t, capacity, occupied)
}

// TestBookingService_SequentialOccupancyInvariant replays a mixed sequence
// of creates and moves and checks occupied <= capacity on every room after
// each successful operation.
func TestBookingService_SequentialOccupancyInvariant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := repository.NewMemoryStore()
	roomA := store.AddRoom(1, 2)
	roomB := store.AddRoom(1, 1)
	for userID := int64(1); userID <= 4; userID++ {
		seedEligibleUser(store, userID)
	}
	svc := NewBookingService(store, nil)

	checkInvariant := func() {
		t.Helper()
		for _, room := range []model.Room{roomA, roomB} {
			occupied, err := store.CountBookingsForRoom(ctx, room.ID)
			require.NoError(t, err)
			assert.LessOrEqual(t, occupied, room.Capacity)
		}
	}

	ops := []func() error{
		func() error { _, err := svc.CreateBooking(ctx, 1, roomA.ID); return err },
		func() error { _, err := svc.CreateBooking(ctx, 2, roomA.ID); return err },
		func() error { _, err := svc.CreateBooking(ctx, 3, roomA.ID); return err }, // full
		func() error { _, err := svc.CreateBooking(ctx, 3, roomB.ID); return err },
		func() error { _, err := svc.UpdateBooking(ctx, 1, roomB.ID); return err }, // full
		func() error { _, err := svc.CreateBooking(ctx, 4, roomB.ID); return err }, // full
	}
	for _, op := range ops {
		_ = op() // rejections are expected along the way
		checkInvariant()
	}

	occupiedA, err := store.CountBookingsForRoom(ctx, roomA.ID)
	require.NoError(t, err)
	occupiedB, err := store.CountBookingsForRoom(ctx, roomB.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, occupiedA)
	assert.Equal(t, 1, occupiedB)
}
