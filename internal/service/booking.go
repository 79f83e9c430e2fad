// Package service implements the booking eligibility and capacity-consistency
// engine. It decides whether a booking may be created or moved given the
// user's enrollment/ticket state and the target room's occupancy, and it
// enforces the occupied <= capacity invariant on every mutation.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/eventstay/booking-api/internal/model"
	"github.com/eventstay/booking-api/internal/repository"
)

// Store is the persistence gateway the engine consumes. It is implemented
// by repository.BookingRepository (Postgres) and repository.MemoryStore.
type Store interface {
	// WithTx runs fn as a single atomic unit; reads issued inside it see a
	// consistent snapshot and FindRoomForUpdate blocks concurrent callers.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	FindEnrollmentByUser(ctx context.Context, userID int64) (*model.Enrollment, error)
	FindTicketByEnrollment(ctx context.Context, enrollmentID int64) (*model.Ticket, error)
	FindRoom(ctx context.Context, roomID int64) (*model.Room, error)
	FindRoomForUpdate(ctx context.Context, roomID int64) (*model.Room, error)
	CountBookingsForRoom(ctx context.Context, roomID int64) (int, error)
	CreateBooking(ctx context.Context, userID, roomID int64) (*model.Booking, error)
	FindBookingByUser(ctx context.Context, userID int64) (*model.Booking, error)
	UpdateBookingRoom(ctx context.Context, bookingID, roomID int64) error
}

// Notifier receives booking lifecycle events after a successful mutation.
type Notifier interface {
	BookingCreated(ctx context.Context, booking model.Booking)
	BookingMoved(ctx context.Context, booking model.Booking)
}

// Rejection reasons surfaced through CannotCreateBookingError.
const (
	reasonNoEnrollment   = "no enrollment found for user"
	reasonInvalidTicket  = "invalid ticket"
	reasonNoVacancy      = "no vacancies for selected room"
	reasonNoPriorBooking = "no previous booking"
	reasonAlreadyHasRoom = "user already has a booking"
)

// BookingService orchestrates eligibility checks, capacity evaluation, and
// booking mutations. It holds no state between requests.
type BookingService struct {
	store    Store
	notifier Notifier
}

// NewBookingService constructs a BookingService. notifier may be nil, in
// which case lifecycle events are dropped.
func NewBookingService(store Store, notifier Notifier) *BookingService {
	return &BookingService{store: store, notifier: notifier}
}

// checkEligibility judges whether the user currently holds a valid, paid,
// in-person, hotel-inclusive ticket. Pure read-then-judge, no side effects.
// Returns a CannotCreateBookingError carrying the reason, or nil.
func (s *BookingService) checkEligibility(ctx context.Context, userID int64) error {
	enrollment, err := s.store.FindEnrollmentByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("check enrollment: %w", err)
	}
	if enrollment == nil {
		return cannotCreateBooking(reasonNoEnrollment)
	}

	ticket, err := s.store.FindTicketByEnrollment(ctx, enrollment.ID)
	if err != nil {
		return fmt.Errorf("check ticket: %w", err)
	}
	if ticket == nil || !ticket.AllowsHotelBooking() {
		return cannotCreateBooking(reasonInvalidTicket)
	}
	return nil
}

// CreateBooking books a room for the user. The vacancy check and the insert
// run inside one transaction with the room row locked, so two concurrent
// creates against the last free slot cannot both succeed.
func (s *BookingService) CreateBooking(ctx context.Context, userID, roomID int64) (int64, error) {
	if err := s.checkEligibility(ctx, userID); err != nil {
		return 0, err
	}

	var booking *model.Booking
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		room, err := s.store.FindRoomForUpdate(txCtx, roomID)
		if err != nil {
			return fmt.Errorf("find room: %w", err)
		}
		if room == nil {
			return repository.ErrNotFound
		}

		occupied, err := s.store.CountBookingsForRoom(txCtx, roomID)
		if err != nil {
			return fmt.Errorf("count occupancy: %w", err)
		}
		if !room.HasVacancy(occupied) {
			return cannotCreateBooking(reasonNoVacancy)
		}

		booking, err = s.store.CreateBooking(txCtx, userID, roomID)
		if err != nil {
			if errors.Is(err, repository.ErrAlreadyBooked) {
				return cannotCreateBooking(reasonAlreadyHasRoom)
			}
			return fmt.Errorf("create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.notifier != nil {
		go s.notifier.BookingCreated(context.WithoutCancel(ctx), *booking)
	}
	return booking.ID, nil
}

// GetBooking returns the user's booking id with a snapshot of its room.
// Enrollment and ticket existence are required on the read path, but the
// full eligibility judgment is not.
func (s *BookingService) GetBooking(ctx context.Context, userID int64) (*model.BookingDetail, error) {
	enrollment, err := s.store.FindEnrollmentByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	if enrollment == nil {
		return nil, repository.ErrNotFound
	}

	ticket, err := s.store.FindTicketByEnrollment(ctx, enrollment.ID)
	if err != nil {
		return nil, fmt.Errorf("find ticket: %w", err)
	}
	if ticket == nil {
		return nil, repository.ErrNotFound
	}

	booking, err := s.store.FindBookingByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if booking == nil {
		return nil, repository.ErrNotFound
	}

	room, err := s.store.FindRoom(ctx, booking.RoomID)
	if err != nil {
		return nil, fmt.Errorf("find room: %w", err)
	}
	if room == nil {
		return nil, repository.ErrNotFound
	}

	return &model.BookingDetail{ID: booking.ID, Room: *room}, nil
}

// UpdateBooking moves the user's existing booking to a new room. The booking
// id is unchanged. The vacancy check on the new room and the reassignment
// run inside one transaction with the new room's row locked.
func (s *BookingService) UpdateBooking(ctx context.Context, userID, newRoomID int64) (int64, error) {
	if err := s.checkEligibility(ctx, userID); err != nil {
		return 0, err
	}

	var booking *model.Booking
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		booking, err = s.store.FindBookingByUser(txCtx, userID)
		if err != nil {
			return fmt.Errorf("find booking: %w", err)
		}
		if booking == nil {
			return cannotCreateBooking(reasonNoPriorBooking)
		}

		room, err := s.store.FindRoomForUpdate(txCtx, newRoomID)
		if err != nil {
			return fmt.Errorf("find room: %w", err)
		}
		if room == nil {
			return repository.ErrNotFound
		}

		// The count includes the user's own booking when moving within the
		// same room, matching the original occupancy rule.
		occupied, err := s.store.CountBookingsForRoom(txCtx, newRoomID)
		if err != nil {
			return fmt.Errorf("count occupancy: %w", err)
		}
		if !room.HasVacancy(occupied) {
			return cannotCreateBooking(reasonNoVacancy)
		}

		if err := s.store.UpdateBookingRoom(txCtx, booking.ID, newRoomID); err != nil {
			return fmt.Errorf("move booking: %w", err)
		}
		booking.RoomID = newRoomID
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.notifier != nil {
		go s.notifier.BookingMoved(context.WithoutCancel(ctx), *booking)
	}
	return booking.ID, nil
}
