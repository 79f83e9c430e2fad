// Package repository implements the persistence gateway for the booking
// subsystem. It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/eventstay/booking-api/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyBooked is returned when a user who already holds an active
// booking attempts to create a second one.
var ErrAlreadyBooked = errors.New("user already has a booking")

// BookingRepository handles persistence for enrollments, tickets, rooms,
// and bookings. Lookup methods return (nil, nil) when the record is absent
// so callers can attach their own taxonomy to the miss.
type BookingRepository struct {
	db *pgxpool.Pool
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: db}
}

// WithTx runs fn inside a single transaction. Queries issued through this
// repository with the context passed to fn join that transaction.
func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

// FindEnrollmentByUser returns the user's enrollment, or nil when the user
// never enrolled.
func (r *BookingRepository) FindEnrollmentByUser(ctx context.Context, userID int64) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.queryRow(ctx,
		`SELECT id, user_id, name, created_at
		 FROM enrollments WHERE user_id = $1`,
		userID,
	).Scan(&e.ID, &e.UserID, &e.Name, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &e, nil
}

// FindTicketByEnrollment returns the enrollment's ticket with its ticket
// type embedded, or nil when no ticket was purchased.
func (r *BookingRepository) FindTicketByEnrollment(ctx context.Context, enrollmentID int64) (*model.Ticket, error) {
	var t model.Ticket
	err := r.queryRow(ctx,
		`SELECT t.id, t.enrollment_id, t.status,
		        tt.id, tt.name, tt.price_cents, tt.is_remote, tt.includes_hotel
		 FROM tickets t
		 JOIN ticket_types tt ON tt.id = t.ticket_type_id
		 WHERE t.enrollment_id = $1`,
		enrollmentID,
	).Scan(&t.ID, &t.EnrollmentID, &t.Status,
		&t.Type.ID, &t.Type.Name, &t.Type.PriceCents, &t.Type.IsRemote, &t.Type.IncludesHotel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find ticket: %w", err)
	}
	return &t, nil
}

// FindRoom returns a room by id, or nil when it does not exist.
func (r *BookingRepository) FindRoom(ctx context.Context, roomID int64) (*model.Room, error) {
	return r.findRoom(ctx, roomID, false)
}

// FindRoomForUpdate returns a room by id and, when called inside WithTx,
// acquires an exclusive row-level lock on it. Concurrent booking attempts
// against the same room serialize on this lock, so the occupancy count that
// follows cannot go stale before the write commits.
func (r *BookingRepository) FindRoomForUpdate(ctx context.Context, roomID int64) (*model.Room, error) {
	return r.findRoom(ctx, roomID, true)
}

func (r *BookingRepository) findRoom(ctx context.Context, roomID int64, forUpdate bool) (*model.Room, error) {
	query := `SELECT id, hotel_id, name, capacity, created_at, updated_at
	          FROM rooms WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var room model.Room
	err := r.queryRow(ctx, query, roomID).Scan(
		&room.ID, &room.HotelID, &room.Name, &room.Capacity, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find room: %w", err)
	}
	return &room, nil
}

// CountBookingsForRoom returns the number of bookings currently referencing
// the room. The count is computed fresh, never cached.
func (r *BookingRepository) CountBookingsForRoom(ctx context.Context, roomID int64) (int, error) {
	var count int
	err := r.queryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE room_id = $1`,
		roomID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return count, nil
}

// CreateBooking inserts a new booking for the user. The UNIQUE constraint
// on bookings.user_id backs the one-active-booking-per-user invariant;
// a violation surfaces as ErrAlreadyBooked.
func (r *BookingRepository) CreateBooking(ctx context.Context, userID, roomID int64) (*model.Booking, error) {
	var b model.Booking
	err := r.queryRow(ctx,
		`INSERT INTO bookings (user_id, room_id)
		 VALUES ($1, $2)
		 RETURNING id, user_id, room_id, created_at, updated_at`,
		userID, roomID,
	).Scan(&b.ID, &b.UserID, &b.RoomID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyBooked
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	return &b, nil
}

// FindBookingByUser returns the user's active booking, or nil when none
// exists.
func (r *BookingRepository) FindBookingByUser(ctx context.Context, userID int64) (*model.Booking, error) {
	var b model.Booking
	err := r.queryRow(ctx,
		`SELECT id, user_id, room_id, created_at, updated_at
		 FROM bookings WHERE user_id = $1`,
		userID,
	).Scan(&b.ID, &b.UserID, &b.RoomID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return &b, nil
}

// UpdateBookingRoom reassigns a booking to a new room. The booking id is
// unchanged; no new booking entity is created.
func (r *BookingRepository) UpdateBookingRoom(ctx context.Context, bookingID, roomID int64) error {
	tag, err := r.exec(ctx,
		`UPDATE bookings SET room_id = $2, updated_at = NOW() WHERE id = $1`,
		bookingID, roomID,
	)
	if err != nil {
		return fmt.Errorf("update booking room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BookingRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.db.Exec(ctx, sql, args...)
}

func (r *BookingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.db.QueryRow(ctx, sql, args...)
}
