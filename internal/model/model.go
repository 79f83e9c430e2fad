// Package model defines the core domain types for the hotel booking subsystem.
package model

import "time"

// TicketStatus is the payment state of a ticket.
type TicketStatus string

const (
	TicketStatusReserved TicketStatus = "RESERVED"
	TicketStatusPaid     TicketStatus = "PAID"
)

// User is a registered platform user. A user owns at most one enrollment,
// one ticket, and one active booking at any time.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Enrollment is a user's registration record for the event. Its presence is
// a precondition for booking a room.
type Enrollment struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// TicketType is a plan definition. Remote plans and plans without hotel
// accommodation never qualify for a room.
type TicketType struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	PriceCents    int    `json:"priceCents"`
	IsRemote      bool   `json:"isRemote"`
	IncludesHotel bool   `json:"includesHotel"`
}

// Ticket is a purchased admission record tied to an enrollment.
type Ticket struct {
	ID           int64        `json:"id"`
	EnrollmentID int64        `json:"enrollmentId"`
	Status       TicketStatus `json:"status"`
	Type         TicketType   `json:"ticketType"`
}

// AllowsHotelBooking reports whether this ticket qualifies its holder for a
// room: it must be paid, for in-person attendance, and include hotel stay.
func (t *Ticket) AllowsHotelBooking() bool {
	return t.Status == TicketStatusPaid && !t.Type.IsRemote && t.Type.IncludesHotel
}

// Hotel groups rooms.
type Hotel struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
}

// Room is a bookable hotel room with a fixed capacity. Occupancy is derived
// by counting bookings and is never stored on the room itself.
type Room struct {
	ID        int64     `json:"id"`
	HotelID   int64     `json:"hotelId"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasVacancy reports whether the room can take one more booking given the
// current occupant count.
func (r *Room) HasVacancy(occupied int) bool {
	return occupied < r.Capacity
}

// Booking links one user to one room.
type Booking struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	RoomID    int64     `json:"roomId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BookingDetail is the read-side view of a booking: its id plus a snapshot
// of the room it occupies.
type BookingDetail struct {
	ID   int64 `json:"id"`
	Room Room  `json:"Room"`
}

// CreateBookingRequest is the payload for creating or moving a booking.
type CreateBookingRequest struct {
	RoomID int64 `json:"roomId"`
}

// BookingCreatedResponse carries the booking id back to the client after a
// successful create or update.
type BookingCreatedResponse struct {
	BookingID int64 `json:"bookingId"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
