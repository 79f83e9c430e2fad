package service

// CannotCreateBookingError is the business-rule rejection for the create and
// update paths: missing enrollment, invalid ticket, full room, or (update)
// no prior booking to move. The transport layer maps it to 403.
type CannotCreateBookingError struct {
	Reason string
}

func (e *CannotCreateBookingError) Error() string {
	return "cannot create booking: " + e.Reason
}

func cannotCreateBooking(reason string) error {
	return &CannotCreateBookingError{Reason: reason}
}
