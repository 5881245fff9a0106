package constant

const (
	QueueStreamName = "motorserve_queue_stream"
)

const (
	AllWildcard     = "events.>"
	BookingWildcard = "events.booking.>"

	SubjectBookingDispatched = "events.booking.dispatched"
)
