package constant

import "time"

const (
	BookingFormKey     = "booking:form:%s"
	BookingSendingLock = "booking:sending:%s"
)

const (
	BookingFormDefaultTTL           = 24 * time.Hour
	BookingSendingLockDefaultTTL    = 1 * time.Minute
	BookingSessionCookie            = "motorserve_session"
	BookingSessionCookieDefaultPath = "/"
)
