package constant

const EmailBookingNotificationSubject = "New booking: %s (%s)"

const EmailBookingNotificationTemplate = `
Hello MotorServe team,

A new service booking was submitted through the website.

Booking Details:
------------------------------------------
%s
------------------------------------------

Reply on WhatsApp: %s

This message was sent automatically after the customer confirmation email was delivered.
`
