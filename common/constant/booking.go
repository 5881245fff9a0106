package constant

const (
	MessageNameRequired     = "Please enter your name."
	MessagePhoneRequired    = "Please enter a phone number."
	MessageDateTimeRequired = "Please choose a date and time."

	MessageBookingSent     = "Booking sent! Opening WhatsApp..."
	MessageDispatchFailed  = "Could not send booking. Please try again."
	MessageBookingInFlight = "Booking already in progress"

	SubmitCaptionIdle = "Send Booking & Open WhatsApp"
	SubmitCaptionBusy = "Sending..."
)

const (
	WhatsAppBaseURL       = "https://wa.me/"
	WhatsAppSummaryHeader = "MotorServe Booking Request:"
)

// Fallbacks used when the environment does not configure the provider.
const (
	PlaceholderEmailServiceID  = "service_xxx"
	PlaceholderEmailTemplateID = "template_xxx"
	PlaceholderEmailPublicKey  = "user_xxx"
	DefaultWhatsAppNumber      = "254705639260"
)

const MessageInvalidChoice = "Please choose a vehicle and service from the list."
