package model

type BookingDraft struct {
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email"`
	VehicleType   string `json:"vehicle_type"`
	ServiceType   string `json:"service_type"`
	DateTime      string `json:"datetime"`
	Notes         string `json:"notes"`
}

type BookingStatus struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type BookingStateResponse struct {
	Draft       BookingDraft   `json:"draft"`
	Sending     bool           `json:"sending"`
	Status      *BookingStatus `json:"status,omitempty"`
	WhatsAppURL string         `json:"whatsapp_url,omitempty"`
}

type SetBookingFieldRequest struct {
	Name  string `json:"name" validate:"required,booking_field"`
	Value string `json:"value" validate:"max=2000"`
}

// BookingFormRequest mirrors the page form; required fields are checked by the pipeline.
type BookingFormRequest struct {
	CustomerName  string `validate:"max=100"`
	CustomerPhone string `validate:"max=30"`
	CustomerEmail string `validate:"omitempty,max=255"`
	VehicleType   string `validate:"vehicle_type"`
	ServiceType   string `validate:"service_type"`
	DateTime      string `validate:"max=32"`
	Notes         string `validate:"max=2000"`
}

type BookingDispatchedEventMessage struct {
	SessionID    string       `json:"session_id"`
	Booking      BookingDraft `json:"booking"`
	Summary      string       `json:"summary"`
	WhatsAppURL  string       `json:"whatsapp_url"`
	DispatchedAt string       `json:"dispatched_at"`
}
