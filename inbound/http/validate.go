package http

import (
	"motorserve/booking"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator with the booking tags registered:
// booking_field, vehicle_type and service_type.
func NewValidator() *validator.Validate {
	validate := validator.New()

	mustRegister(validate, "booking_field", func(fl validator.FieldLevel) bool {
		return booking.IsField(fl.Field().String())
	})
	mustRegister(validate, "vehicle_type", func(fl validator.FieldLevel) bool {
		_, ok := booking.ParseVehicleType(fl.Field().String())
		return ok
	})
	mustRegister(validate, "service_type", func(fl validator.FieldLevel) bool {
		_, ok := booking.ParseServiceType(fl.Field().String())
		return ok
	})

	return validate
}

func mustRegister(validate *validator.Validate, tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}
