package booking

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type VehicleType string

const (
	VehicleCar        VehicleType = "Car"
	VehicleMotorcycle VehicleType = "Motorcycle"
	VehicleGenerator  VehicleType = "Generator"
)

var VehicleTypes = []VehicleType{VehicleCar, VehicleMotorcycle, VehicleGenerator}

type ServiceType string

const (
	ServiceRepair           ServiceType = "Repair"
	ServiceMaintenance      ServiceType = "Maintenance"
	ServiceDiagnostics      ServiceType = "Diagnostics"
	ServicePartsReplacement ServiceType = "Parts Replacement"
)

var ServiceTypes = []ServiceType{ServiceRepair, ServiceMaintenance, ServiceDiagnostics, ServicePartsReplacement}

// ParseVehicleType accepts any casing and surrounding whitespace.
func ParseVehicleType(s string) (VehicleType, bool) {
	v := VehicleType(normalizeChoice(s))
	for _, known := range VehicleTypes {
		if v == known {
			return v, true
		}
	}

	return "", false
}

// ParseServiceType accepts any casing and surrounding whitespace.
func ParseServiceType(s string) (ServiceType, bool) {
	v := ServiceType(normalizeChoice(s))
	for _, known := range ServiceTypes {
		if v == known {
			return v, true
		}
	}

	return "", false
}

func normalizeChoice(s string) string {
	fields := strings.Fields(s)
	return cases.Title(language.English).String(strings.ToLower(strings.Join(fields, " ")))
}

const (
	FieldCustomerName  = "customer_name"
	FieldCustomerPhone = "customer_phone"
	FieldCustomerEmail = "customer_email"
	FieldVehicleType   = "vehicle_type"
	FieldServiceType   = "service_type"
	FieldDateTime      = "datetime"
	FieldNotes         = "notes"
)

// Fields lists the draft attributes in form order.
var Fields = []string{
	FieldCustomerName,
	FieldCustomerPhone,
	FieldCustomerEmail,
	FieldVehicleType,
	FieldServiceType,
	FieldDateTime,
	FieldNotes,
}

func IsField(name string) bool {
	for _, f := range Fields {
		if f == name {
			return true
		}
	}

	return false
}

// Draft is the user-editable booking record.
type Draft struct {
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	CustomerEmail string      `json:"customer_email"`
	VehicleType   VehicleType `json:"vehicle_type"`
	ServiceType   ServiceType `json:"service_type"`
	DateTime      string      `json:"datetime"`
	Notes         string      `json:"notes"`
}

func NewDraft() Draft {
	return Draft{
		VehicleType: VehicleCar,
		ServiceType: ServiceRepair,
	}
}

// Params returns the provider parameter bag, keyed by attribute name.
func (d Draft) Params() map[string]string {
	return map[string]string{
		FieldCustomerName:  d.CustomerName,
		FieldCustomerPhone: d.CustomerPhone,
		FieldCustomerEmail: d.CustomerEmail,
		FieldVehicleType:   string(d.VehicleType),
		FieldServiceType:   string(d.ServiceType),
		FieldDateTime:      d.DateTime,
		FieldNotes:         d.Notes,
	}
}

func (d *Draft) set(name, value string) error {
	switch name {
	case FieldCustomerName:
		d.CustomerName = value
	case FieldCustomerPhone:
		d.CustomerPhone = value
	case FieldCustomerEmail:
		d.CustomerEmail = value
	case FieldVehicleType:
		d.VehicleType = VehicleType(value)
	case FieldServiceType:
		d.ServiceType = ServiceType(value)
	case FieldDateTime:
		d.DateTime = value
	case FieldNotes:
		d.Notes = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}

	return nil
}
