package booking

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary(t *testing.T) {
	draft := Draft{
		CustomerName:  "Jane Doe",
		CustomerPhone: "0712345678",
		VehicleType:   VehicleMotorcycle,
		ServiceType:   ServiceDiagnostics,
		DateTime:      "2024-05-01T10:00",
	}

	expected := "MotorServe Booking Request:\nName: Jane Doe\nPhone: 0712345678\nEmail: \nVehicle: Motorcycle\nService: Diagnostics\nDate/Time: 2024-05-01T10:00\nNotes: "

	assert.Equal(t, expected, Summary(draft))
}

func TestWhatsAppLink(t *testing.T) {
	text := "MotorServe Booking Request:\nName: Jane & John\nNotes: 50% off + oil?"

	link := WhatsAppLink("254705639260", text)

	assert.Equal(t,
		"https://wa.me/254705639260?text=MotorServe%20Booking%20Request%3A%0AName%3A%20Jane%20%26%20John%0ANotes%3A%2050%25%20off%20%2B%20oil%3F",
		link,
	)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", parsed.Host)
	assert.Equal(t, "/254705639260", parsed.Path)
	assert.Equal(t, text, parsed.Query().Get("text"))
}

func TestWhatsAppLinkKeepsUnreservedMarks(t *testing.T) {
	text := "Notes: don't (ever) skip oil!"

	link := WhatsAppLink("254705639260", text)

	assert.Equal(t, "https://wa.me/254705639260?text=Notes%3A%20don't%20(ever)%20skip%20oil!", link)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, text, parsed.Query().Get("text"))
}

func TestEncodeComponent(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{in: "", expected: ""},
		{in: "a b", expected: "a%20b"},
		{in: "a+b", expected: "a%2Bb"},
		{in: "line\nbreak", expected: "line%0Abreak"},
		{in: "2024-05-01T10:00", expected: "2024-05-01T10%3A00"},
		{in: "can't (urgent)!", expected: "can't%20(urgent)!"},
		{in: "~*-_.", expected: "~*-_."},
		{in: "a%21b", expected: "a%2521b"},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, EncodeComponent(tc.in))
		})
	}
}
