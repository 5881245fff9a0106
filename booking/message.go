package booking

import (
	"motorserve/common/constant"
	"net/url"
	"strings"
)

// Summary renders the plaintext WhatsApp message for a draft.
func Summary(d Draft) string {
	return strings.Join([]string{
		constant.WhatsAppSummaryHeader,
		"Name: " + d.CustomerName,
		"Phone: " + d.CustomerPhone,
		"Email: " + d.CustomerEmail,
		"Vehicle: " + string(d.VehicleType),
		"Service: " + string(d.ServiceType),
		"Date/Time: " + d.DateTime,
		"Notes: " + d.Notes,
	}, "\n")
}

// WhatsAppLink builds the wa.me deep link carrying text as a pre-filled message.
func WhatsAppLink(number, text string) string {
	return constant.WhatsAppBaseURL + number + "?text=" + EncodeComponent(text)
}

// componentUnescaper restores the characters encodeURIComponent leaves as
// they are, and turns '+' back into %20 since wa.me renders '+' literally.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent percent-encodes s for use as a single query value, with the
// same output as encodeURIComponent.
func EncodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
