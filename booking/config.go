package booking

import (
	"errors"
	"fmt"
	"motorserve/common/constant"
)

// Config identifies the email provider account and the WhatsApp destination.
// It is read once at startup and copied by value into Pipeline.
type Config struct {
	ServiceID      string
	TemplateID     string
	PublicKey      string
	WhatsAppNumber string
}

// Validate reports missing or malformed values. Placeholder provider tokens
// are accepted only when allowPlaceholders is set.
func (c Config) Validate(allowPlaceholders bool) error {
	var errs []error

	tokens := []struct {
		name        string
		value       string
		placeholder string
	}{
		{"service id", c.ServiceID, constant.PlaceholderEmailServiceID},
		{"template id", c.TemplateID, constant.PlaceholderEmailTemplateID},
		{"public key", c.PublicKey, constant.PlaceholderEmailPublicKey},
	}
	for _, token := range tokens {
		switch {
		case token.value == "":
			errs = append(errs, fmt.Errorf("email %s is not configured", token.name))
		case token.value == token.placeholder && !allowPlaceholders:
			errs = append(errs, fmt.Errorf("email %s is still the placeholder %q", token.name, token.value))
		}
	}

	if c.WhatsAppNumber == "" {
		errs = append(errs, errors.New("whatsapp number is not configured"))
	} else if !isDigits(c.WhatsAppNumber) {
		errs = append(errs, fmt.Errorf("whatsapp number %q must contain digits only", c.WhatsAppNumber))
	}

	return errors.Join(errs...)
}

// UsesPlaceholders reports whether any provider token is still a placeholder.
func (c Config) UsesPlaceholders() bool {
	return c.ServiceID == constant.PlaceholderEmailServiceID ||
		c.TemplateID == constant.PlaceholderEmailTemplateID ||
		c.PublicKey == constant.PlaceholderEmailPublicKey
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
