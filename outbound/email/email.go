package email

import (
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/spf13/viper"
)

type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailOutbound delivers plaintext notifications to the workshop inbox.
type EmailOutbound struct {
	Cfg      *viper.Viper
	SendMail SendMailFunc

	auth     smtp.Auth
	addr     string
	from     string
	fromName string
}

func (out *EmailOutbound) Init() {
	host := out.Cfg.GetString("email.host")

	out.from = out.Cfg.GetString("email.user")
	out.fromName = out.Cfg.GetString("email.from_name")
	out.addr = fmt.Sprintf("%s:%d", host, out.Cfg.GetInt("email.port"))

	switch out.Cfg.GetString("email.auth") {
	case "plain":
		out.auth = smtp.PlainAuth("", out.Cfg.GetString("email.user"), out.Cfg.GetString("email.password"), host)
	default:
		out.auth = smtp.CRAMMD5Auth(out.Cfg.GetString("email.user"), out.Cfg.GetString("email.password"))
	}

	if out.SendMail == nil {
		out.SendMail = smtp.SendMail
	}
}

// Recipients returns the configured workshop inbox addresses.
func (out *EmailOutbound) Recipients() []string {
	return out.Cfg.GetStringSlice("email.notify_to")
}

func (out *EmailOutbound) Send(to []string, subject string, body string) error {
	from := out.from
	if out.fromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", out.fromName), out.from)
	}

	message := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s",
		from,
		strings.Join(to, ","),
		mime.QEncoding.Encode("utf-8", subject),
		body,
	))

	if err := out.SendMail(out.addr, out.auth, out.from, to, message); err != nil {
		return fmt.Errorf("send mail via %s: %w", out.addr, err)
	}

	return nil
}
