package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"motorserve/common/constant"
	"motorserve/model"
	"time"

	"github.com/oklog/ulid/v2"
)

type Mailer interface {
	Send(to []string, subject string, body string) error
}

// NotifyEvent forwards dispatched bookings to the workshop inbox.
type NotifyEvent struct {
	Mailer  Mailer
	To      []string
	Timeout time.Duration
}

func (in NotifyEvent) BookingDispatchedHandler(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, in.Timeout)
	defer cancel()

	var req model.BookingDispatchedEventMessage
	err := json.Unmarshal(msg, &req)
	if err != nil {
		slog.WarnContext(ctx, "booking dispatched event unmarshal error", slog.Any(constant.LogFieldErr, err))
		return nil
	}

	traceIdAttr := slog.String(constant.LogFieldTraceId, ulid.Make().String())
	sessionAttr := slog.String(constant.LogFieldSession, req.SessionID)

	if len(in.To) == 0 {
		slog.WarnContext(ctx, "booking dispatched event has no recipients", traceIdAttr, sessionAttr)
		return nil
	}

	subject := fmt.Sprintf(constant.EmailBookingNotificationSubject, req.Booking.CustomerName, req.Booking.ServiceType)
	body := fmt.Sprintf(constant.EmailBookingNotificationTemplate, req.Summary, req.WhatsAppURL)

	err = in.Mailer.Send(in.To, subject, body)
	if err != nil {
		slog.ErrorContext(ctx, "booking dispatched event send email error", slog.Any(constant.LogFieldErr, err), sessionAttr, traceIdAttr)
		return err
	}

	slog.InfoContext(ctx, "booking notification sent", sessionAttr, traceIdAttr)
	return nil
}
