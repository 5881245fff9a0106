package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"motorserve/common"
	"motorserve/common/constant"
	"motorserve/common/contract"
	"motorserve/common/otel"
	"motorserve/model"
	"strings"
	"time"
)

type DispatchRequest struct {
	ServiceID  string
	TemplateID string
	PublicKey  string
	Params     map[string]string
}

// Dispatcher delivers a booking to the email provider.
type Dispatcher interface {
	Send(ctx context.Context, req DispatchRequest) error
}

// LinkOpener opens url in a new browsing context. It is fire-and-forget.
type LinkOpener interface {
	Open(ctx context.Context, url string)
}

// Locker guards a key across processes. ok is false when another holder
// already owns the key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), ok bool, err error)
}

type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeSent
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeFailed:
		return "failed"
	default:
		return "rejected"
	}
}

type Pipeline struct {
	Config     Config
	Dispatcher Dispatcher
	Opener     LinkOpener

	// Optional.
	Locker    Locker
	Publisher contract.Publisher

	TimeNow func() time.Time
}

// Validate applies the draft rules in order and returns the first failure.
func Validate(d Draft) error {
	switch {
	case strings.TrimSpace(d.CustomerName) == "":
		return &ValidationError{Field: FieldCustomerName, Message: constant.MessageNameRequired}
	case strings.TrimSpace(d.CustomerPhone) == "":
		return &ValidationError{Field: FieldCustomerPhone, Message: constant.MessagePhoneRequired}
	case strings.TrimSpace(d.DateTime) == "":
		return &ValidationError{Field: FieldDateTime, Message: constant.MessageDateTimeRequired}
	}

	return nil
}

// Submit runs validate, dispatch, notify and reset once against form. The
// result of the attempt is reported through form's status; the returned
// error is ErrInFlight when another submission holds the form, or a lock
// backend failure.
func (p Pipeline) Submit(ctx context.Context, form *FormState) (Outcome, error) {
	if form.Sending() {
		return OutcomeRejected, ErrInFlight
	}

	ctx, span := otel.Tracer.Start(ctx, "Pipeline.Submit")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	sessionAttr := slog.String(constant.LogFieldSession, form.ID())

	draft := form.Draft()
	if err := Validate(draft); err != nil {
		var validationErr *ValidationError
		errors.As(err, &validationErr)

		slog.DebugContext(ctx, "booking rejected", traceIdAttr, sessionAttr, slog.String("field", validationErr.Field))
		form.setStatus(Status{Kind: StatusError, Message: validationErr.Message})
		return OutcomeRejected, nil
	}

	release, err := p.acquire(ctx, form)
	if err != nil {
		if !errors.Is(err, ErrInFlight) {
			slog.ErrorContext(ctx, "failed to acquire sending lock", traceIdAttr, sessionAttr, slog.Any(constant.LogFieldErr, err))
			common.UtilSpanError(span, err)
		}
		return OutcomeRejected, err
	}
	defer release()

	if err := p.dispatch(ctx, draft); err != nil {
		slog.ErrorContext(ctx, "failed to dispatch booking", traceIdAttr, sessionAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		form.setStatus(Status{Kind: StatusError, Message: constant.MessageDispatchFailed})
		return OutcomeFailed, nil
	}

	form.setStatus(Status{Kind: StatusSuccess, Message: constant.MessageBookingSent})

	summary := Summary(draft)
	link := WhatsAppLink(p.Config.WhatsAppNumber, summary)
	if p.Opener != nil {
		p.Opener.Open(ctx, link)
	}

	form.reset()

	slog.InfoContext(ctx, "booking dispatched", traceIdAttr, sessionAttr, slog.Any(constant.LogFieldResponse, link))

	p.publish(ctx, form.ID(), draft, summary, link)

	return OutcomeSent, nil
}

// acquire takes the distributed lock first so a refused attempt leaves the
// form untouched.
func (p Pipeline) acquire(ctx context.Context, form *FormState) (func(), error) {
	unlock := func() {}
	if p.Locker != nil {
		u, ok, err := p.Locker.Lock(ctx, fmt.Sprintf(constant.BookingSendingLock, form.ID()))
		if err != nil {
			return nil, fmt.Errorf("lock booking: %w", err)
		}
		if !ok {
			return nil, ErrInFlight
		}
		unlock = u
	}

	release, ok := form.begin()
	if !ok {
		unlock()
		return nil, ErrInFlight
	}

	return func() {
		release()
		unlock()
	}, nil
}

func (p Pipeline) dispatch(ctx context.Context, draft Draft) (err error) {
	ctx, span := otel.Tracer.Start(ctx, "Pipeline.dispatch")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrDispatch, r)
		}
		common.UtilSpanError(span, err)
	}()

	if p.Dispatcher == nil {
		return fmt.Errorf("%w: no dispatcher configured", ErrDispatch)
	}

	err = p.Dispatcher.Send(ctx, DispatchRequest{
		ServiceID:  p.Config.ServiceID,
		TemplateID: p.Config.TemplateID,
		PublicKey:  p.Config.PublicKey,
		Params:     draft.Params(),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDispatch, err)
	}

	return nil
}

func (p Pipeline) publish(ctx context.Context, sessionID string, draft Draft, summary, link string) {
	if p.Publisher == nil {
		return
	}

	timeNow := p.TimeNow
	if timeNow == nil {
		timeNow = time.Now
	}

	err := common.PublishMessage(ctx, p.Publisher, constant.SubjectBookingDispatched, model.BookingDispatchedEventMessage{
		SessionID:    sessionID,
		Booking:      ToModel(draft),
		Summary:      summary,
		WhatsAppURL:  link,
		DispatchedAt: timeNow().Format(time.RFC3339),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to publish booking dispatched message", slog.Any(constant.LogFieldErr, err))
	}
}

func ToModel(d Draft) model.BookingDraft {
	return model.BookingDraft{
		CustomerName:  d.CustomerName,
		CustomerPhone: d.CustomerPhone,
		CustomerEmail: d.CustomerEmail,
		VehicleType:   string(d.VehicleType),
		ServiceType:   string(d.ServiceType),
		DateTime:      d.DateTime,
		Notes:         d.Notes,
	}
}
