package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"motorserve/booking"
	"motorserve/common"
	"motorserve/common/constant"
	"motorserve/common/errs"
	"motorserve/common/otel"
	"motorserve/model"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type SessionStore interface {
	Load(ctx context.Context, id string) (*booking.FormState, error)
	Save(ctx context.Context, snap booking.Snapshot) error
}

type BookingHttp struct {
	Sessions SessionStore
	Pipeline booking.Pipeline
	Validate *validator.Validate

	secureCookie bool
}

func RegisterBookingHttp(
	mux *http.ServeMux,
	cfg *viper.Viper,
	sessions SessionStore,
	pipeline booking.Pipeline,
	validate *validator.Validate,
) *BookingHttp {
	in := &BookingHttp{
		Sessions: sessions,
		Pipeline: pipeline,
		Validate: validate,

		secureCookie: cfg.GetBool("server.secure_cookie"),
	}

	mux.HandleFunc("GET /{$}", in.page)
	mux.HandleFunc("POST /booking", in.submitForm)

	mux.HandleFunc("GET /api/booking", in.state)
	mux.HandleFunc("PATCH /api/booking/fields", in.setField)
	mux.HandleFunc("POST /api/booking/submit", in.submit)

	return in
}

func (in BookingHttp) state(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := sessionID(w, r, in.secureCookie)

	form, err := in.Sessions.Load(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load booking form", slog.String(constant.LogFieldSession, id), slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toStateResponse(form.Snapshot(), ""))
}

func (in BookingHttp) setField(w http.ResponseWriter, r *http.Request) {
	var req model.SetBookingFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	value, err := normalizeFieldValue(req.Name, req.Value)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	ctx := r.Context()
	id := sessionID(w, r, in.secureCookie)
	sessionAttr := slog.String(constant.LogFieldSession, id)

	form, err := in.Sessions.Load(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load booking form", sessionAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	if form.Sending() {
		slog.DebugContext(ctx, "booking field rejected while in flight", sessionAttr, slog.String("field", req.Name))
		writeInFlightResponse(w, form)
		return
	}

	if err := form.SetField(req.Name, value); err != nil {
		writeErrorResponse(w, errs.ValidationFailed(map[string]string{"Name": "booking_field"}))
		return
	}

	if err := in.Sessions.Save(ctx, form.Snapshot()); err != nil {
		slog.ErrorContext(ctx, "failed to save booking form", sessionAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toStateResponse(form.Snapshot(), ""))
}

func (in BookingHttp) submit(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer.Start(r.Context(), "BookingHttp.submit")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	id := sessionID(w, r, in.secureCookie)
	sessionAttr := slog.String(constant.LogFieldSession, id)

	slog.InfoContext(ctx, "submit booking receive request", traceIdAttr, sessionAttr)

	form, err := in.loadObservedForm(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load booking form", traceIdAttr, sessionAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		writeErrorResponse(w, err)
		return
	}

	outcome, link, err := in.run(ctx, form)
	if errors.Is(err, booking.ErrInFlight) {
		slog.DebugContext(ctx, "booking already in flight", traceIdAttr, sessionAttr)
		writeInFlightResponse(w, form)
		return
	}
	if err != nil {
		common.UtilSpanError(span, err)
		writeErrorResponse(w, err)
		return
	}

	statusCode := http.StatusOK
	switch outcome {
	case booking.OutcomeRejected:
		statusCode = http.StatusUnprocessableEntity
	case booking.OutcomeFailed:
		statusCode = http.StatusBadGateway
	}

	slog.InfoContext(ctx, "submit booking done", traceIdAttr, sessionAttr, slog.Any(constant.LogFieldResponse, outcome.String()))

	writeJSONResponse(w, statusCode, toStateResponse(form.Snapshot(), link))
}

// loadObservedForm loads the session's form and persists every later
// mutation, so concurrent readers see the sending flag and the final status.
func (in BookingHttp) loadObservedForm(ctx context.Context, id string) (*booking.FormState, error) {
	form, err := in.Sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	saveCtx := context.WithoutCancel(ctx)
	form.Observe(func(snap booking.Snapshot) {
		if err := in.Sessions.Save(saveCtx, snap); err != nil {
			slog.ErrorContext(saveCtx, "failed to save booking form", slog.String(constant.LogFieldSession, snap.ID), slog.Any(constant.LogFieldErr, err))
		}
	})

	return form, nil
}

func (in BookingHttp) run(ctx context.Context, form *booking.FormState) (booking.Outcome, string, error) {
	collector := &linkCollector{}

	pipeline := in.Pipeline
	pipeline.Opener = collector

	outcome, err := pipeline.Submit(ctx, form)
	return outcome, collector.URL(), err
}

// writeInFlightResponse answers with the stored state untouched, so the
// in-flight submission stays the only writer of the session.
func writeInFlightResponse(w http.ResponseWriter, form *booking.FormState) {
	writeErrorResponse(w, &errs.HttpError{
		Code:    http.StatusConflict,
		Message: constant.MessageBookingInFlight,
		Data:    toStateResponse(form.Snapshot(), ""),
	})
}

func normalizeFieldValue(name, value string) (string, error) {
	switch name {
	case booking.FieldVehicleType:
		v, ok := booking.ParseVehicleType(value)
		if !ok {
			return "", errs.ValidationFailed(map[string]string{"Value": "vehicle_type"})
		}
		return string(v), nil
	case booking.FieldServiceType:
		v, ok := booking.ParseServiceType(value)
		if !ok {
			return "", errs.ValidationFailed(map[string]string{"Value": "service_type"})
		}
		return string(v), nil
	}

	return value, nil
}
