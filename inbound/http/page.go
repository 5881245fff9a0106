package http

import (
	"bytes"
	_ "embed"
	"errors"
	"html/template"
	"log/slog"
	"motorserve/booking"
	"motorserve/common"
	"motorserve/common/constant"
	"motorserve/common/otel"
	"motorserve/model"
	"net/http"
	"time"
)

//go:embed templates/booking.html
var bookingPageHTML string

var bookingPage = template.Must(template.New("booking").Parse(bookingPageHTML))

type bookingPageData struct {
	Draft         booking.Draft
	Sending       bool
	Status        booking.Status
	WhatsAppURL   string
	SubmitCaption string
	VehicleTypes  []booking.VehicleType
	ServiceTypes  []booking.ServiceType
	Year          int
}

func newBookingPageData(snap booking.Snapshot, whatsAppURL string) bookingPageData {
	caption := constant.SubmitCaptionIdle
	if snap.Sending {
		caption = constant.SubmitCaptionBusy
	}

	return bookingPageData{
		Draft:         snap.Draft,
		Sending:       snap.Sending,
		Status:        snap.Status,
		WhatsAppURL:   whatsAppURL,
		SubmitCaption: caption,
		VehicleTypes:  booking.VehicleTypes,
		ServiceTypes:  booking.ServiceTypes,
		Year:          time.Now().Year(),
	}
}

func renderBookingPage(w http.ResponseWriter, statusCode int, data bookingPageData) {
	var buf bytes.Buffer
	if err := bookingPage.Execute(&buf, data); err != nil {
		slog.Error("failed to render booking page", slog.Any(constant.LogFieldErr, err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = buf.WriteTo(w)
}

func (in BookingHttp) page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := sessionID(w, r, in.secureCookie)

	form, err := in.Sessions.Load(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load booking form", slog.String(constant.LogFieldSession, id), slog.Any(constant.LogFieldErr, err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	renderBookingPage(w, http.StatusOK, newBookingPageData(form.Snapshot(), ""))
}

func (in BookingHttp) submitForm(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer.Start(r.Context(), "BookingHttp.submitForm")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	id := sessionID(w, r, in.secureCookie)
	sessionAttr := slog.String(constant.LogFieldSession, id)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	req := model.BookingFormRequest{
		CustomerName:  r.PostFormValue(booking.FieldCustomerName),
		CustomerPhone: r.PostFormValue(booking.FieldCustomerPhone),
		CustomerEmail: r.PostFormValue(booking.FieldCustomerEmail),
		VehicleType:   r.PostFormValue(booking.FieldVehicleType),
		ServiceType:   r.PostFormValue(booking.FieldServiceType),
		DateTime:      r.PostFormValue(booking.FieldDateTime),
		Notes:         r.PostFormValue(booking.FieldNotes),
	}

	form, err := in.loadObservedForm(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load booking form", traceIdAttr, sessionAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		slog.DebugContext(ctx, "booking form rejected", traceIdAttr, sessionAttr, slog.Any(constant.LogFieldErr, err))
		snap := form.Snapshot()
		snap.Status = booking.Status{Kind: booking.StatusError, Message: constant.MessageInvalidChoice}
		renderBookingPage(w, http.StatusBadRequest, newBookingPageData(snap, ""))
		return
	}

	if form.Sending() {
		slog.DebugContext(ctx, "booking form rejected while in flight", traceIdAttr, sessionAttr)
		renderBookingPage(w, http.StatusConflict, newBookingPageData(form.Snapshot(), ""))
		return
	}

	vehicle, _ := booking.ParseVehicleType(req.VehicleType)
	service, _ := booking.ParseServiceType(req.ServiceType)
	values := map[string]string{
		booking.FieldCustomerName:  req.CustomerName,
		booking.FieldCustomerPhone: req.CustomerPhone,
		booking.FieldCustomerEmail: req.CustomerEmail,
		booking.FieldVehicleType:   string(vehicle),
		booking.FieldServiceType:   string(service),
		booking.FieldDateTime:      req.DateTime,
		booking.FieldNotes:         req.Notes,
	}
	for _, field := range booking.Fields {
		if err := form.SetField(field, values[field]); err != nil {
			common.UtilSpanError(span, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	_, link, err := in.run(ctx, form)
	if errors.Is(err, booking.ErrInFlight) {
		renderBookingPage(w, http.StatusConflict, newBookingPageData(form.Snapshot(), ""))
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to submit booking", traceIdAttr, sessionAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	renderBookingPage(w, http.StatusOK, newBookingPageData(form.Snapshot(), link))
}
