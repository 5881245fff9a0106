package http

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"log/slog"
	"motorserve/booking"
	"motorserve/booking/mocks"
	"motorserve/common/constant"
	"motorserve/model"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type memorySessions struct {
	mu      sync.Mutex
	snaps   map[string]booking.Snapshot
	saves   int
	loadErr error
	saveErr error
}

func newMemorySessions() *memorySessions {
	return &memorySessions{snaps: make(map[string]booking.Snapshot)}
}

func (m *memorySessions) Load(_ context.Context, id string) (*booking.FormState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return nil, m.loadErr
	}
	snap, ok := m.snaps[id]
	if !ok {
		return booking.NewFormState(id), nil
	}
	return booking.RestoreFormState(snap), nil
}

func (m *memorySessions) Save(_ context.Context, snap booking.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.snaps[snap.ID] = snap
	return nil
}

func (m *memorySessions) get(id string) booking.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snaps[id]
}

type BookingHttpTestSuite struct {
	suite.Suite

	Cfg        *viper.Viper
	Sessions   *memorySessions
	Dispatcher *mocks.MockDispatcher
	Validate   *validator.Validate

	bookingHttp *BookingHttp
	session     string
}

func (s *BookingHttpTestSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())

	s.Cfg = viper.New()
	s.Cfg.Set("server.secure_cookie", false)

	s.Sessions = newMemorySessions()
	s.Dispatcher = mocks.NewMockDispatcher(ctrl)
	s.Validate = NewValidator()
	s.session = ulid.Make().String()

	s.bookingHttp = RegisterBookingHttp(
		http.NewServeMux(),
		s.Cfg,
		s.Sessions,
		booking.Pipeline{
			Config: booking.Config{
				ServiceID:      "service_motorserve",
				TemplateID:     "template_booking",
				PublicKey:      "pk_live",
				WhatsAppNumber: "254705639260",
			},
			Dispatcher: s.Dispatcher,
		},
		s.Validate,
	)

	slog.SetLogLoggerLevel(slog.LevelDebug)
}

func TestBookingHttpTestSuite(t *testing.T) {
	suite.Run(t, new(BookingHttpTestSuite))
}

func (s *BookingHttpTestSuite) newRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: constant.BookingSessionCookie, Value: s.session})
	return req
}

func (s *BookingHttpTestSuite) store(draft booking.Draft) {
	s.Require().NoError(s.Sessions.Save(context.Background(), booking.Snapshot{ID: s.session, Draft: draft}))
}

func (s *BookingHttpTestSuite) validDraft() booking.Draft {
	draft := booking.NewDraft()
	draft.CustomerName = "Jane Doe"
	draft.CustomerPhone = "0712345678"
	draft.VehicleType = booking.VehicleMotorcycle
	draft.ServiceType = booking.ServiceDiagnostics
	draft.DateTime = "2024-05-01T10:00"
	return draft
}

func (s *BookingHttpTestSuite) decodeState(w *httptest.ResponseRecorder) model.BookingStateResponse {
	var resp model.BookingStateResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *BookingHttpTestSuite) TestState() {
	s.Run("new session gets defaults and a cookie", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/booking", nil)
		w := httptest.NewRecorder()

		s.bookingHttp.state(w, req)

		s.Equal(http.StatusOK, w.Code)
		s.Equal(`{"draft":{"customer_name":"","customer_phone":"","customer_email":"","vehicle_type":"Car","service_type":"Repair","datetime":"","notes":""},"sending":false}`, strings.TrimSpace(w.Body.String()))
		s.Len(w.Result().Cookies(), 1)
	})

	s.Run("load error", func() {
		s.Sessions.loadErr = errors.New("redis down")
		defer func() { s.Sessions.loadErr = nil }()

		w := httptest.NewRecorder()
		s.bookingHttp.state(w, s.newRequest(http.MethodGet, "/api/booking", ""))

		s.Equal(http.StatusInternalServerError, w.Code)
		s.Equal(`{"error":"Internal Server Error"}`, strings.TrimSpace(w.Body.String()))
	})
}

func (s *BookingHttpTestSuite) TestSetField() {
	tests := []struct {
		name           string
		reqBody        string
		expectedStatus int
		expectedBody   string
		check          func(snap booking.Snapshot)
	}{
		{
			name:           "invalid json",
			reqBody:        `{invalid json`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Invalid request"}`,
		},
		{
			name:           "unknown field",
			reqBody:        `{"name": "customer_age", "value": "42"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Validation failed","data":{"Name":"booking_field"}}`,
		},
		{
			name:           "missing name",
			reqBody:        `{"value": "42"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Validation failed","data":{"Name":"required"}}`,
		},
		{
			name:           "unknown vehicle",
			reqBody:        `{"name": "vehicle_type", "value": "Boat"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Validation failed","data":{"Value":"vehicle_type"}}`,
		},
		{
			name:           "customer name",
			reqBody:        `{"name": "customer_name", "value": "Jane Doe"}`,
			expectedStatus: http.StatusOK,
			check: func(snap booking.Snapshot) {
				s.Equal("Jane Doe", snap.Draft.CustomerName)
				s.Equal(booking.VehicleCar, snap.Draft.VehicleType)
			},
		},
		{
			name:           "service normalised",
			reqBody:        `{"name": "service_type", "value": "parts replacement"}`,
			expectedStatus: http.StatusOK,
			check: func(snap booking.Snapshot) {
				s.Equal(booking.ServicePartsReplacement, snap.Draft.ServiceType)
			},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			w := httptest.NewRecorder()

			s.bookingHttp.setField(w, s.newRequest(http.MethodPatch, "/api/booking/fields", tc.reqBody))

			s.Equal(tc.expectedStatus, w.Code)
			if tc.expectedBody != "" {
				s.Equal(tc.expectedBody, strings.TrimSpace(w.Body.String()))
			}
			if tc.check != nil {
				tc.check(s.Sessions.get(s.session))
				tc.check(booking.Snapshot{Draft: s.toDraft(s.decodeState(w).Draft)})
			}
		})
	}
}

func (s *BookingHttpTestSuite) TestSetFieldSaveError() {
	s.Sessions.saveErr = errors.New("redis down")

	w := httptest.NewRecorder()
	s.bookingHttp.setField(w, s.newRequest(http.MethodPatch, "/api/booking/fields", `{"name": "notes", "value": "x"}`))

	s.Equal(http.StatusInternalServerError, w.Code)
}

func (s *BookingHttpTestSuite) toDraft(d model.BookingDraft) booking.Draft {
	return booking.Draft{
		CustomerName:  d.CustomerName,
		CustomerPhone: d.CustomerPhone,
		CustomerEmail: d.CustomerEmail,
		VehicleType:   booking.VehicleType(d.VehicleType),
		ServiceType:   booking.ServiceType(d.ServiceType),
		DateTime:      d.DateTime,
		Notes:         d.Notes,
	}
}

func (s *BookingHttpTestSuite) TestSubmit() {
	tests := []struct {
		name           string
		draft          booking.Draft
		setupMock      func()
		expectedStatus int
		check          func(resp model.BookingStateResponse, stored booking.Snapshot)
	}{
		{
			name:           "validation error",
			draft:          booking.Draft{CustomerName: "Jane Doe", CustomerPhone: "0712345678", VehicleType: booking.VehicleCar, ServiceType: booking.ServiceRepair},
			setupMock:      func() {},
			expectedStatus: http.StatusUnprocessableEntity,
			check: func(resp model.BookingStateResponse, stored booking.Snapshot) {
				s.Require().NotNil(resp.Status)
				s.Equal(model.BookingStatus{Type: "error", Message: constant.MessageDateTimeRequired}, *resp.Status)
				s.Empty(resp.WhatsAppURL)
				s.Equal("Jane Doe", stored.Draft.CustomerName)
				s.Equal(booking.StatusError, stored.Status.Kind)
			},
		},
		{
			name:  "dispatch failure",
			draft: s.validDraft(),
			setupMock: func() {
				s.Dispatcher.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("invalid public key"))
			},
			expectedStatus: http.StatusBadGateway,
			check: func(resp model.BookingStateResponse, stored booking.Snapshot) {
				s.Require().NotNil(resp.Status)
				s.Equal(constant.MessageDispatchFailed, resp.Status.Message)
				s.Equal("Jane Doe", resp.Draft.CustomerName)
				s.False(resp.Sending)
				s.False(stored.Sending)
				s.Equal("Jane Doe", stored.Draft.CustomerName)
			},
		},
		{
			name:  "success",
			draft: s.validDraft(),
			setupMock: func() {
				s.Dispatcher.EXPECT().Send(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, req booking.DispatchRequest) error {
						s.True(s.Sessions.get(s.session).Sending, "sending flag must be visible while in flight")
						s.Equal("Jane Doe", req.Params["customer_name"])
						return nil
					})
			},
			expectedStatus: http.StatusOK,
			check: func(resp model.BookingStateResponse, stored booking.Snapshot) {
				s.Require().NotNil(resp.Status)
				s.Equal(model.BookingStatus{Type: "success", Message: constant.MessageBookingSent}, *resp.Status)
				s.Equal("", resp.Draft.CustomerName)
				s.Equal("Car", resp.Draft.VehicleType)

				link, err := url.Parse(resp.WhatsAppURL)
				s.Require().NoError(err)
				s.Equal("wa.me", link.Host)
				s.Equal("/254705639260", link.Path)
				s.Contains(link.Query().Get("text"), "Name: Jane Doe\nPhone: 0712345678")

				s.Equal(booking.NewDraft(), stored.Draft)
				s.False(stored.Sending)
				s.Equal(booking.StatusSuccess, stored.Status.Kind)
			},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.store(tc.draft)
			tc.setupMock()

			w := httptest.NewRecorder()
			s.bookingHttp.submit(w, s.newRequest(http.MethodPost, "/api/booking/submit", ""))

			s.Equal(tc.expectedStatus, w.Code)
			tc.check(s.decodeState(w), s.Sessions.get(s.session))
		})
	}
}

func (s *BookingHttpTestSuite) TestSubmitInFlight() {
	s.Require().NoError(s.Sessions.Save(context.Background(), booking.Snapshot{ID: s.session, Draft: s.validDraft(), Sending: true}))

	w := httptest.NewRecorder()
	s.bookingHttp.submit(w, s.newRequest(http.MethodPost, "/api/booking/submit", ""))

	s.Equal(http.StatusConflict, w.Code)

	var resp model.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(constant.MessageBookingInFlight, resp.Error)
}

func (s *BookingHttpTestSuite) TestSetFieldWhileDispatching() {
	s.store(s.validDraft())

	entered := make(chan struct{})
	proceed := make(chan struct{})
	s.Dispatcher.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req booking.DispatchRequest) error {
			close(entered)
			<-proceed
			return errors.New("provider unavailable")
		})

	submitted := make(chan *httptest.ResponseRecorder)
	go func() {
		w := httptest.NewRecorder()
		s.bookingHttp.submit(w, s.newRequest(http.MethodPost, "/api/booking/submit", ""))
		submitted <- w
	}()

	<-entered

	w := httptest.NewRecorder()
	s.bookingHttp.setField(w, s.newRequest(http.MethodPatch, "/api/booking/fields", `{"name": "notes", "value": "brakes squeal"}`))

	s.Equal(http.StatusConflict, w.Code)

	var resp model.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(constant.MessageBookingInFlight, resp.Error)

	stored := s.Sessions.get(s.session)
	s.True(stored.Sending)
	s.Empty(stored.Draft.Notes)

	close(proceed)
	submitW := <-submitted

	s.Equal(http.StatusBadGateway, submitW.Code)

	stored = s.Sessions.get(s.session)
	s.False(stored.Sending)
	s.Equal(s.validDraft(), stored.Draft)
	s.Equal(constant.MessageDispatchFailed, stored.Status.Message)

	w = httptest.NewRecorder()
	s.bookingHttp.setField(w, s.newRequest(http.MethodPatch, "/api/booking/fields", `{"name": "notes", "value": "brakes squeal"}`))

	s.Equal(http.StatusOK, w.Code)
	s.Equal("brakes squeal", s.Sessions.get(s.session).Draft.Notes)
}

func (s *BookingHttpTestSuite) TestSubmitLoadError() {
	s.Sessions.loadErr = errors.New("redis down")

	w := httptest.NewRecorder()
	s.bookingHttp.submit(w, s.newRequest(http.MethodPost, "/api/booking/submit", ""))

	s.Equal(http.StatusInternalServerError, w.Code)
}

func (s *BookingHttpTestSuite) postForm(values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/booking", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: constant.BookingSessionCookie, Value: s.session})

	w := httptest.NewRecorder()
	s.bookingHttp.submitForm(w, req)
	return w
}

func (s *BookingHttpTestSuite) TestPage() {
	draft := booking.NewDraft()
	draft.CustomerName = "Jane Doe"
	s.store(draft)

	w := httptest.NewRecorder()
	s.bookingHttp.page(w, s.newRequest(http.MethodGet, "/", ""))

	s.Equal(http.StatusOK, w.Code)
	s.Equal("text/html; charset=utf-8", w.Header().Get("Content-Type"))
	s.Contains(w.Body.String(), `value="Jane Doe"`)
	s.Contains(w.Body.String(), html.EscapeString(constant.SubmitCaptionIdle))
	s.NotContains(w.Body.String(), "window.open")
}

func (s *BookingHttpTestSuite) TestSubmitForm() {
	valid := url.Values{
		booking.FieldCustomerName:  {"Jane Doe"},
		booking.FieldCustomerPhone: {"0712345678"},
		booking.FieldVehicleType:   {"generator"},
		booking.FieldServiceType:   {"Maintenance"},
		booking.FieldDateTime:      {"2024-05-01T10:00"},
	}

	s.Run("success opens whatsapp", func() {
		s.Dispatcher.EXPECT().Send(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req booking.DispatchRequest) error {
				s.Equal("Generator", req.Params["vehicle_type"])
				return nil
			})

		w := s.postForm(valid)

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), "window.open")
		s.Contains(w.Body.String(), constant.MessageBookingSent)
		s.Equal(booking.NewDraft(), s.Sessions.get(s.session).Draft)
	})

	s.Run("missing datetime", func() {
		values := url.Values{}
		for k, v := range valid {
			values[k] = v
		}
		values.Del(booking.FieldDateTime)

		w := s.postForm(values)

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), constant.MessageDateTimeRequired)
		s.NotContains(w.Body.String(), "window.open")
		s.Equal("Jane Doe", s.Sessions.get(s.session).Draft.CustomerName)
	})

	s.Run("invalid choice", func() {
		values := url.Values{}
		for k, v := range valid {
			values[k] = v
		}
		values.Set(booking.FieldVehicleType, "Boat")

		w := s.postForm(values)

		s.Equal(http.StatusBadRequest, w.Code)
		s.Contains(w.Body.String(), constant.MessageInvalidChoice)
	})

	s.Run("in flight", func() {
		s.Require().NoError(s.Sessions.Save(context.Background(), booking.Snapshot{ID: s.session, Draft: s.validDraft(), Sending: true}))

		w := s.postForm(valid)

		s.Equal(http.StatusConflict, w.Code)
		s.Contains(w.Body.String(), constant.SubmitCaptionBusy)

		stored := s.Sessions.get(s.session)
		s.True(stored.Sending)
		s.Equal(s.validDraft(), stored.Draft)
	})
}
