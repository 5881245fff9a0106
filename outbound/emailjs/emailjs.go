package emailjs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"motorserve/booking"
	"motorserve/common/otel"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultBaseURL = "https://api.emailjs.com"
	sendPath       = "/api/v1.0/email/send"
)

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
	AccessToken    string            `json:"accessToken,omitempty"`
}

// DispatchError is a non-2xx answer from the provider.
type DispatchError struct {
	StatusCode int
	Body       string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("emailjs responded %d: %s", e.StatusCode, e.Body)
}

// EmailJSOutbound sends bookings through the EmailJS REST API.
type EmailJSOutbound struct {
	Cfg    *viper.Viper
	Client *http.Client

	endpoint    string
	accessToken string
	origin      string
}

func (out *EmailJSOutbound) Init() {
	baseURL := out.Cfg.GetString("emailjs.base_url")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	out.endpoint = strings.TrimRight(baseURL, "/") + sendPath
	out.accessToken = out.Cfg.GetString("emailjs.access_token")
	out.origin = out.Cfg.GetString("emailjs.origin")

	if out.Client == nil {
		timeout := out.Cfg.GetDuration("emailjs.timeout")
		if timeout <= 0 {
			timeout = 20 * time.Second
		}

		out.Client = &http.Client{
			Timeout:   timeout,
			Transport: otel.Transport{},
		}
	}
}

func (out *EmailJSOutbound) Send(ctx context.Context, req booking.DispatchRequest) error {
	body, err := json.Marshal(sendRequest{
		ServiceID:      req.ServiceID,
		TemplateID:     req.TemplateID,
		UserID:         req.PublicKey,
		TemplateParams: req.Params,
		AccessToken:    out.accessToken,
	})
	if err != nil {
		return fmt.Errorf("marshal emailjs request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, out.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create emailjs request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if out.origin != "" {
		// Browser-only API keys are checked against the Origin header.
		httpReq.Header.Set("Origin", out.origin)
	}

	resp, err := out.Client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send emailjs request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &DispatchError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return nil
}
