// Package whatsapp delivers OTP codes through the WhatsApp Business API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/monitor-mbg/monitor_mbg/internal/apperr"
	"github.com/monitor-mbg/monitor_mbg/internal/config"
	"github.com/monitor-mbg/monitor_mbg/internal/otp"
)

const (
	templateName = "monitor_mbg_otp"
	templateLang = "id"
)

// Channel transmits an OTP code to a phone number through an external
// messaging provider.
type Channel interface {
	Enabled() bool
	Send(ctx context.Context, phone, code, referenceID string) error
}

// Client posts template messages to the WhatsApp Business API.
type Client struct {
	cfg    config.WhatsApp
	otpTTL time.Duration
	rules  otp.PhoneRules
	httpc  *http.Client
	logger *slog.Logger
}

// NewClient builds a WhatsApp client. The OTP TTL feeds the expiry-minutes
// template parameter.
func NewClient(cfg config.WhatsApp, otpTTL time.Duration, rules otp.PhoneRules, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		otpTTL: otpTTL,
		rules:  rules,
		httpc:  &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Enabled reports whether the feature toggle is on and every credential is
// configured.
func (c *Client) Enabled() bool {
	return c.cfg.Enabled && c.cfg.APIURL != "" && c.cfg.APIToken != "" && c.cfg.PhoneNumberID != ""
}

// Send posts the OTP template message. Any transport failure or non-2xx
// response maps to ServiceUnavailable.
func (c *Client) Send(ctx context.Context, phone, code, referenceID string) error {
	if !c.Enabled() {
		return apperr.ServiceUnavailable("WhatsApp service is not available")
	}

	to := c.rules.International(phone)
	payload := messageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "template",
		Template: template{
			Name:     templateName,
			Language: language{Code: templateLang},
			Components: []component{{
				Type: "body",
				Parameters: []parameter{
					{Type: "text", Text: code},
					{Type: "text", Text: fmt.Sprintf("%d", int(c.otpTTL.Minutes()))},
				},
			}},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Internal("encode whatsapp payload", err)
	}

	url := fmt.Sprintf("%s/%s/messages", strings.TrimSuffix(c.cfg.APIURL, "/"), c.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperr.Internal("build whatsapp request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Error("whatsapp request failed", slog.Any("error", err))
		return apperr.ServiceUnavailable("Failed to send WhatsApp message")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("whatsapp api error",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(detail)),
		)
		return apperr.ServiceUnavailable("Failed to send WhatsApp message")
	}

	c.logger.Info("otp sent",
		slog.String("to", to),
		slog.String("reference_id", referenceID),
	)
	return nil
}

type messageRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Template         template `json:"template"`
}

type template struct {
	Name       string      `json:"name"`
	Language   language    `json:"language"`
	Components []component `json:"components"`
}

type language struct {
	Code string `json:"code"`
}

type component struct {
	Type       string      `json:"type"`
	Parameters []parameter `json:"parameters"`
}

type parameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
