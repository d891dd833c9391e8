package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/tmvsalud/medtour/internal/domain/providers"
	"github.com/tmvsalud/medtour/pkg/config"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
	"github.com/tmvsalud/medtour/pkg/retry"
)

const defaultGraphURL = "https://graph.facebook.com/v18.0"

// WhatsAppCloudSender sends text messages through the WhatsApp Cloud API
type WhatsAppCloudSender struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
	retry         retry.Config
}

var _ providers.MessageSender = (*WhatsAppCloudSender)(nil)

// NewWhatsAppCloudSender creates a new WhatsApp sender
func NewWhatsAppCloudSender(cfg *config.WhatsAppConfig) (*WhatsAppCloudSender, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("WHATSAPP_ACCESS_TOKEN and WHATSAPP_PHONE_NUMBER_ID must be set")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGraphURL
	}

	return &WhatsAppCloudSender{
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		retry: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  500 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			BackoffFactor: 2,
		},
	}, nil
}

// textMessage is the Cloud API payload for a plain text message
type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText delivers body to the phone number to. Rate limiting and server
// errors are retried; any other rejection is returned at once.
func (w *WhatsAppCloudSender) SendText(ctx context.Context, to, body string) (string, error) {
	recipient := normalizeNumber(to)
	if recipient == "" {
		return "", apperrors.NewInvalidInputError("to", "recipient phone number is empty")
	}

	msg := textMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipient,
		Type:             "text",
	}
	msg.Text.Body = body

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	var messageID string
	err = retry.Do(ctx, w.retry, "whatsapp", func(ctx context.Context) error {
		id, err := w.post(ctx, payload)
		if err != nil {
			return err
		}
		messageID = id
		return nil
	}, func(attempt int, err error, next time.Duration) {
		log.Ctx(ctx).Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("whatsapp send failed, retrying")
	})
	if err != nil {
		return "", apperrors.NewExternalError("whatsapp delivery failed", err)
	}
	return messageID, nil
}

func (w *WhatsAppCloudSender) post(ctx context.Context, payload []byte) (string, error) {
	url := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", retry.Permanent(ctx.Err())
		}
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("WhatsApp API error (status %d): %s", resp.StatusCode, describe(body))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", apiErr
		}
		return "", retry.Permanent(apiErr)
	}

	var out sendResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to unmarshal response: %w", err))
	}
	if len(out.Messages) == 0 || out.Messages[0].ID == "" {
		return "", retry.Permanent(fmt.Errorf("no message ID in response"))
	}
	return out.Messages[0].ID, nil
}

// describe prefers the Graph API error message over the raw body
func describe(body []byte) string {
	var ge graphError
	if err := json.Unmarshal(body, &ge); err == nil && ge.Error.Message != "" {
		return fmt.Sprintf("%s (code %d)", ge.Error.Message, ge.Error.Code)
	}
	return strings.TrimSpace(string(body))
}

// normalizeNumber keeps digits only; the Cloud API expects the number without
// "+", spaces or dashes
func normalizeNumber(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
