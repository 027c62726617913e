package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

var smsHTTPClient = &http.Client{Timeout: 15 * time.Second}

// TwilioConfig holds outbound SMS credentials.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	// Skip logs the message instead of calling the API. Development only.
	Skip bool
}

// TwilioService delivers SMS messages through the Twilio REST API.
type TwilioService struct {
	cfg TwilioConfig
}

// NewTwilioService constructs a TwilioService.
func NewTwilioService(cfg TwilioConfig) *TwilioService {
	return &TwilioService{cfg: cfg}
}

// Send delivers a single SMS. With Skip enabled the message is logged and
// delivery is reported successful.
func (s *TwilioService) Send(ctx context.Context, to, message string) error {
	if s.cfg.Skip {
		log.Printf("[SMS skipped] to %s: %s", to, message)
		return nil
	}

	if s.cfg.AccountSID == "" || s.cfg.AuthToken == "" || s.cfg.FromNumber == "" {
		return errors.New("twilio credentials not configured")
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", twilioAPIBase, s.cfg.AccountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.cfg.FromNumber)
	form.Set("Body", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio request build: %w", err)
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := smsHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twilio send sms: status %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}
