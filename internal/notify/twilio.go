package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/oshinstar/accounts-apiserver/config"
)

const twilioAPIVersion = "2010-04-01"

// TwilioClient sends SMS messages and places voice calls through the
// Twilio REST API.
type TwilioClient struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
}

func NewTwilioClient(cfg config.TwilioConfig) (*TwilioClient, error) {
	if strings.TrimSpace(cfg.AccountSID) == "" || strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, errors.New("twilio account sid and auth token are required")
	}
	if strings.TrimSpace(cfg.FromNumber) == "" {
		return nil, errors.New("twilio from number is required")
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}

	return &TwilioClient{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// SendSMS delivers a text message through the Messages endpoint.
func (t *TwilioClient) SendSMS(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.fromNumber)
	form.Set("Body", body)
	return t.post(ctx, "Messages.json", form)
}

// PlaceCall initiates a voice call that speaks the given script.
func (t *TwilioClient) PlaceCall(ctx context.Context, to, script string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.fromNumber)
	form.Set("Twiml", fmt.Sprintf("<Response><Say>%s</Say></Response>", html.EscapeString(script)))
	return t.post(ctx, "Calls.json", form)
}

func (t *TwilioClient) post(ctx context.Context, resource string, form url.Values) error {
	endpoint := fmt.Sprintf("%s/%s/Accounts/%s/%s", t.baseURL, twilioAPIVersion, t.accountSID, resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("twilio %s: status %d: %s", resource, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
