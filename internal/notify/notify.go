// Package notify delivers out-of-band verification messages over SMS,
// voice calls, and email.
package notify

import (
	"context"
	"errors"
)

// ErrChannelDisabled is returned when delivery is requested over a
// channel that was never configured.
var ErrChannelDisabled = errors.New("notification channel not configured")

// Notifier is the outbound delivery capability consumed by the
// verification flows.
type Notifier interface {
	// SendSMS delivers a text message to the given phone number.
	SendSMS(ctx context.Context, to, body string) error
	// PlaceCall initiates a voice call that reads the given script.
	PlaceCall(ctx context.Context, to, script string) error
	// SendEmail delivers an HTML email.
	SendEmail(ctx context.Context, to, subject, html string) error
}

// Client combines the SMS/voice and email providers into a single
// Notifier implementation.
type Client struct {
	twilio *TwilioClient
	mail   *MailSender
}

func NewClient(twilio *TwilioClient, mail *MailSender) *Client {
	return &Client{twilio: twilio, mail: mail}
}

func (c *Client) SendSMS(ctx context.Context, to, body string) error {
	if c.twilio == nil {
		return ErrChannelDisabled
	}
	return c.twilio.SendSMS(ctx, to, body)
}

func (c *Client) PlaceCall(ctx context.Context, to, script string) error {
	if c.twilio == nil {
		return ErrChannelDisabled
	}
	return c.twilio.PlaceCall(ctx, to, script)
}

func (c *Client) SendEmail(ctx context.Context, to, subject, html string) error {
	if c.mail == nil {
		return ErrChannelDisabled
	}
	return c.mail.Send(to, subject, html)
}
