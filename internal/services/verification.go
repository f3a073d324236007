package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/oshinstar/accounts-apiserver/internal/events"
	"github.com/oshinstar/accounts-apiserver/internal/notify"
	"github.com/oshinstar/accounts-apiserver/internal/otp"
	"github.com/oshinstar/accounts-apiserver/internal/store"
	"github.com/oshinstar/accounts-apiserver/types"
	"go.uber.org/zap"
)

const (
	// PhoneMethodSMS and PhoneMethodCall are the supported delivery
	// methods for phone verification codes.
	PhoneMethodSMS  = "sms"
	PhoneMethodCall = "call"

	// EventSetPrimaryPhone marks sends triggered by setting the primary
	// phone; these strip the international dialing prefix.
	EventSetPrimaryPhone = "set_primary_phone"

	phoneCodeDigits = 6
	emailCodeLength = 6

	// codeTTL bounds how long an issued verification code stays valid.
	// The account emails have always promised 24 hours.
	codeTTL = 24 * time.Hour

	emailSubject = "Action Required! Confirm your Oshinstar Account"

	emailConfirmBaseURL = "https://devservices.oshinstar.com/lambda/email-verifier"
)

const emailBodyTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Verify Email</title>
</head>
<body>
  <p>Action required: confirm your Oshinstar account</p>
  <p>Hello, <br/><br/>You recently signed up for Oshinstar. To complete the registration process, please confirm your account.</p>
  <p><strong>%s</strong></p>
  <p>Enter this code or click on the button below.</p>
  <a href="%s" style="display:inline-block; padding:10px 20px; color:#fff; background-color:#3AAEE0; text-decoration:none;">Click here to confirm your account</a>
  <p>Important: this code or link are valid for 24 hours, later you have to generate it again.</p>
  <p>Oshinstar helps you communicate and stay in touch with all your friends. Once you sign up for Oshinstar, you can share video, plan events and much more.</p>
</body>
</html>`

// VerificationService orchestrates phone and email verification: code
// issuance through the Notifier, attempt tracking, expiry, and
// validation.
type VerificationService struct {
	users      UserStore
	phoneCodes PhoneCodeStore
	notifier   notify.Notifier
	events     *events.Publisher
	logger     *zap.Logger
	now        func() time.Time
}

func NewVerificationService(
	users UserStore,
	phoneCodes PhoneCodeStore,
	notifier notify.Notifier,
	publisher *events.Publisher,
	logger *zap.Logger,
) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{
		users:      users,
		phoneCodes: phoneCodes,
		notifier:   notifier,
		events:     publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// SendPhoneCode issues a fresh 6-digit code and delivers it by SMS or
// voice call. Each successful dispatch consumes one of the user's three
// attempts; the third locks further sends. Delivery failure leaves all
// state untouched.
func (s *VerificationService) SendPhoneCode(ctx context.Context, userID, phone, method, eventType, appSignature string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Attempts >= 3 {
		return ErrTooManyAttempts
	}

	code, err := otp.VerificationCode(phoneCodeDigits)
	if err != nil {
		return err
	}

	switch method {
	case PhoneMethodSMS:
		body := fmt.Sprintf("Oshinstar - Your verification code is: %s", code)
		if appSignature != "" {
			body += "\n" + appSignature
		}
		if err := s.notifier.SendSMS(ctx, formatPhoneNumber(eventType, phone), body); err != nil {
			return fmt.Errorf("%w: %v", ErrDelivery, err)
		}
	case PhoneMethodCall:
		if err := s.notifier.PlaceCall(ctx, phone, callScript(code)); err != nil {
			return fmt.Errorf("%w: %v", ErrDelivery, err)
		}
	default:
		return ErrUnsupportedMethod
	}

	if _, err := s.users.IncrementAttempts(ctx, userID); err != nil {
		if errors.Is(err, store.ErrAttemptsExhausted) {
			return ErrTooManyAttempts
		}
		return err
	}

	return s.phoneCodes.Upsert(ctx, types.PhoneCode{
		UserID:       userID,
		Code:         code,
		Phone:        phone,
		CreationTime: s.now(),
	})
}

// ValidatePhoneCode checks the submitted code against the user's
// outstanding one. A match marks the phone verified and deletes the
// record, so each issued code succeeds at most once.
func (s *VerificationService) ValidatePhoneCode(ctx context.Context, userID, code string) error {
	pc, err := s.phoneCodes.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCode
		}
		return err
	}
	if pc.Code != code {
		return ErrInvalidCode
	}
	if s.now().Sub(pc.CreationTime) > codeTTL {
		return ErrInvalidCode
	}

	if err := s.users.MarkPhoneVerified(ctx, userID); err != nil {
		return err
	}
	if err := s.phoneCodes.Delete(ctx, userID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	s.events.Emit(ctx, events.TypePhoneVerified, userID)
	return nil
}

// SendEmailCode issues a verification code to the account's email
// address. The submitted address must match the stored one (ignoring
// case); the code is persisted only after the email is dispatched.
func (s *VerificationService) SendEmailCode(ctx context.Context, email, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrEmailMismatch
		}
		return err
	}
	if !strings.EqualFold(user.Email, email) {
		return ErrEmailMismatch
	}

	code, err := otp.EmailCode(emailCodeLength)
	if err != nil {
		return err
	}

	confirmURL := fmt.Sprintf("%s/%s/%s", emailConfirmBaseURL, url.PathEscape(email), code)
	body := fmt.Sprintf(emailBodyTemplate, code, confirmURL)
	if err := s.notifier.SendEmail(ctx, email, emailSubject, body); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	return s.users.SetEmailCode(ctx, userID, code, s.now())
}

// ValidateEmailCode marks the email verified when the user id and
// outstanding code both match and the code is still fresh. The code is
// cleared in the same update, so it cannot be replayed.
func (s *VerificationService) ValidateEmailCode(ctx context.Context, userID, code string) error {
	if code == "" {
		return ErrUserOrCodeMismatch
	}
	err := s.users.MarkEmailVerified(ctx, userID, code, s.now().Add(-codeTTL))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserOrCodeMismatch
		}
		return err
	}
	s.events.Emit(ctx, events.TypeEmailVerified, userID)
	return nil
}

// formatPhoneNumber strips everything up to and including the first '+'
// when the send was triggered by setting the primary phone.
func formatPhoneNumber(eventType, phone string) string {
	if eventType != EventSetPrimaryPhone {
		return phone
	}
	if i := strings.Index(phone, "+"); i >= 0 {
		return phone[i+1:]
	}
	return phone
}

// callScript builds the spoken-digit script for voice delivery. Digits
// are read individually and the code is repeated for clarity.
func callScript(code string) string {
	spaced := strings.Join(strings.Split(code, ""), " ")
	return fmt.Sprintf("Hello, your Oshinstar verification code is, %s. Your code is, %s", spaced, spaced)
}
