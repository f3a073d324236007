package services

import (
	"context"
	"errors"
	"time"

	"github.com/oshinstar/accounts-apiserver/internal/events"
	"github.com/oshinstar/accounts-apiserver/internal/otp"
	"github.com/oshinstar/accounts-apiserver/internal/store"
	"go.uber.org/zap"
)

const totpIssuer = "oshinstar"

// TwoFactorSetup is the result of a 2FA setup request.
type TwoFactorSetup struct {
	ProvisioningURI string
	Secret          string
	MaskedSecret    string
}

// TwoFactorService drives the TOTP enrollment flow: a fresh secret is
// issued on request, and two-factor only turns on after the user proves
// possession by validating a code.
type TwoFactorService struct {
	users  UserStore
	events *events.Publisher
	logger *zap.Logger
	now    func() time.Time
}

func NewTwoFactorService(users UserStore, publisher *events.Publisher, logger *zap.Logger) *TwoFactorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TwoFactorService{
		users:  users,
		events: publisher,
		logger: logger,
		now:    time.Now,
	}
}

// RequestSetup generates a new TOTP secret for the user, overwriting any
// prior one, and returns the provisioning URI for the authenticator app.
// Re-running setup invalidates a previously scanned but unconfirmed code.
func (s *TwoFactorService) RequestSetup(ctx context.Context, userID string) (TwoFactorSetup, error) {
	secret, err := otp.GenerateSecret(otp.DefaultSecretBytes)
	if err != nil {
		return TwoFactorSetup{}, err
	}

	if err := s.users.SetSecret(ctx, userID, secret); err != nil {
		return TwoFactorSetup{}, err
	}

	return TwoFactorSetup{
		ProvisioningURI: otp.ProvisioningURI(totpIssuer, userID, secret),
		Secret:          secret,
		MaskedSecret:    otp.MaskSecret(secret),
	}, nil
}

// ValidateCode checks a submitted TOTP code against the user's stored
// secret and enables two-factor on success. Unknown users, malformed
// secrets, and storage failures all report false; the cause is logged
// but never raised to the caller.
func (s *TwoFactorService) ValidateCode(ctx context.Context, userID, code string) bool {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("load user for totp validation", zap.String("userId", userID), zap.Error(err))
		}
		return false
	}

	ok, err := otp.Validate(user.SecretKey, code, s.now())
	if err != nil {
		s.logger.Error("validate totp code", zap.String("userId", userID), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}

	if err := s.users.SetTwoFactor(ctx, userID, true); err != nil {
		s.logger.Error("enable two-factor", zap.String("userId", userID), zap.Error(err))
		return false
	}
	s.events.Emit(ctx, events.TypeTwoFactorEnabled, userID)
	return true
}

// Disable turns two-factor off. Idempotent; the stored secret is kept,
// so a later validation can re-enable without a new setup.
func (s *TwoFactorService) Disable(ctx context.Context, userID string) error {
	if err := s.users.SetTwoFactor(ctx, userID, false); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	s.events.Emit(ctx, events.TypeTwoFactorDisabled, userID)
	return nil
}
