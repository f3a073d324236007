package services

import "errors"

var (
	// ErrInvalidCredential is returned when login email/password do not
	// match a stored account.
	ErrInvalidCredential = errors.New("invalid email or password")

	// ErrTooManyAttempts is returned once a user has exhausted their
	// phone verification sends.
	ErrTooManyAttempts = errors.New("too many verification attempts")

	// ErrInvalidCode is returned when a submitted phone code is absent,
	// wrong, or expired.
	ErrInvalidCode = errors.New("invalid verification code")

	// ErrUnsupportedMethod is returned for verification methods other
	// than sms and call.
	ErrUnsupportedMethod = errors.New("invalid verification method")

	// ErrEmailMismatch is returned when the submitted email does not
	// belong to the addressed account.
	ErrEmailMismatch = errors.New("email does not match account")

	// ErrUserOrCodeMismatch is returned when email validation finds no
	// account with the given user id and outstanding code.
	ErrUserOrCodeMismatch = errors.New("user or verification code mismatch")

	// ErrEmailExists is returned when creating an account with an email
	// that is already registered.
	ErrEmailExists = errors.New("email already exists")

	// ErrDelivery wraps notifier failures; no verification state is
	// mutated when it occurs.
	ErrDelivery = errors.New("verification delivery failed")

	// ErrBirthdateLocked is returned on a second birthdate update; the
	// field is one-time set.
	ErrBirthdateLocked = errors.New("birthdate can no longer be updated")

	// ErrUnknownMonth is returned for an unrecognized month name.
	ErrUnknownMonth = errors.New("unknown month")
)
