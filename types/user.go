package types

import "time"

// User represents an account in the system.
// It contains identity, profile, and verification state.
type User struct {
	// UserID is the opaque unique identifier of the user,
	// generated at creation and immutable afterwards.
	UserID string `json:"userId" db:"user_id"`

	// Email is the user's unique email address, stored as submitted.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// Accounts may exist before a password is set.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
	Username  string `json:"username" db:"username"`
	Gender    string `json:"gender" db:"gender"`
	Birthdate string `json:"birthdate" db:"birthdate"`
	Phone     string `json:"phone" db:"phone"`
	Location  string `json:"location" db:"location"`
	Hometown  string `json:"hometown" db:"hometown"`
	Address   string `json:"address" db:"address"`

	// Categories holds the industry category slugs the user selected.
	Categories []string `json:"categories" db:"categories"`

	AccountType string `json:"accountType" db:"account_type"`

	// SecretKey is the base32 TOTP secret, set on 2FA setup request.
	// Never exposed in API responses.
	SecretKey string `json:"-" db:"secret_key"`

	// HasTwoFactor is true only after a successful TOTP validation.
	HasTwoFactor bool `json:"hasTwoFactor" db:"has_two_factor"`

	IsPhoneVerified bool `json:"isPhoneVerified" db:"is_phone_verified"`
	IsEmailVerified bool `json:"isEmailVerified" db:"is_email_verified"`

	// EmailCode is the outstanding email verification code, if any.
	// Never exposed in API responses.
	EmailCode string `json:"-" db:"email_code"`

	// EmailCodeSentAt records when the outstanding email code was issued.
	EmailCodeSentAt time.Time `json:"-" db:"email_code_sent_at"`

	// Attempts counts phone-verification sends. It only grows; once it
	// reaches 3 the account can no longer request phone codes.
	Attempts int `json:"attempts" db:"attempts"`

	CanUpdatePhoneCode bool `json:"canUpdatePhoneCode" db:"can_update_phone_code"`

	// CanUpdateBirthdate is cleared after the first birthdate update.
	CanUpdateBirthdate bool `json:"canUpdateBirthdate" db:"can_update_birthdate"`

	MemberSince string `json:"memberSince" db:"member_since"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
