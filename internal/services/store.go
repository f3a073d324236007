package services

import (
	"context"
	"time"

	"github.com/oshinstar/accounts-apiserver/types"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByID(ctx context.Context, userID string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByEmailFold(ctx context.Context, email string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	SetSecret(ctx context.Context, userID, secret string) error
	SetTwoFactor(ctx context.Context, userID string, enabled bool) error
	SetEmailCode(ctx context.Context, userID, code string, sentAt time.Time) error
	MarkEmailVerified(ctx context.Context, userID, code string, notBefore time.Time) error
	MarkPhoneVerified(ctx context.Context, userID string) error
	IncrementAttempts(ctx context.Context, userID string) (int, error)
	SetBirthdate(ctx context.Context, userID, birthdate string) error
}

// PhoneCodeStore defines persistence operations for phone verification
// codes.
type PhoneCodeStore interface {
	GetByUserID(ctx context.Context, userID string) (types.PhoneCode, error)
	Upsert(ctx context.Context, pc types.PhoneCode) error
	Delete(ctx context.Context, userID string) error
}
