package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oshinstar/accounts-apiserver/internal/events"
	"github.com/oshinstar/accounts-apiserver/internal/store"
	"github.com/oshinstar/accounts-apiserver/types"
	"go.uber.org/zap"
)

var monthNumbers = map[string]string{
	"january":   "01",
	"february":  "02",
	"march":     "03",
	"april":     "04",
	"may":       "05",
	"june":      "06",
	"july":      "07",
	"august":    "08",
	"september": "09",
	"october":   "10",
	"november":  "11",
	"december":  "12",
}

// UserService owns account lifecycle: creation with username
// generation, profile updates, and guarded one-time fields.
type UserService struct {
	users  UserStore
	events *events.Publisher
	logger *zap.Logger
	now    func() time.Time
}

func NewUserService(users UserStore, publisher *events.Publisher, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:  users,
		events: publisher,
		logger: logger,
		now:    time.Now,
	}
}

// CreateParams carries the fields accepted at signup. PasswordHash is
// already hashed by the caller.
type CreateParams struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Birthdate    string
	Gender       string
	Phone        string
	Location     string
	Hometown     string
	Address      string
	AccountType  string
	Categories   []string
}

// Create registers a new account. The email must be unused; the
// username is derived from the name and suffixed with a counter until
// it is unique.
func (s *UserService) Create(ctx context.Context, p CreateParams) (types.User, error) {
	_, err := s.users.GetByEmail(ctx, p.Email)
	if err == nil {
		return types.User{}, ErrEmailExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	username, err := s.generateUsername(ctx, p.FirstName, p.LastName)
	if err != nil {
		return types.User{}, err
	}

	user := types.User{
		UserID:             uuid.NewString(),
		Email:              p.Email,
		PasswordHash:       p.PasswordHash,
		Username:           username,
		FirstName:          p.FirstName,
		LastName:           p.LastName,
		Birthdate:          p.Birthdate,
		Gender:             p.Gender,
		Phone:              p.Phone,
		Location:           p.Location,
		Hometown:           p.Hometown,
		Address:            p.Address,
		AccountType:        p.AccountType,
		Categories:         p.Categories,
		CanUpdatePhoneCode: true,
		CanUpdateBirthdate: true,
		MemberSince:        s.now().Format("2006-01-02"),
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return types.User{}, err
	}
	s.events.Emit(ctx, events.TypeUserCreated, created.UserID)
	return created, nil
}

// UpdateParams carries the mutable profile fields. Nil pointers leave
// the stored value untouched.
type UpdateParams struct {
	FirstName       *string
	LastName        *string
	Gender          *string
	Phone           *string
	Location        *string
	Hometown        *string
	Address         *string
	AccountType     *string
	Categories      []string
	IsPhoneVerified *bool
	IsEmailVerified *bool
}

// Update applies a partial profile update to an existing account.
func (s *UserService) Update(ctx context.Context, userID string, p UpdateParams) (types.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}

	if p.FirstName != nil {
		user.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		user.LastName = *p.LastName
	}
	if p.FirstName != nil && p.LastName != nil {
		username, err := s.generateUsername(ctx, user.FirstName, user.LastName)
		if err != nil {
			return types.User{}, err
		}
		user.Username = username
	}
	if p.Gender != nil {
		user.Gender = *p.Gender
	}
	if p.Phone != nil {
		user.Phone = *p.Phone
	}
	if p.Location != nil {
		user.Location = *p.Location
	}
	if p.Hometown != nil {
		user.Hometown = *p.Hometown
	}
	if p.Address != nil {
		user.Address = *p.Address
	}
	if p.AccountType != nil {
		user.AccountType = *p.AccountType
	}
	if p.Categories != nil {
		user.Categories = p.Categories
	}
	if p.IsPhoneVerified != nil {
		user.IsPhoneVerified = *p.IsPhoneVerified
	}
	if p.IsEmailVerified != nil {
		user.IsEmailVerified = *p.IsEmailVerified
	}

	return s.users.Update(ctx, user)
}

func (s *UserService) GetByID(ctx context.Context, userID string) (types.User, error) {
	return s.users.GetByID(ctx, userID)
}

// GetByEmail looks up a user by the email exactly as stored.
func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.users.GetByEmail(ctx, email)
}

// EmailExists reports whether an account with the exact email exists.
func (s *UserService) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UpdateBirthdate sets the birthdate once. The month comes in by name;
// a second update is refused.
func (s *UserService) UpdateBirthdate(ctx context.Context, userID, day, month, year string) error {
	mm, ok := monthNumbers[strings.ToLower(month)]
	if !ok {
		return ErrUnknownMonth
	}
	birthdate := fmt.Sprintf("%s-%s-%sT00:00:00.000Z", year, mm, day)

	err := s.users.SetBirthdate(ctx, userID, birthdate)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	// The conditional update matched no row: either the account is gone
	// or the birthdate was already set.
	if _, getErr := s.users.GetByID(ctx, userID); getErr != nil {
		return getErr
	}
	return ErrBirthdateLocked
}

// UpdatePassword replaces the stored password hash.
func (s *UserService) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return s.users.UpdatePassword(ctx, userID, passwordHash)
}

// generateUsername builds first.last in lowercase and appends an
// incrementing counter until the name is free.
func (s *UserService) generateUsername(ctx context.Context, firstname, lastname string) (string, error) {
	base := strings.ToLower(strings.TrimSpace(firstname) + "." + strings.TrimSpace(lastname))
	base = strings.ReplaceAll(base, " ", "")

	candidate := base
	for i := 1; ; i++ {
		_, err := s.users.GetByUsername(ctx, candidate)
		if errors.Is(err, store.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}
