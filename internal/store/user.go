package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/oshinstar/accounts-apiserver/types"
)

// maxPhoneAttempts is the hard cap on phone-verification sends per user.
const maxPhoneAttempts = 3

// ErrAttemptsExhausted is returned when the attempts counter is already
// at the cap and cannot be incremented further.
var ErrAttemptsExhausted = errors.New("phone verification attempts exhausted")

const userColumns = `
	user_id, email, password_hash, first_name, last_name, username, gender,
	birthdate, phone, location, hometown, address, categories, account_type,
	secret_key, has_two_factor, is_phone_verified, is_email_verified,
	email_code, email_code_sent_at, attempts, can_update_phone_code,
	can_update_birthdate, member_since, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	return r.queryOne(ctx, query, userID)
}

// GetByEmail looks up a user by the email exactly as stored.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.queryOne(ctx, query, email)
}

// GetByEmailFold looks up a user by email, ignoring case.
func (r *UserRepository) GetByEmailFold(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return r.queryOne(ctx, query, email)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.queryOne(ctx, query, username)
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	categoriesJSON, err := json.Marshal(user.Categories)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		INSERT INTO users (
			user_id, email, password_hash, first_name, last_name, username,
			gender, birthdate, phone, location, hometown, address, categories,
			account_type, secret_key, has_two_factor, is_phone_verified,
			is_email_verified, email_code, email_code_sent_at, attempts,
			can_update_phone_code, can_update_birthdate, member_since,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`
	_, err = r.db.ExecContext(
		ctx,
		query,
		user.UserID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Username,
		user.Gender,
		user.Birthdate,
		user.Phone,
		user.Location,
		user.Hometown,
		user.Address,
		categoriesJSON,
		user.AccountType,
		user.SecretKey,
		user.HasTwoFactor,
		user.IsPhoneVerified,
		user.IsEmailVerified,
		user.EmailCode,
		user.EmailCodeSentAt,
		user.Attempts,
		user.CanUpdatePhoneCode,
		user.CanUpdateBirthdate,
		user.MemberSince,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now()

	categoriesJSON, err := json.Marshal(user.Categories)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		UPDATE users
		SET email = $1,
			password_hash = $2,
			first_name = $3,
			last_name = $4,
			username = $5,
			gender = $6,
			birthdate = $7,
			phone = $8,
			location = $9,
			hometown = $10,
			address = $11,
			categories = $12,
			account_type = $13,
			is_phone_verified = $14,
			is_email_verified = $15,
			updated_at = $16
		WHERE user_id = $17`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Username,
		user.Gender,
		user.Birthdate,
		user.Phone,
		user.Location,
		user.Hometown,
		user.Address,
		categoriesJSON,
		user.AccountType,
		user.IsPhoneVerified,
		user.IsEmailVerified,
		user.UpdatedAt,
		user.UserID,
	)
	if err != nil {
		return types.User{}, err
	}
	if err := requireAffected(result); err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $1, updated_at = now()
		WHERE user_id = $2`
	result, err := r.db.ExecContext(ctx, query, passwordHash, userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// SetSecret overwrites the stored TOTP secret unconditionally. Re-running
// setup invalidates any previously issued, not-yet-confirmed secret.
func (r *UserRepository) SetSecret(ctx context.Context, userID, secret string) error {
	const query = `
		UPDATE users
		SET secret_key = $1, updated_at = now()
		WHERE user_id = $2`
	result, err := r.db.ExecContext(ctx, query, secret, userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *UserRepository) SetTwoFactor(ctx context.Context, userID string, enabled bool) error {
	const query = `
		UPDATE users
		SET has_two_factor = $1, updated_at = now()
		WHERE user_id = $2`
	result, err := r.db.ExecContext(ctx, query, enabled, userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *UserRepository) SetEmailCode(ctx context.Context, userID, code string, sentAt time.Time) error {
	const query = `
		UPDATE users
		SET email_code = $1, email_code_sent_at = $2, updated_at = now()
		WHERE user_id = $3`
	result, err := r.db.ExecContext(ctx, query, code, sentAt, userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// MarkEmailVerified flips the verified flag and clears the outstanding
// code in one statement, so a code validates exactly once. notBefore is
// the oldest acceptable issuance time for the code.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, userID, code string, notBefore time.Time) error {
	const query = `
		UPDATE users
		SET is_email_verified = TRUE, email_code = '', updated_at = now()
		WHERE user_id = $1 AND email_code = $2 AND email_code <> ''
			AND email_code_sent_at >= $3`
	result, err := r.db.ExecContext(ctx, query, userID, code, notBefore)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *UserRepository) MarkPhoneVerified(ctx context.Context, userID string) error {
	const query = `
		UPDATE users
		SET is_phone_verified = TRUE, updated_at = now()
		WHERE user_id = $1`
	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// IncrementAttempts bumps the phone-verification counter with a single
// conditional update so concurrent sends cannot race past the cap. The
// third increment clears can_update_phone_code. Returns the new count.
func (r *UserRepository) IncrementAttempts(ctx context.Context, userID string) (int, error) {
	const query = `
		UPDATE users
		SET attempts = attempts + 1,
			can_update_phone_code = (attempts + 1 < $2),
			updated_at = now()
		WHERE user_id = $1 AND attempts < $2
		RETURNING attempts`
	var attempts int
	err := r.db.QueryRowContext(ctx, query, userID, maxPhoneAttempts).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the user does not exist or the cap was reached.
			if _, lookupErr := r.GetByID(ctx, userID); lookupErr != nil {
				return 0, lookupErr
			}
			return 0, ErrAttemptsExhausted
		}
		return 0, err
	}
	return attempts, nil
}

// SetBirthdate stores the birthdate only while the one-time-set flag is
// still true, clearing it in the same statement.
func (r *UserRepository) SetBirthdate(ctx context.Context, userID, birthdate string) error {
	const query = `
		UPDATE users
		SET birthdate = $1, can_update_birthdate = FALSE, updated_at = now()
		WHERE user_id = $2 AND can_update_birthdate`
	result, err := r.db.ExecContext(ctx, query, birthdate, userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *UserRepository) queryOne(ctx context.Context, query string, arg any) (types.User, error) {
	var (
		user           types.User
		categoriesJSON []byte
		emailSentAt    sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.UserID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.Gender,
		&user.Birthdate,
		&user.Phone,
		&user.Location,
		&user.Hometown,
		&user.Address,
		&categoriesJSON,
		&user.AccountType,
		&user.SecretKey,
		&user.HasTwoFactor,
		&user.IsPhoneVerified,
		&user.IsEmailVerified,
		&user.EmailCode,
		&emailSentAt,
		&user.Attempts,
		&user.CanUpdatePhoneCode,
		&user.CanUpdateBirthdate,
		&user.MemberSince,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	_ = json.Unmarshal(categoriesJSON, &user.Categories)
	if emailSentAt.Valid {
		user.EmailCodeSentAt = emailSentAt.Time
	}
	return user, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
