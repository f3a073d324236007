package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oshinstar/accounts-apiserver/types"
)

// PhoneCodeRepository handles persistence for phone verification codes.
type PhoneCodeRepository struct {
	db *sql.DB
}

func NewPhoneCodeRepository(db *sql.DB) *PhoneCodeRepository {
	return &PhoneCodeRepository{db: db}
}

func (r *PhoneCodeRepository) GetByUserID(ctx context.Context, userID string) (types.PhoneCode, error) {
	const query = `
		SELECT user_id, code, phone, created_at
		FROM phone_codes
		WHERE user_id = $1`
	var pc types.PhoneCode
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&pc.UserID,
		&pc.Code,
		&pc.Phone,
		&pc.CreationTime,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.PhoneCode{}, ErrNotFound
		}
		return types.PhoneCode{}, err
	}
	return pc, nil
}

// Upsert stores the current code for a user, replacing any prior one so
// at most one record exists per user.
func (r *PhoneCodeRepository) Upsert(ctx context.Context, pc types.PhoneCode) error {
	if pc.CreationTime.IsZero() {
		pc.CreationTime = time.Now()
	}

	const query = `
		INSERT INTO phone_codes (user_id, code, phone, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET code = EXCLUDED.code,
			phone = EXCLUDED.phone,
			created_at = EXCLUDED.created_at`
	_, err := r.db.ExecContext(ctx, query, pc.UserID, pc.Code, pc.Phone, pc.CreationTime)
	return err
}

func (r *PhoneCodeRepository) Delete(ctx context.Context, userID string) error {
	const query = `DELETE FROM phone_codes WHERE user_id = $1`
	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}
