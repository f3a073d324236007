package types

import "time"

// PhoneCode is the ephemeral phone verification record. There is at most
// one live record per user; repeat sends overwrite it in place and a
// successful validation deletes it.
type PhoneCode struct {
	UserID       string    `json:"userId" db:"user_id"`
	Code         string    `json:"-" db:"code"`
	Phone        string    `json:"phone" db:"phone"`
	CreationTime time.Time `json:"creationTime" db:"created_at"`
}
