// Package otp produces TOTP secrets, one-time verification codes, and
// provisioning URIs, and validates submitted TOTP codes against a stored
// secret.
package otp

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	potp "github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// DefaultSecretBytes is the raw entropy of a generated TOTP secret.
	DefaultSecretBytes = 20

	period = 30
	digits = 6
	// skew is the number of adjacent time steps accepted on either side
	// of the current one, absorbing client clock drift.
	skew = 1

	numericAlphabet = "0123456789"
	// emailAlphabet matches the digit alphabet used for email codes,
	// which never contain a zero.
	emailAlphabet = "123456789"
)

// GenerateSecret returns byteLength random bytes from a CSPRNG,
// base32-encoded without padding.
func GenerateSecret(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", errors.New("secret length must be positive")
	}
	raw := make([]byte, byteLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return enc.EncodeToString(raw), nil
}

// MaskSecret returns a short preview of a secret safe to display.
func MaskSecret(secret string) string {
	if len(secret) <= 5 {
		return secret + "..."
	}
	return secret[:5] + "..."
}

// ProvisioningURI builds an otpauth://totp/ URI an authenticator app can
// scan to register the secret.
func ProvisioningURI(issuer, account, secret string) string {
	label := url.PathEscape(issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("algorithm", "SHA1")
	v.Set("digits", strconv.Itoa(digits))
	v.Set("period", strconv.Itoa(period))

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Validate checks a submitted code against the secret at the given time,
// accepting one time step of drift either side. A malformed secret
// returns an error; a well-formed but wrong code returns false, nil.
func Validate(secret, code string, at time.Time) (bool, error) {
	if strings.TrimSpace(secret) == "" {
		return false, errors.New("empty totp secret")
	}
	return totp.ValidateCustom(strings.TrimSpace(code), secret, at, totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    potp.DigitsSix,
		Algorithm: potp.AlgorithmSHA1,
	})
}

// VerificationCode returns a fixed-length decimal code for phone
// verification.
func VerificationCode(length int) (string, error) {
	return randomCode(length, numericAlphabet)
}

// EmailCode returns a fixed-length code for email verification.
func EmailCode(length int) (string, error) {
	return randomCode(length, emailAlphabet)
}

func randomCode(length int, alphabet string) (string, error) {
	if length <= 0 {
		return "", errors.New("code length must be positive")
	}
	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}
