// Package token mints and verifies the access/refresh token pair that
// backs API sessions.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oshinstar/accounts-apiserver/config"
)

// ErrInvalidToken is returned for expired, malformed, or badly signed
// tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are carried by both access and refresh tokens.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Pair is an issued access/refresh token pair.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Issuer signs and verifies session tokens. Access and refresh tokens
// are signed with distinct secrets and carry distinct lifetimes.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewIssuer(cfg config.JWTConfig) (*Issuer, error) {
	if strings.TrimSpace(cfg.AccessSecret) == "" || strings.TrimSpace(cfg.RefreshSecret) == "" {
		return nil, errors.New("jwt access and refresh secrets are required")
	}
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = 365 * 24 * time.Hour
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// Issue mints an access/refresh pair carrying the user's id and email.
func (i *Issuer) Issue(userID, email string) (Pair, error) {
	access, err := i.sign(userID, email, i.accessSecret, i.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.sign(userID, email, i.refreshSecret, i.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh verifies a refresh token and mints a new access token carrying
// the same claims.
func (i *Issuer) Refresh(refreshToken string) (string, error) {
	claims, err := i.parse(refreshToken, i.refreshSecret)
	if err != nil {
		return "", err
	}
	return i.sign(claims.UserID, claims.Email, i.accessSecret, i.accessTTL)
}

// Verify checks an access token and returns its claims.
func (i *Issuer) Verify(accessToken string) (Claims, error) {
	return i.parse(accessToken, i.accessSecret)
}

func (i *Issuer) sign(userID, email string, secret []byte, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(secret)
}

func (i *Issuer) parse(tokenString string, secret []byte) (Claims, error) {
	claims := Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
