package handlers

import (
	"net/http"
	"testing"
	"time"

	potp "github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/oshinstar/accounts-apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hashed)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, types.User{
		UserID:       "u1",
		Email:        "jane@example.com",
		PasswordHash: hashPassword(t, "hunter22"),
	})

	rec := env.do(t, http.MethodPost, "/v1/login", LoginRequest{
		Email:    "jane@example.com",
		Password: "hunter22",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[LoginResponse](t, rec)
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "jane@example.com", resp.User.Email)

	claims, err := env.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t, types.User{
		UserID:       "u1",
		Email:        "jane@example.com",
		PasswordHash: hashPassword(t, "hunter22"),
	})

	rec := env.do(t, http.MethodPost, "/v1/login", LoginRequest{
		Email:    "jane@example.com",
		Password: "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/login", LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)

	pair, err := env.tokens.Issue("u1", "jane@example.com")
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/v1/refresh", RefreshRequest{Token: pair.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[RefreshResponse](t, rec)
	claims, err := env.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "jane@example.com", claims.Email)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)

	pair, err := env.tokens.Issue("u1", "jane@example.com")
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/v1/refresh", RefreshRequest{Token: pair.AccessToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshMissingToken(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/refresh", RefreshRequest{}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t, types.User{UserID: "u1", Email: "jane@example.com"})

	pair, err := env.tokens.Issue("u1", "jane@example.com")
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := env.do(t, http.MethodGet, "/v1/user/me", nil, header)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[UserResponse](t, rec)
	assert.Equal(t, "u1", resp.User.UserID)
}

func TestMeWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/user/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTwoFactorRequestQR(t *testing.T) {
	env := newTestEnv(t, types.User{UserID: "u1"})

	rec := env.do(t, http.MethodPost, "/v3/auth", TwoFactorEventRequest{
		EventType: "request_qr",
		ClientID:  "u1",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[TwoFactorSetupResponse](t, rec)
	assert.Contains(t, resp.Link, "otpauth://totp/")
	assert.Len(t, resp.Key, 32)
	assert.Equal(t, resp.Key[:5]+"...", resp.FormattedKey)
}

func TestTwoFactorValidateTOTP(t *testing.T) {
	env := newTestEnv(t, types.User{UserID: "u1"})

	rec := env.do(t, http.MethodPost, "/v3/auth", TwoFactorEventRequest{
		EventType: "request_qr",
		ClientID:  "u1",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	setup := decodeBody[TwoFactorSetupResponse](t, rec)

	code, err := totp.GenerateCodeCustom(setup.Key, time.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    potp.DigitsSix,
		Algorithm: potp.AlgorithmSHA1,
	})
	require.NoError(t, err)

	rec = env.do(t, http.MethodPost, "/v3/auth", TwoFactorEventRequest{
		EventType: "validate_totp",
		ClientID:  "u1",
		TOTP:      code,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[TwoFactorValidateResponse](t, rec).Valid)

	user, err := env.users.GetByID(t.Context(), "u1")
	require.NoError(t, err)
	assert.True(t, user.HasTwoFactor)
}

func TestTwoFactorValidateWrongCode(t *testing.T) {
	env := newTestEnv(t, types.User{UserID: "u1"})

	rec := env.do(t, http.MethodPost, "/v3/auth", TwoFactorEventRequest{
		EventType: "request_qr",
		ClientID:  "u1",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/v3/auth", TwoFactorEventRequest{
		EventType: "validate_totp",
		ClientID:  "u1",
		TOTP:      "000000",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[TwoFactorValidateResponse](t, rec).Valid)
}

func TestTwoFactorDisable(t *testing.T) {
	env := newTestEnv(t, types.User{UserID: "u1", HasTwoFactor: true, SecretKey: "S"})

	rec := env.do(t, http.MethodPost, "/v3/auth", TwoFactorEventRequest{
		EventType: "disable_2fa",
		ClientID:  "u1",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	user, err := env.users.GetByID(t.Context(), "u1")
	require.NoError(t, err)
	assert.False(t, user.HasTwoFactor)
}

func TestTwoFactorUnknownEventType(t *testing.T) {
	env := newTestEnv(t, types.User{UserID: "u1"})

	rec := env.do(t, http.MethodPost, "/v3/auth", TwoFactorEventRequest{
		EventType: "enable_flux_capacitor",
		ClientID:  "u1",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatePassword(t *testing.T) {
	env := newTestEnv(t, types.User{UserID: "u1", PasswordHash: hashPassword(t, "old")})

	rec := env.do(t, http.MethodPost, "/v3/auth/update_password", UpdatePasswordRequest{
		UserID:      "u1",
		NewPassword: "brand-new",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	user, err := env.users.GetByID(t.Context(), "u1")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("brand-new")))
}

func TestUpdatePasswordMissingFields(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v3/auth/update_password", UpdatePasswordRequest{UserID: "u1"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatePasswordUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v3/auth/update_password", UpdatePasswordRequest{
		UserID:      "missing",
		NewPassword: "whatever",
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateBirthdate(t *testing.T) {
	env := newTestEnv(t, types.User{UserID: "u1", CanUpdateBirthdate: true})

	rec := env.do(t, http.MethodPost, "/v1/user/update_birthdate", UpdateBirthdateRequest{
		UserID: "u1",
		Day:    "09",
		Month:  "March",
		Year:   "1994",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	user, err := env.users.GetByID(t.Context(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "1994-03-09T00:00:00.000Z", user.Birthdate)
}

func TestUpdateBirthdateLocked(t *testing.T) {
	env := newTestEnv(t, types.User{UserID: "u1", CanUpdateBirthdate: false})

	rec := env.do(t, http.MethodPost, "/v1/user/update_birthdate", UpdateBirthdateRequest{
		UserID: "u1",
		Day:    "09",
		Month:  "March",
		Year:   "1994",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
