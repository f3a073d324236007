package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oshinstar/accounts-apiserver/internal/services"
	"github.com/oshinstar/accounts-apiserver/internal/store"
	"github.com/oshinstar/accounts-apiserver/internal/token"
	"github.com/oshinstar/accounts-apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	eventRequestQR    = "request_qr"
	eventValidateTOTP = "validate_totp"
	eventDisable2FA   = "disable_2fa"
)

// AuthHandler provides login, token refresh, and two-factor endpoints.
type AuthHandler struct {
	userService      *services.UserService
	twoFactorService *services.TwoFactorService
	tokens           *token.Issuer
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, twoFactorService *services.TwoFactorService, tokens *token.Issuer) *AuthHandler {
	return &AuthHandler{
		userService:      userService,
		twoFactorService: twoFactorService,
		tokens:           tokens,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, twoFactorService *services.TwoFactorService, tokens *token.Issuer) {
	handler := NewAuthHandler(userService, twoFactorService, tokens)

	r.Post("/v1/login", handler.Login)
	r.Post("/v1/refresh", handler.Refresh)
	r.With(handler.RequireAuth).Get("/v1/user/me", handler.Me)
	r.Post("/v1/user/update_birthdate", handler.UpdateBirthdate)
	r.Post("/v3/auth", handler.TwoFactorEvent)
	r.Post("/v3/auth/update_password", handler.UpdatePassword)
}

// RequireAuth enforces bearer authentication and injects the subject
// into the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "no token provided")
			return
		}

		claims, err := h.tokens.Verify(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "failed to authenticate token")
			return
		}

		ctx := context.WithValue(r.Context(), contextSubjectKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Login verifies email/password credentials and issues a token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	pair, err := h.tokens.Issue(user.UserID, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	})
}

// Refresh exchanges a valid refresh token for a new access token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}

	accessToken, err := h.tokens.Refresh(req.Token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "failed to authenticate token")
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{Token: accessToken})
}

// Me returns the authenticated user's record.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

// TwoFactorEvent dispatches the two-factor operations multiplexed on a
// single endpoint by eventType.
func (h *AuthHandler) TwoFactorEvent(w http.ResponseWriter, r *http.Request) {
	var req TwoFactorEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.ClientID) == "" {
		writeError(w, http.StatusBadRequest, "clientId is required")
		return
	}

	switch req.EventType {
	case eventRequestQR:
		setup, err := h.twoFactorService.RequestSetup(r.Context(), req.ClientID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "User not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to set up two-factor")
			return
		}
		writeJSON(w, http.StatusOK, TwoFactorSetupResponse{
			Link:         setup.ProvisioningURI,
			Key:          setup.Secret,
			FormattedKey: setup.MaskedSecret,
		})
	case eventValidateTOTP:
		valid := h.twoFactorService.ValidateCode(r.Context(), req.ClientID, req.TOTP)
		writeJSON(w, http.StatusOK, TwoFactorValidateResponse{Valid: valid})
	case eventDisable2FA:
		if err := h.twoFactorService.Disable(r.Context(), req.ClientID); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to disable two-factor")
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	default:
		writeError(w, http.StatusBadRequest, "unknown event type")
	}
}

// UpdatePassword resets a user's password.
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.UserID) == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "User ID and new password are required")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	if err := h.userService.UpdatePassword(r.Context(), req.UserID, string(hashed)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password updated successfully"})
}

// UpdateBirthdate sets the user's birthdate. The field is one-time set;
// a repeat update is refused.
func (h *AuthHandler) UpdateBirthdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateBirthdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	err := h.userService.UpdateBirthdate(r.Context(), req.UserID, req.Day, req.Month, req.Year)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownMonth):
			writeError(w, http.StatusBadRequest, "invalid month")
		case errors.Is(err, services.ErrBirthdateLocked):
			writeError(w, http.StatusConflict, "birthdate can no longer be updated")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update birthdate")
		}
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Birthdate updated successfully"})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refreshToken"`
	User         types.User `json:"user"`
}

type RefreshRequest struct {
	Token string `json:"token"`
}

type RefreshResponse struct {
	Token string `json:"token"`
}

type UserResponse struct {
	User types.User `json:"user"`
}

type TwoFactorEventRequest struct {
	EventType string `json:"eventType"`
	ClientID  string `json:"clientId"`
	TOTP      string `json:"totp"`
}

type TwoFactorSetupResponse struct {
	Link         string `json:"link"`
	Key          string `json:"key"`
	FormattedKey string `json:"formattedKey"`
}

type TwoFactorValidateResponse struct {
	Valid bool `json:"valid"`
}

type UpdatePasswordRequest struct {
	UserID      string `json:"userId"`
	NewPassword string `json:"newPassword"`
}

type UpdateBirthdateRequest struct {
	UserID string `json:"userId"`
	Day    string `json:"day"`
	Month  string `json:"month"`
	Year   string `json:"year"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	value := strings.TrimSpace(parts[1])
	if value == "" {
		return "", errors.New("invalid authorization")
	}
	return value, nil
}
