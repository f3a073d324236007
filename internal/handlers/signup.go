package handlers

import (
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

// SignupHandler provides account creation and phone/email verification
// endpoints.
type SignupHandler struct {
	userService         *services.UserService
	verificationService *services.VerificationService
	tokens              *token.Issuer
}

// NewSignupHandler constructs a SignupHandler with the provided dependencies.
func NewSignupHandler(userService *services.UserService, verificationService *services.VerificationService, tokens *token.Issuer) *SignupHandler {
	return &SignupHandler{
		userService:         userService,
		verificationService: verificationService,
		tokens:              tokens,
	}
}

// SignupRouter registers signup and verification routes on the given router.
func SignupRouter(r chi.Router, userService *services.UserService, verificationService *services.VerificationService, tokens *token.Issuer) {
	handler := NewSignupHandler(userService, verificationService, tokens)

	r.Post("/v1/user", handler.CreateUser)
	r.Post("/v1/user/email_exists", handler.EmailExists)
	r.Get("/v1/user/{userID}", handler.GetUser)
	r.Post("/v1/phone/verification", handler.VerifyPhone)
	r.Post("/v1/phone/validate", handler.ValidatePhone)
	r.Post("/v1/verify_email", handler.VerifyEmail)
	r.Post("/v1/validate_email", handler.ValidateEmail)
}

// CreateUser creates a new account, or applies a partial update when a
// userId is supplied. New accounts get a signed access token back.
func (h *SignupHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if req.UserID != "" {
		h.updateUser(w, r, req)
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "Email is required to create a new user")
		return
	}

	var passwordHash string
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to create user")
			return
		}
		passwordHash = string(hashed)
	}

	params := services.CreateParams{
		Email:        req.Email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Birthdate:    req.Birthdate,
		Gender:       req.Gender,
		Phone:        req.Phone,
		Location:     req.Location,
		Categories:   req.Categories,
	}
	if req.AccountType != nil {
		params.AccountType = *req.AccountType
	}

	user, err := h.userService.Create(r.Context(), params)
	if err != nil {
		if errors.Is(err, services.ErrEmailExists) {
			writeError(w, http.StatusConflict, "Email already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	pair, err := h.tokens.Issue(user.UserID, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusCreated, SignupResponse{Token: pair.AccessToken, User: user})
}

func (h *SignupHandler) updateUser(w http.ResponseWriter, r *http.Request, req UserUpsertRequest) {
	params := services.UpdateParams{
		AccountType:     req.AccountType,
		Categories:      req.Categories,
		IsPhoneVerified: req.IsPhoneVerified,
		IsEmailVerified: req.IsEmailVerified,
	}
	// Empty strings mean "leave unchanged" on update.
	if req.FirstName != "" {
		params.FirstName = &req.FirstName
	}
	if req.LastName != "" {
		params.LastName = &req.LastName
	}
	if req.Gender != "" {
		params.Gender = &req.Gender
	}
	if req.Phone != "" {
		params.Phone = &req.Phone
	}
	if req.Location != "" {
		params.Location = &req.Location
	}

	user, err := h.userService.Update(r.Context(), req.UserID, params)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	if req.Password != "" {
		hashed, hashErr := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			writeError(w, http.StatusInternalServerError, "failed to update user")
			return
		}
		if err := h.userService.UpdatePassword(r.Context(), req.UserID, string(hashed)); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to update user")
			return
		}
	}

	writeJSON(w, http.StatusOK, user)
}

// EmailExists reports whether the email is registered, via status code
// alone.
func (h *SignupHandler) EmailExists(w http.ResponseWriter, r *http.Request) {
	var req EmailExistsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	exists, err := h.userService.EmailExists(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check email")
		return
	}
	if !exists {
		writeJSON(w, http.StatusNotFound, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// GetUser returns a user record by id.
func (h *SignupHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// VerifyPhone sends a verification code to the user's phone by SMS or
// voice call.
func (h *SignupHandler) VerifyPhone(w http.ResponseWriter, r *http.Request) {
	var req VerifyPhoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	err := h.verificationService.SendPhoneCode(r.Context(), req.UserID, req.Phone, req.Method, req.EventType, req.AppSignature)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnsupportedMethod):
			writeError(w, http.StatusBadRequest, "Invalid verification method")
		case errors.Is(err, services.ErrTooManyAttempts):
			writeError(w, http.StatusTooManyRequests, "Too many requests")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

// ValidatePhone checks the submitted phone verification code.
func (h *SignupHandler) ValidatePhone(w http.ResponseWriter, r *http.Request) {
	var req ValidatePhoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	err := h.verificationService.ValidatePhoneCode(r.Context(), req.UserID, req.Code)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCode) {
			writeError(w, http.StatusUnauthorized, "Invalid verification code")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

// VerifyEmail sends a verification code to the account's email address.
func (h *SignupHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	err := h.verificationService.SendEmailCode(r.Context(), req.Email, req.UserID)
	if err != nil {
		if errors.Is(err, services.ErrEmailMismatch) {
			writeError(w, http.StatusBadRequest, "email does not match account")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

// ValidateEmail checks the submitted email verification code. The 301
// on mismatch is long-standing client-facing behavior.
func (h *SignupHandler) ValidateEmail(w http.ResponseWriter, r *http.Request) {
	var req ValidateEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	err := h.verificationService.ValidateEmailCode(r.Context(), req.UserID, req.Token)
	if err != nil {
		if errors.Is(err, services.ErrUserOrCodeMismatch) {
			writeJSON(w, http.StatusMovedPermanently, StatusResponse{Status: "Unauthorized. User does not exist"})
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "verified"})
}

type UserUpsertRequest struct {
	UserID          string   `json:"userId"`
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	FirstName       string   `json:"firstName"`
	LastName        string   `json:"lastName"`
	Gender          string   `json:"gender"`
	Birthdate       string   `json:"birthdate"`
	Phone           string   `json:"phone"`
	Location        string   `json:"location"`
	Categories      []string `json:"categories"`
	AccountType     *string  `json:"accountType"`
	IsPhoneVerified *bool    `json:"isPhoneVerified"`
	IsEmailVerified *bool    `json:"isEmailVerified"`
}

type SignupResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type EmailExistsRequest struct {
	Email string `json:"email"`
}

type VerifyPhoneRequest struct {
	UserID       string `json:"userId"`
	Phone        string `json:"phone"`
	Method       string `json:"method"`
	EventType    string `json:"eventType"`
	AppSignature string `json:"appSignature"`
}

type ValidatePhoneRequest struct {
	UserID string `json:"userId"`
	Code   string `json:"code"`
}

type VerifyEmailRequest struct {
	Email  string `json:"email"`
	UserID string `json:"userId"`
}

type ValidateEmailRequest struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

type StatusResponse struct {
	Status string `json:"status"`
}
