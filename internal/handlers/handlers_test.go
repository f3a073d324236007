package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oshinstar/accounts-apiserver/config"
	"github.com/oshinstar/accounts-apiserver/internal/services"
	"github.com/oshinstar/accounts-apiserver/internal/store"
	"github.com/oshinstar/accounts-apiserver/internal/token"
	"github.com/oshinstar/accounts-apiserver/types"
	"github.com/stretchr/testify/require"
)

type fakeUserStore struct {
	users map[string]*types.User
}

func newFakeUserStore(users ...types.User) *fakeUserStore {
	f := &fakeUserStore{users: make(map[string]*types.User)}
	for i := range users {
		u := users[i]
		f.users[u.UserID] = &u
	}
	return f
}

func (f *fakeUserStore) GetByID(_ context.Context, userID string) (types.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return *u, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return *u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserStore) GetByEmailFold(_ context.Context, email string) (types.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return *u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserStore) GetByUsername(_ context.Context, username string) (types.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return *u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserStore) Create(_ context.Context, user types.User) (types.User, error) {
	u := user
	f.users[u.UserID] = &u
	return u, nil
}

func (f *fakeUserStore) Update(_ context.Context, user types.User) (types.User, error) {
	u, ok := f.users[user.UserID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	*u = user
	return user, nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserStore) SetSecret(_ context.Context, userID, secret string) error {
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.SecretKey = secret
	return nil
}

func (f *fakeUserStore) SetTwoFactor(_ context.Context, userID string, enabled bool) error {
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.HasTwoFactor = enabled
	return nil
}

func (f *fakeUserStore) SetEmailCode(_ context.Context, userID, code string, sentAt time.Time) error {
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.EmailCode = code
	u.EmailCodeSentAt = sentAt
	return nil
}

func (f *fakeUserStore) MarkEmailVerified(_ context.Context, userID, code string, notBefore time.Time) error {
	u, ok := f.users[userID]
	if !ok || u.EmailCode == "" || u.EmailCode != code || u.EmailCodeSentAt.Before(notBefore) {
		return store.ErrNotFound
	}
	u.IsEmailVerified = true
	u.EmailCode = ""
	return nil
}

func (f *fakeUserStore) MarkPhoneVerified(_ context.Context, userID string) error {
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.IsPhoneVerified = true
	return nil
}

func (f *fakeUserStore) IncrementAttempts(_ context.Context, userID string) (int, error) {
	u, ok := f.users[userID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if u.Attempts >= 3 {
		return 0, store.ErrAttemptsExhausted
	}
	u.Attempts++
	u.CanUpdatePhoneCode = u.Attempts < 3
	return u.Attempts, nil
}

func (f *fakeUserStore) SetBirthdate(_ context.Context, userID, birthdate string) error {
	u, ok := f.users[userID]
	if !ok || !u.CanUpdateBirthdate {
		return store.ErrNotFound
	}
	u.Birthdate = birthdate
	u.CanUpdateBirthdate = false
	return nil
}

type fakePhoneCodeStore struct {
	codes map[string]types.PhoneCode
}

func newFakePhoneCodeStore() *fakePhoneCodeStore {
	return &fakePhoneCodeStore{codes: make(map[string]types.PhoneCode)}
}

func (f *fakePhoneCodeStore) GetByUserID(_ context.Context, userID string) (types.PhoneCode, error) {
	pc, ok := f.codes[userID]
	if !ok {
		return types.PhoneCode{}, store.ErrNotFound
	}
	return pc, nil
}

func (f *fakePhoneCodeStore) Upsert(_ context.Context, pc types.PhoneCode) error {
	f.codes[pc.UserID] = pc
	return nil
}

func (f *fakePhoneCodeStore) Delete(_ context.Context, userID string) error {
	if _, ok := f.codes[userID]; !ok {
		return store.ErrNotFound
	}
	delete(f.codes, userID)
	return nil
}

type fakeNotifier struct {
	smsBody   []string
	callTo    []string
	emailTo   []string
	emailBody []string
}

func (f *fakeNotifier) SendSMS(_ context.Context, to, body string) error {
	f.smsBody = append(f.smsBody, body)
	return nil
}

func (f *fakeNotifier) PlaceCall(_ context.Context, to, script string) error {
	f.callTo = append(f.callTo, to)
	return nil
}

func (f *fakeNotifier) SendEmail(_ context.Context, to, subject, html string) error {
	f.emailTo = append(f.emailTo, to)
	f.emailBody = append(f.emailBody, html)
	return nil
}

type testEnv struct {
	router   *chi.Mux
	users    *fakeUserStore
	codes    *fakePhoneCodeStore
	notifier *fakeNotifier
	tokens   *token.Issuer
}

func newTestEnv(t *testing.T, seed ...types.User) *testEnv {
	t.Helper()

	users := newFakeUserStore(seed...)
	codes := newFakePhoneCodeStore()
	notifier := &fakeNotifier{}

	tokens, err := token.NewIssuer(config.JWTConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
	})
	require.NoError(t, err)

	userService := services.NewUserService(users, nil, nil)
	twoFactorService := services.NewTwoFactorService(users, nil, nil)
	verificationService := services.NewVerificationService(users, codes, notifier, nil, nil)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	AuthRouter(router, userService, twoFactorService, tokens)
	SignupRouter(router, userService, verificationService, tokens)
	CoreRouter(router)

	return &testEnv{
		router:   router,
		users:    users,
		codes:    codes,
		notifier: notifier,
		tokens:   tokens,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
