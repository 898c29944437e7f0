// Package auth registers and authenticates journal users, issues the signed
// session cookie and guards routes that require a signed-in user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/moodjournal/internal/logger"
	"github.com/patric-chuzhbe/moodjournal/internal/models"
	"github.com/patric-chuzhbe/moodjournal/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) error
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
}

type sessionManager interface {
	Create(ctx context.Context, sess *models.Session) (string, error)
	Get(ctx context.Context, token string) (*models.Session, error)
	Destroy(ctx context.Context, token string) error
	MaxAge() time.Duration
}

// Auth handles credentials, sessions and the session cookie.
type Auth struct {
	db       userKeeper
	sessions sessionManager

	cookieName      string
	cookieSecure    bool
	cookieSecretKey []byte
	bcryptCost      int

	// dummyHash is compared against when the email is unknown,
	// so both rejection paths cost one bcrypt comparison.
	dummyHash []byte
}

// Claims is the payload of the signed session cookie.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

const (
	// SessionKey is the context key of the *models.Session loaded for the request.
	SessionKey ContextKey = "session"

	// TokenKey is the context key of the raw session token.
	TokenKey ContextKey = "sessionToken"

	SignInPath = "/sign-in"
	HomePath   = "/"
)

// New builds the authenticator. cookieSecretKey signs the session cookie with HS256.
func New(
	db userKeeper,
	sessions sessionManager,
	cookieName string,
	cookieSecretKey []byte,
	cookieSecure bool,
	bcryptCost int,
) (*Auth, error) {
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("journal-dummy-password"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("in internal/auth/auth.go/New(): error while `bcrypt.GenerateFromPassword()` calling: %w", err)
	}

	return &Auth{
		db:              db,
		sessions:        sessions,
		cookieName:      cookieName,
		cookieSecure:    cookieSecure,
		cookieSecretKey: cookieSecretKey,
		bcryptCost:      bcryptCost,
		dummyHash:       dummyHash,
	}, nil
}

// Register stores a new user with a bcrypt hash of the password.
// Duplicate emails are not checked.
func (a *Auth) Register(ctx context.Context, request models.SignUpRequest) (*user.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), a.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("in internal/auth/auth.go/Register(): error while `bcrypt.GenerateFromPassword()` calling: %w", err)
	}

	usr := &user.User{
		ID:           uuid.New().String(),
		FirstName:    request.FirstName,
		LastName:     request.LastName,
		Email:        request.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := a.db.CreateUser(ctx, usr); err != nil {
		return nil, fmt.Errorf("in internal/auth/auth.go/Register(): error while `a.db.CreateUser()` calling: %w", err)
	}

	return usr, nil
}

// Authenticate checks the credentials and opens a session.
// Unknown email and wrong password both yield models.ErrInvalidCredentials.
func (a *Auth) Authenticate(ctx context.Context, email, password string) (*models.Session, string, error) {
	usr, err := a.db.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
			return nil, "", models.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("in internal/auth/auth.go/Authenticate(): error while `a.db.GetUserByEmail()` calling: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)); err != nil {
		return nil, "", models.ErrInvalidCredentials
	}

	sess := &models.Session{
		UserID:    usr.ID,
		FirstName: usr.FirstName,
		LastName:  usr.LastName,
		Email:     usr.Email,
	}

	token, err := a.sessions.Create(ctx, sess)
	if err != nil {
		return nil, "", fmt.Errorf("in internal/auth/auth.go/Authenticate(): error while `a.sessions.Create()` calling: %w", err)
	}

	return sess, token, nil
}

// EndSession destroys the session behind token. Failures wrap models.ErrSessionDestroy.
func (a *Auth) EndSession(ctx context.Context, token string) error {
	if err := a.sessions.Destroy(ctx, token); err != nil {
		if errors.Is(err, models.ErrSessionDestroy) {
			return err
		}
		return fmt.Errorf("%w: %w", models.ErrSessionDestroy, err)
	}

	return nil
}

// SetSessionCookie writes the signed cookie carrying token.
func (a *Auth) SetSessionCookie(response http.ResponseWriter, token string) error {
	expiresAt := time.Now().Add(a.sessions.MaxAge())

	cookieValue, err := a.buildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		SessionID: token,
	})
	if err != nil {
		return err
	}

	http.SetCookie(response, &http.Cookie{
		Name:     a.cookieName,
		Value:    cookieValue,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(a.sessions.MaxAge().Seconds()),
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// ClearSessionCookie expires the session cookie in the browser.
func (a *Auth) ClearSessionCookie(response http.ResponseWriter) {
	http.SetCookie(response, &http.Cookie{
		Name:     a.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookieSecure,
	})
}

// LoadSession resolves the session cookie, if any, and stores the session in the
// request context. A correctly signed token is kept in the context even when the
// session lookup fails, so sign-out can still destroy it.
func (a *Auth) LoadSession(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		token := a.getTokenFromCookie(request)
		if token == "" {
			h.ServeHTTP(response, request)
			return
		}

		ctx := context.WithValue(request.Context(), TokenKey, token)

		sess, err := a.sessions.Get(ctx, token)
		if err != nil {
			if !errors.Is(err, models.ErrSessionNotFound) && !errors.Is(err, models.ErrSessionExpired) {
				logger.Log.Errorw("Error calling the `a.sessions.Get()`", zap.Error(err))
			}
			h.ServeHTTP(response, request.WithContext(ctx))
			return
		}

		ctx = context.WithValue(ctx, SessionKey, sess)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// RequireSession answers 401 with a redirect hint to the sign-in page
// when the request carries no session.
func (a *Auth) RequireSession(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if SessionFromContext(request.Context()) == nil {
			WriteUnauthenticated(response)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// RedirectIfAuthenticated sends signed-in users to the home page.
func (a *Auth) RedirectIfAuthenticated(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if SessionFromContext(request.Context()) != nil {
			http.Redirect(response, request, HomePath, http.StatusFound)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// WriteUnauthenticated writes a 401 whose Location and body both point to the sign-in page.
func WriteUnauthenticated(response http.ResponseWriter) {
	response.Header().Set("Location", SignInPath)
	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.WriteHeader(http.StatusUnauthorized)
	_, _ = response.Write([]byte(`<!DOCTYPE html><html><head><meta http-equiv="refresh" content="0; url=` +
		SignInPath + `"></head><body><a href="` + SignInPath + `">Sign in</a></body></html>`))
}

// SessionFromContext returns the session set by LoadSession, or nil.
func SessionFromContext(ctx context.Context) *models.Session {
	sess, _ := ctx.Value(SessionKey).(*models.Session)
	return sess
}

// TokenFromContext returns the verified cookie token, or "" when there is none.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}

func (a *Auth) getTokenFromCookie(request *http.Request) string {
	cookie, err := request.Cookie(a.cookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return ""
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		cookie.Value,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.cookieSecretKey, nil
		},
	)
	if err != nil || !token.Valid {
		return ""
	}

	return claims.SessionID
}

func (a *Auth) buildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.cookieSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
