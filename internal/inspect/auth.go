package inspect

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingToken   = errors.New("missing bearer token")
	ErrBadCredentials = errors.New("invalid credentials")
)

// Auth issues and validates the HS256 tokens guarding the inspector.
type Auth struct {
	secret       []byte
	ttl          time.Duration
	passwordHash string
}

// NewAuth creates an Auth signing with secret. Tokens expire after ttl; a
// zero ttl issues tokens without expiry.
func NewAuth(secret string, ttl time.Duration) (*Auth, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret is required")
	}
	return &Auth{secret: []byte(secret), ttl: ttl}, nil
}

// SetPasswordHash enables password logins checked against a bcrypt hash.
func (a *Auth) SetPasswordHash(hash string) error {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return fmt.Errorf("invalid password hash: %w", err)
	}
	a.passwordHash = hash
	return nil
}

// AcceptsPasswords reports whether a password hash is configured.
func (a *Auth) AcceptsPasswords() bool {
	return a.passwordHash != ""
}

// Issue generates a token for subject.
func (a *Auth) Issue(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
		Issuer:   "powerups",
	}
	if a.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Validate parses tokenString and returns its claims.
func (a *Auth) Validate(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// Middleware rejects requests without a valid token. The token is read from
// the Authorization header, or the token query parameter for websocket
// clients that cannot set headers.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, ErrMissingToken)
			return
		}
		if _, err := a.Validate(token); err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Subject  string `json:"subject"`
	Password string `json:"password"`
}

// HandleLogin exchanges a password for a token.
func (a *Auth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid login request: %w", err))
		return
	}
	if !a.AcceptsPasswords() || !CheckPassword(req.Password, a.passwordHash) {
		writeError(w, http.StatusUnauthorized, ErrBadCredentials)
		return
	}
	if req.Subject == "" {
		req.Subject = "powerups"
	}

	token, err := a.Issue(req.Subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// HashPassword hashes password with bcrypt. Passwords longer than 72 bytes
// are rejected.
func HashPassword(password string) (string, error) {
	if len(password) > 72 {
		return "", fmt.Errorf("password exceeds maximum length of 72 bytes")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword compares password with a bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
