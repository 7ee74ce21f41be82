package daemon

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Verifier checks control-surface credentials. A bearer value passes when
// it matches the configured bcrypt token hash, or when it verifies as an
// HS256 JWT against the signing secret. With neither configured every
// request passes, which is only sensible on a loopback bind.
type Verifier struct {
	tokenHash string
	jwtSecret string
}

// NewVerifier creates a verifier. Either argument may be empty.
func NewVerifier(tokenHash, jwtSecret string) *Verifier {
	return &Verifier{tokenHash: tokenHash, jwtSecret: jwtSecret}
}

// Enabled reports whether any credential is configured.
func (v *Verifier) Enabled() bool {
	return v.tokenHash != "" || v.jwtSecret != ""
}

// Verify checks one bearer credential against the configured secrets.
func (v *Verifier) Verify(token string) error {
	if !v.Enabled() {
		return nil
	}
	if token == "" {
		return fmt.Errorf("missing credentials")
	}
	if v.tokenHash != "" && bcrypt.CompareHashAndPassword([]byte(v.tokenHash), []byte(token)) == nil {
		return nil
	}
	if v.jwtSecret != "" {
		if err := v.validateJWT(token); err == nil {
			return nil
		}
	}
	return fmt.Errorf("invalid credentials")
}

func (v *Verifier) validateJWT(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return []byte(v.jwtSecret), nil
	})
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

// Middleware rejects requests that fail Verify with 401.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !v.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
			return
		}
		if err := v.Verify(parts[1]); err != nil {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HashToken derives the bcrypt hash stored in daemon.auth_token.
func HashToken(token string) (string, error) {
	if len(token) > 72 {
		return "", fmt.Errorf("token exceeds maximum length of 72 bytes")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hashed), nil
}

// GenerateToken mints an HS256 JWT the daemon accepts for ttl.
func GenerateToken(secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": "smelter",
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
