package transport

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authentication errors surfaced by Authenticator.Wrap as HTTP 401s.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidAPIKey     = errors.New("invalid API key")
	ErrMissingAuthHeader = errors.New("missing authorization header")
)

type authContextKey string

const (
	ctxKeyUser       authContextKey = "auth:user"
	ctxKeyAuthMethod authContextKey = "auth:method"
	ctxKeyClaims     authContextKey = "auth:claims"
)

// AuthMethod names a way a request authenticated.
type AuthMethod string

const (
	AuthMethodJWT    AuthMethod = "jwt"
	AuthMethodAPIKey AuthMethod = "api_key"
)

// User is the authenticated principal attached to a request's context.
type User struct {
	ID       string
	Username string
	Email    string
	Roles    []string
	Metadata map[string]interface{}
}

// AuthConfig configures an Authenticator. The HTTP transport is the only
// layer that enforces authentication; the core dispatcher and middleware
// pipeline are identity-agnostic.
type AuthConfig struct {
	JWTSecret     string
	JWTIssuer     string
	JWTAudience   []string
	JWTExpiration time.Duration

	APIKeys      map[string]*User
	APIKeyHeader string

	RequireAuth    bool
	AllowedMethods []AuthMethod
	Logger         *slog.Logger
}

// DefaultAuthConfig returns a permissive-by-method, strict-by-default
// configuration: both JWT and API-key auth accepted, authentication
// required.
func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		JWTExpiration:  24 * time.Hour,
		APIKeyHeader:   "X-API-Key",
		RequireAuth:    true,
		AllowedMethods: []AuthMethod{AuthMethodJWT, AuthMethodAPIKey},
		APIKeys:        make(map[string]*User),
		Logger:         slog.Default(),
	}
}

// Authenticator validates inbound HTTP requests before they reach the MCP
// handler.
type Authenticator struct {
	config *AuthConfig
}

// NewAuthenticator wraps config, applying defaults for zero-valued fields.
func NewAuthenticator(config *AuthConfig) *Authenticator {
	if config == nil {
		config = DefaultAuthConfig()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.APIKeyHeader == "" {
		config.APIKeyHeader = "X-API-Key"
	}
	if len(config.AllowedMethods) == 0 {
		config.AllowedMethods = []AuthMethod{AuthMethodJWT, AuthMethodAPIKey}
	}
	return &Authenticator{config: config}
}

// Wrap returns an http.Handler that authenticates each request before
// delegating to next. When RequireAuth is set and authentication fails, it
// writes a 401 and never calls next; otherwise next runs, with the user
// attached to the request context only if authentication succeeded.
func (a *Authenticator) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" && a.config.RequireAuth {
			a.config.Logger.WarnContext(r.Context(), "missing authorization header")
			http.Error(w, ErrMissingAuthHeader.Error(), http.StatusUnauthorized)
			return
		}

		var user *User
		var method AuthMethod
		var claims jwt.MapClaims
		var err error

		if a.allowed(AuthMethodJWT) && strings.HasPrefix(authHeader, "Bearer ") {
			user, claims, err = a.authenticateJWT(strings.TrimPrefix(authHeader, "Bearer "))
			if err == nil {
				method = AuthMethodJWT
			}
		}

		if user == nil && a.allowed(AuthMethodAPIKey) {
			if apiKey := a.extractAPIKey(r, authHeader); apiKey != "" {
				user, err = a.authenticateAPIKey(apiKey)
				if err == nil {
					method = AuthMethodAPIKey
				}
			}
		}

		if user == nil && a.config.RequireAuth {
			a.config.Logger.WarnContext(r.Context(), "authentication failed", "error", err)
			http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
			return
		}

		if user != nil {
			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			ctx = context.WithValue(ctx, ctxKeyAuthMethod, method)
			if claims != nil {
				ctx = context.WithValue(ctx, ctxKeyClaims, claims)
			}
			r = r.WithContext(ctx)
			a.config.Logger.InfoContext(r.Context(), "authenticated request", "user_id", user.ID, "method", method)
		}

		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) authenticateJWT(tokenString string) (*User, jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.config.JWTSecret), nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, nil, fmt.Errorf("invalid claims format")
	}
	if err := a.validateClaims(claims); err != nil {
		return nil, nil, err
	}

	user := &User{Metadata: make(map[string]interface{})}
	if sub, ok := claims["sub"].(string); ok {
		user.ID = sub
	}
	if username, ok := claims["username"].(string); ok {
		user.Username = username
	}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if rolesClaim, ok := claims["roles"].([]interface{}); ok {
		for _, role := range rolesClaim {
			if roleStr, ok := role.(string); ok {
				user.Roles = append(user.Roles, roleStr)
			}
		}
	}
	reserved := map[string]bool{"sub": true, "username": true, "email": true, "roles": true, "iss": true, "aud": true, "exp": true, "nbf": true, "iat": true}
	for key, value := range claims {
		if !reserved[key] {
			user.Metadata[key] = value
		}
	}
	return user, claims, nil
}

func (a *Authenticator) validateClaims(claims jwt.MapClaims) error {
	if a.config.JWTIssuer != "" {
		if iss, ok := claims["iss"].(string); !ok || iss != a.config.JWTIssuer {
			return fmt.Errorf("invalid issuer")
		}
	}
	if len(a.config.JWTAudience) == 0 {
		return nil
	}

	audClaim, ok := claims["aud"]
	if !ok {
		return fmt.Errorf("missing audience claim")
	}
	var audiences []string
	switch v := audClaim.(type) {
	case string:
		audiences = []string{v}
	case []interface{}:
		for _, aud := range v {
			if audStr, ok := aud.(string); ok {
				audiences = append(audiences, audStr)
			}
		}
	default:
		return fmt.Errorf("invalid audience claim format")
	}
	for _, configAud := range a.config.JWTAudience {
		for _, tokenAud := range audiences {
			if configAud == tokenAud {
				return nil
			}
		}
	}
	return fmt.Errorf("invalid audience")
}

func (a *Authenticator) authenticateAPIKey(apiKey string) (*User, error) {
	for key, user := range a.config.APIKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return user, nil
		}
	}
	return nil, ErrInvalidAPIKey
}

func (a *Authenticator) extractAPIKey(r *http.Request, authHeader string) string {
	if key := r.Header.Get(a.config.APIKeyHeader); key != "" {
		return key
	}
	if strings.HasPrefix(authHeader, "ApiKey ") {
		return strings.TrimPrefix(authHeader, "ApiKey ")
	}
	return ""
}

func (a *Authenticator) allowed(method AuthMethod) bool {
	for _, m := range a.config.AllowedMethods {
		if m == method {
			return true
		}
	}
	return false
}

// GenerateJWT signs a token for user using config's secret and expiration.
func GenerateJWT(user *User, config *AuthConfig) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"email":    user.Email,
		"roles":    user.Roles,
		"iat":      now.Unix(),
		"exp":      now.Add(config.JWTExpiration).Unix(),
	}
	if config.JWTIssuer != "" {
		claims["iss"] = config.JWTIssuer
	}
	if len(config.JWTAudience) > 0 {
		claims["aud"] = config.JWTAudience
	}
	for key, value := range user.Metadata {
		claims[key] = value
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.JWTSecret))
}

// GetUser extracts the authenticated user from a request context.
func GetUser(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(ctxKeyUser).(*User)
	return user, ok
}

// GetAuthMethod extracts the authentication method used from a request context.
func GetAuthMethod(ctx context.Context) (AuthMethod, bool) {
	method, ok := ctx.Value(ctxKeyAuthMethod).(AuthMethod)
	return method, ok
}

// GetTokenClaims extracts raw JWT claims from a request context.
func GetTokenClaims(ctx context.Context) (jwt.MapClaims, bool) {
	claims, ok := ctx.Value(ctxKeyClaims).(jwt.MapClaims)
	return claims, ok
}
