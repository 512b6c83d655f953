package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/BrightCodeshub/BakeryShop/internal/profile"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the claims issued by the hosted auth service.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   profile.Role
}

type ProfileReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error)
}

type Authenticator struct {
	secret   []byte
	profiles ProfileReader
}

func NewAuthenticator(secret string, profiles ProfileReader) *Authenticator {
	return &Authenticator{
		secret:   []byte(secret),
		profiles: profiles,
	}
}

// NewToken signs an HS256 token in the format the hosted auth service issues.
func NewToken(secret string, userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Authenticate resolves an Authorization header value to an identity.
// Accounts without a profile row yet are treated as customers.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*Identity, error) {
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(tokenStr) == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, err := uuid.FromString(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	identity := &Identity{
		UserID: userID,
		Email:  claims.Email,
		Role:   profile.RoleCustomer,
	}

	p, err := a.profiles.GetByID(ctx, userID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		identity.Role = p.Role
		if identity.Email == "" {
			identity.Email = p.Email
		}
	}
	return identity, nil
}

// Optional attaches an identity when a valid bearer token is present and lets
// anonymous requests through. A token that is present but invalid is rejected.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		identity, err := a.Authenticate(r.Context(), header)
		if err != nil {
			a.reject(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// Require rejects requests without a valid token. With roles given, the
// caller's profile role must be one of them.
func (a *Authenticator) Require(roles ...profile.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := a.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				a.reject(w, err)
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, identity.Role) {
				log.Warn().Stringer("user_id", identity.UserID).Str("role", string(identity.Role)).Str("path", r.URL.Path).Msg("auth: role not allowed")
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func (a *Authenticator) reject(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrMissingToken) || errors.Is(err, ErrInvalidToken) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	log.Error().Err(err).Msg("auth: failed to resolve identity")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

type contextKey struct{}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

func FromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(contextKey{}).(*Identity)
	return identity, ok && identity != nil
}
