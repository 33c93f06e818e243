package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClass distinguishes the two signed token kinds. Each class is bound
// to its own signing secret.
type TokenClass string

const (
	ClassAccess  TokenClass = "access"
	ClassRefresh TokenClass = "refresh"
)

// Claims is the verified content of a token.
type Claims struct {
	UserID    string
	TokenID   string
	Class     TokenClass
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenManager mints and verifies the two token classes.
//
// Issuance is a pure function of secret, claims, and clock (plus the random
// token id). Verification is stateless; slot equality is the Service's job.
type TokenManager interface {
	IssueAccess(userID string, now time.Time) (token string, exp time.Time, err error)
	IssueRefresh(userID string, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, class TokenClass, now time.Time) (Claims, error)
}

type tokenClaims struct {
	Cls TokenClass `json:"cls"`
	jwt.RegisteredClaims
}

type hmacManager struct {
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clockSkew  time.Duration

	accessSecret  []byte
	refreshSecret []byte
}

// NewHMACManager builds a TokenManager signing both classes with HS256,
// each under its class-specific secret from cfg.
func NewHMACManager(cfg Config) (TokenManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &hmacManager{
		issuer:        cfg.Issuer,
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		clockSkew:     cfg.ClockSkew,
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
	}, nil
}

func (m *hmacManager) secretFor(class TokenClass) []byte {
	if class == ClassRefresh {
		return m.refreshSecret
	}
	return m.accessSecret
}

func (m *hmacManager) issue(userID string, class TokenClass, ttl time.Duration, now time.Time) (string, time.Time, error) {
	exp := now.Add(ttl)

	claims := tokenClaims{
		Cls: class,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretFor(class))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *hmacManager) IssueAccess(userID string, now time.Time) (string, time.Time, error) {
	return m.issue(userID, ClassAccess, m.accessTTL, now)
}

func (m *hmacManager) IssueRefresh(userID string, now time.Time) (string, time.Time, error) {
	return m.issue(userID, ClassRefresh, m.refreshTTL, now)
}

// Verify parses and validates a token against the expected class's secret.
//
// A token signed with the other class's secret fails the signature check, so
// key separation holds even before the class claim is compared.
func (m *hmacManager) Verify(token string, class TokenClass, now time.Time) (Claims, error) {
	var claims tokenClaims

	keyfunc := func(*jwt.Token) (any, error) { return m.secretFor(class), nil }

	parsed, err := jwt.ParseWithClaims(token, &claims, keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrTokenExpired
		default:
			return Claims{}, ErrTokenInvalid
		}
	}
	if !parsed.Valid || claims.Cls != class || claims.Subject == "" {
		return Claims{}, ErrTokenInvalid
	}

	out := Claims{
		UserID:  claims.Subject,
		TokenID: claims.ID,
		Class:   claims.Cls,
		Issuer:  claims.Issuer,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
