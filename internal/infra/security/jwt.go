package security

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
)

// Token purposes carried in the purpose claim. Issue and Parse reject a
// token presented for a purpose other than the one it was minted with.
const (
	TokenPurposeAccess       = "access"
	TokenPurposeVerification = "email_verification"
)

var (
	// ErrTokenInvalid indicates the token failed signature or structural checks.
	ErrTokenInvalid = errors.New("jwt: token invalid")
	// ErrTokenExpired indicates a well-formed token past its exp claim.
	ErrTokenExpired = errors.New("jwt: token expired")
)

// TokenClaims augments registered claims with session and purpose context.
type TokenClaims struct {
	UserID    int64  `json:"uid,omitempty"`
	SessionID int64  `json:"sid,omitempty"`
	Purpose   string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies tokens with a single symmetric HS256
// secret. There is no key rotation and no algorithm negotiation: tokens
// signed with anything but HS256 are rejected outright.
type TokenIssuer struct {
	secret []byte
	issuer string
}

// NewTokenIssuer constructs a TokenIssuer for the supplied secret.
func NewTokenIssuer(secret, issuer string) (*TokenIssuer, error) {
	secret = strings.TrimSpace(secret)
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt: secret must be at least 32 bytes")
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return nil, fmt.Errorf("jwt: issuer is required")
	}

	return &TokenIssuer{secret: []byte(secret), issuer: issuer}, nil
}

// TokenOptions configures claim creation for Issue.
type TokenOptions struct {
	UserID    int64
	SessionID int64
	Subject   string
	Purpose   string
	TTL       time.Duration
	IssuedAt  time.Time
}

// Issue mints a signed token for the supplied options.
func (i *TokenIssuer) Issue(opts TokenOptions) (string, error) {
	if opts.TTL <= 0 {
		return "", fmt.Errorf("jwt: ttl must be positive")
	}
	purpose := strings.TrimSpace(opts.Purpose)
	if purpose == "" {
		return "", fmt.Errorf("jwt: purpose is required")
	}

	now := opts.IssuedAt
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}

	subject := strings.TrimSpace(opts.Subject)
	if subject == "" && opts.UserID > 0 {
		subject = strconv.FormatInt(opts.UserID, 10)
	}

	claims := &TokenClaims{
		UserID:    opts.UserID,
		SessionID: opts.SessionID,
		Purpose:   purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(opts.TTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// Parse validates signature, structure, and expiry, and checks the token
// was minted for the expected purpose. All failures other than expiry
// collapse into ErrTokenInvalid.
func (i *TokenIssuer) Parse(tokenString, expectedPurpose string) (*TokenClaims, error) {
	claims := &TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return i.secret, nil
	},
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Purpose != expectedPurpose {
		return nil, fmt.Errorf("%w: unexpected purpose %q", ErrTokenInvalid, claims.Purpose)
	}

	return claims, nil
}
