package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultUserTTL is the lifetime of a member token when none is given.
	DefaultUserTTL = 30 * time.Minute
	// DefaultAdminTTL is the lifetime of an admin token when none is given.
	DefaultAdminTTL = 60 * time.Minute

	// adminMarker is the value of the "type" claim carried by admin tokens
	// only.
	adminMarker = "admin"
)

// Claims is the verified payload of a token.
type Claims struct {
	Subject   string    // email of the principal
	ExpiresAt time.Time // absolute expiry (UTC)
	Admin     bool      // true only when the token carries type=admin
}

// Token is a signed bearer token together with its expiry.
type Token struct {
	Raw string
	Exp time.Time
}

// TokenService signs and verifies HS256 tokens. UserTTL and AdminTTL are
// used when the caller passes a zero TTL.
type TokenService struct {
	secret   []byte
	UserTTL  time.Duration
	AdminTTL time.Duration
	now      func() time.Time
}

// NewTokenService builds a TokenService. Non-positive TTLs are replaced by
// the defaults.
func NewTokenService(secret string, userTTL, adminTTL time.Duration) *TokenService {
	if userTTL <= 0 {
		userTTL = DefaultUserTTL
	}
	if adminTTL <= 0 {
		adminTTL = DefaultAdminTTL
	}
	return &TokenService{
		secret:   []byte(secret),
		UserTTL:  userTTL,
		AdminTTL: adminTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// IssueUserToken signs a member token for subject. ttl == 0 means UserTTL.
func (s *TokenService) IssueUserToken(subject string, ttl time.Duration) (Token, error) {
	if ttl <= 0 {
		ttl = s.UserTTL
	}
	return s.sign(jwt.MapClaims{"sub": subject}, ttl)
}

// IssueAdminToken signs an admin token for subject. It always carries the
// type=admin claim. ttl == 0 means AdminTTL.
func (s *TokenService) IssueAdminToken(subject string, ttl time.Duration) (Token, error) {
	if ttl <= 0 {
		ttl = s.AdminTTL
	}
	return s.sign(jwt.MapClaims{"sub": subject, "type": adminMarker}, ttl)
}

func (s *TokenService) sign(claims jwt.MapClaims, ttl time.Duration) (Token, error) {
	now := s.now()
	exp := now.Add(ttl)
	claims["exp"] = exp.Unix()
	claims["iat"] = now.Unix()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Raw: signed, Exp: time.Unix(exp.Unix(), 0).UTC()}, nil
}

// VerifyToken checks the signature and expiry of raw and returns its
// claims. Any failure is reported as ErrInvalidToken; callers cannot tell
// an expired token from a forged one.
func (s *TokenService) VerifyToken(raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// reject anything that is not HMAC (alg=none, RS256 with our secret as key, ...)
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}

	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, ErrInvalidToken
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, ErrInvalidToken
	}
	kind, _ := mc["type"].(string)

	return Claims{
		Subject:   sub,
		ExpiresAt: exp.Time.UTC(),
		Admin:     kind == adminMarker,
	}, nil
}
