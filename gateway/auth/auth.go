package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultClockSkew = 30 * time.Second

var (
	// ErrSecretMissing is returned when no HMAC secret is configured.
	ErrSecretMissing = errors.New("auth: hmac secret not configured")
	// ErrInvalidSubject is returned when the token subject is not an address.
	ErrInvalidSubject = errors.New("auth: subject is not an account address")
)

// Claims is the bearer token payload. The subject carries the 0x account the
// caller acts as.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Principal is an authenticated caller.
type Principal struct {
	Address common.Address
	TokenID string
	Scopes  []string
}

// HasScope reports whether the principal was granted scope. A token without
// scopes is unrestricted.
func (p *Principal) HasScope(scope string) bool {
	if p == nil {
		return false
	}
	if len(p.Scopes) == 0 {
		return true
	}
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Config describes how tokens are signed and checked.
type Config struct {
	HMACSecret string
	Issuer     string
	Audience   []string
	ClockSkew  time.Duration
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret []byte
	cfg    Config
	nowFn  func() time.Time
}

// NewVerifier builds a verifier. An empty secret yields a verifier that
// rejects every token.
func NewVerifier(cfg Config) *Verifier {
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = defaultClockSkew
	}
	return &Verifier{
		secret: []byte(strings.TrimSpace(cfg.HMACSecret)),
		cfg:    cfg,
		nowFn:  time.Now,
	}
}

// SetNowFunc overrides the clock used for expiry checks.
func (v *Verifier) SetNowFunc(now func() time.Time) {
	if now != nil {
		v.nowFn = now
	}
}

// Verify parses the token and resolves its principal.
func (v *Verifier) Verify(token string) (*Principal, error) {
	if v == nil || len(v.secret) == 0 {
		return nil, ErrSecretMissing
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.cfg.ClockSkew),
		jwt.WithTimeFunc(v.nowFn),
		jwt.WithExpirationRequired(),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("auth: token invalid")
	}
	if len(v.cfg.Audience) > 0 && !audienceMatches(claims.Audience, v.cfg.Audience) {
		return nil, errors.New("auth: audience mismatch")
	}
	if !common.IsHexAddress(claims.Subject) {
		return nil, ErrInvalidSubject
	}
	return &Principal{
		Address: common.HexToAddress(claims.Subject),
		TokenID: claims.ID,
		Scopes:  strings.Fields(claims.Scope),
	}, nil
}

func audienceMatches(have jwt.ClaimStrings, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

// IssueRequest describes a token to mint.
type IssueRequest struct {
	Address common.Address
	TTL     time.Duration
	Scopes  []string
	Now     time.Time
}

// Issue signs a token for req.Address with the configured secret.
func Issue(cfg Config, req IssueRequest) (string, error) {
	secret := strings.TrimSpace(cfg.HMACSecret)
	if secret == "" {
		return "", ErrSecretMissing
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	claims := Claims{
		Scope: strings.Join(req.Scopes, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.Address.Hex(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	if len(cfg.Audience) > 0 {
		claims.Audience = jwt.ClaimStrings(cfg.Audience)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
