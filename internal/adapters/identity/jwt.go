// Package identity issues and resolves anonymous identities.
//
// An identity is an opaque uid carried in a signed token. The token lives in a
// browser cookie, so a returning visitor keeps the same uid until it expires.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/okian/fitscore/pkg/logger"
	"github.com/okian/fitscore/pkg/metrics"
)

const (
	defaultIssuer = "fitscore"
	defaultTTL    = 30 * 24 * time.Hour
)

// Identity is an anonymous principal.
type Identity struct {
	UID       string    `json:"uid"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	Anonymous bool      `json:"anonymous"`
}

// Provider signs visitors in and resolves their tokens.
type Provider interface {
	// SignInAnonymously issues a fresh identity. Failures wrap ErrAuth.
	SignInAnonymously(ctx context.Context) (Identity, error)
	// Resolve validates token and returns the identity it carries.
	Resolve(ctx context.Context, token string) (Identity, error)
}

// Claims carried by identity tokens. The uid is the registered subject.
type Claims struct {
	Anonymous bool `json:"anon"`
	jwt.RegisteredClaims
}

// JWTProvider issues HS256 tokens.
type JWTProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	log    logger.Logger
}

var _ Provider = (*JWTProvider)(nil)

// Option configures a JWTProvider.
type Option func(*JWTProvider)

// WithTTL sets token validity.
func WithTTL(ttl time.Duration) Option {
	return func(p *JWTProvider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithIssuer sets the iss claim.
func WithIssuer(iss string) Option {
	return func(p *JWTProvider) {
		if iss != "" {
			p.issuer = iss
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(p *JWTProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the provider logger.
func WithLogger(l logger.Logger) Option {
	return func(p *JWTProvider) {
		if l != nil {
			p.log = l
		}
	}
}

// NewJWTProvider constructs a provider. An empty secret is accepted; every
// sign-in then fails with ErrAuth.
func NewJWTProvider(secret string, opts ...Option) *JWTProvider {
	p := &JWTProvider{
		secret: []byte(secret),
		issuer: defaultIssuer,
		ttl:    defaultTTL,
		now:    time.Now,
		log:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SignInAnonymously implements Provider.
func (p *JWTProvider) SignInAnonymously(ctx context.Context) (Identity, error) {
	if len(p.secret) == 0 {
		metrics.RecordSignIn("error")
		return Identity{}, fmt.Errorf("%w: %w", ErrAuth, ErrNoSecret)
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordSignIn("error")
		return Identity{}, fmt.Errorf("%w: %w", ErrAuth, err)
	}

	now := p.now()
	uid := uuid.NewString()
	exp := now.Add(p.ttl)
	claims := &Claims{
		Anonymous: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		metrics.RecordSignIn("error")
		return Identity{}, fmt.Errorf("%w: %w", ErrAuth, err)
	}

	metrics.RecordSignIn("issued")
	p.log.Debug(ctx, "anonymous identity issued", logger.String("uid", uid))
	return Identity{UID: uid, Token: token, ExpiresAt: exp.Truncate(time.Second), Anonymous: true}, nil
}

// Resolve implements Provider.
func (p *JWTProvider) Resolve(_ context.Context, token string) (Identity, error) {
	if token == "" || len(p.secret) == 0 {
		return Identity{}, ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return p.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	id := Identity{UID: claims.Subject, Token: token, Anonymous: claims.Anonymous}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	metrics.RecordSignIn("resumed")
	return id, nil
}
