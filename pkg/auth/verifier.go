// Package auth verifies the bearer tokens that identify the acting user of an order request.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/abgdnv/gofulfillment/pkg/config"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// ErrSubjectNotUserID is returned for a token whose subject can not be stored as an order's user id.
var ErrSubjectNotUserID = errors.New("token subject is not a user id")

type Verifier interface {
	Verify(ctx context.Context, tokenString string) (jwt.Token, error)
}

// JWTVerifier accepts tokens signed by the configured IdP for this client whose subject is a UUID.
type JWTVerifier struct {
	keys     *keyCache
	issuer   string
	clientID string
}

// NewJWTVerifier loads the key set up front, so a wrong IdP configuration stops the service at start.
func NewJWTVerifier(ctx context.Context, cfg config.IdP) (*JWTVerifier, error) {
	return newJWTVerifier(ctx, cfg, fetchJWKS)
}

func newJWTVerifier(ctx context.Context, cfg config.IdP, fetch KeyFetcher) (*JWTVerifier, error) {
	v := &JWTVerifier{
		keys:     newKeyCache(cfg.JwksURL, cfg.MinInterval, fetch),
		issuer:   cfg.Issuer,
		clientID: cfg.ClientID,
	}
	if _, err := v.keys.get(ctx); err != nil {
		return nil, fmt.Errorf("initial JWKS fetch failed: %w", err)
	}
	return v, nil
}

func (v *JWTVerifier) Verify(ctx context.Context, tokenString string) (jwt.Token, error) {
	set, err := v.keys.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("no key set to verify with: %w", err)
	}
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithClaimValue("azp", v.clientID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	sub, ok := token.Subject()
	if !ok {
		return nil, fmt.Errorf("%w: no sub claim", ErrSubjectNotUserID)
	}
	if _, err := uuid.Parse(sub); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrSubjectNotUserID, sub)
	}
	return token, nil
}
