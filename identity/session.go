package identity

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// SessionClaims are the claims of a Clerk session token. Subject is the user id.
type SessionClaims struct {
	SessionID       string `json:"sid"`
	AuthorizedParty string `json:"azp,omitempty"`
	jwt.RegisteredClaims
}

// KeyFunc returns the current signing key set.
type KeyFunc func(ctx context.Context) (jwk.Set, error)

// SessionVerifier validates RS256 session tokens against the instance JWKS.
type SessionVerifier struct {
	keys   KeyFunc
	issuer string
	leeway time.Duration
}

// NewSessionVerifier registers jwksURL in an auto-refreshing jwk cache and fetches it once.
// hc is used for the fetch, so an authenticated client can read the Backend API JWKS.
func NewSessionVerifier(ctx context.Context, jwksURL, issuer string, hc *http.Client) (*SessionVerifier, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute), jwk.WithHTTPClient(hc)); err != nil {
		return nil, fmt.Errorf("register jwks %s: %w", jwksURL, err)
	}
	if _, err := cache.Refresh(ctx, jwksURL); err != nil {
		return nil, fmt.Errorf("fetch jwks %s: %w", jwksURL, err)
	}
	return NewStaticSessionVerifier(func(ctx context.Context) (jwk.Set, error) {
		return cache.Get(ctx, jwksURL)
	}, issuer), nil
}

// NewStaticSessionVerifier builds a verifier over an arbitrary key source.
// An empty issuer disables the issuer check.
func NewStaticSessionVerifier(keys KeyFunc, issuer string) *SessionVerifier {
	return &SessionVerifier{keys: keys, issuer: issuer, leeway: 5 * time.Second}
}

// Verify checks signature, expiry and issuer of raw and returns its claims.
func (v *SessionVerifier) Verify(ctx context.Context, raw string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no key id")
		}
		set, err := v.keys(ctx)
		if err != nil {
			return nil, fmt.Errorf("load signing keys: %w", err)
		}
		key, ok := set.LookupKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		var pub rsa.PublicKey
		if err := key.Raw(&pub); err != nil {
			return nil, fmt.Errorf("key %q is not an RSA public key: %w", kid, err)
		}
		return &pub, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("session token invalid")
	}
	if claims.ExpiresAt == nil {
		return nil, errors.New("session token has no expiry")
	}
	if claims.Subject == "" {
		return nil, errors.New("session token has no subject")
	}
	return claims, nil
}
