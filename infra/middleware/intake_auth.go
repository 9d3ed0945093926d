package middleware

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"intake_server/pkg/apperr"
	"intake_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWKS represents a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// JWKSCache caches a key set for ttl and refetches on expiry or unknown kid.
type JWKSCache struct {
	mu        sync.RWMutex
	jwks      *JWKS
	fetchedAt time.Time
	ttl       time.Duration
	url       string
	client    *http.Client
}

func NewJWKSCache(url string) *JWKSCache {
	return &JWKSCache{
		url:    url,
		ttl:    10 * time.Minute,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *JWKSCache) find(kid string) (*JWK, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.jwks == nil || time.Since(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	for _, key := range c.jwks.Keys {
		if key.Kid == kid {
			k := key
			return &k, true
		}
	}
	return nil, false
}

// GetKey retrieves a key by kid from JWKS
func (c *JWKSCache) GetKey(ctx context.Context, kid string) (*JWK, error) {
	if key, ok := c.find(kid); ok {
		return key, nil
	}
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	if key, ok := c.find(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("key not found: %s", kid)
}

func (c *JWKSCache) refresh(ctx context.Context) error {
	if c.url == "" {
		return fmt.Errorf("JWKS URL not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS fetch failed with status: %d", resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	c.mu.Lock()
	c.jwks = &jwks
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return nil
}

func parseECPublicKey(jwk *JWK) (*ecdsa.PublicKey, error) {
	xBytes, err := base64.RawURLEncoding.DecodeString(jwk.X)
	if err != nil {
		return nil, fmt.Errorf("failed to decode x: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(jwk.Y)
	if err != nil {
		return nil, fmt.Errorf("failed to decode y: %w", err)
	}

	var curve elliptic.Curve
	switch jwk.Crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("unsupported curve: %s", jwk.Crv)
	}

	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}

func parseRSAPublicKey(jwk *JWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode n: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode e: %w", err)
	}

	var e int
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

// Authenticator verifies Supabase access tokens. HS256 tokens are checked
// against the project JWT secret, ES256/RS256 tokens against the project JWKS.
type Authenticator struct {
	secret []byte
	jwks   *JWKSCache
	log    *logger.Logger
}

func NewAuthenticator(secret, supabaseURL string, log *logger.Logger) *Authenticator {
	a := &Authenticator{log: log}
	if secret != "" {
		a.secret = []byte(secret)
	}
	if supabaseURL != "" {
		a.jwks = NewJWKSCache(strings.TrimSuffix(supabaseURL, "/") + "/auth/v1/.well-known/jwks.json")
	}
	return a
}

func (a *Authenticator) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if a.secret == nil {
				return nil, fmt.Errorf("JWT secret not configured")
			}
			return a.secret, nil

		case *jwt.SigningMethodECDSA, *jwt.SigningMethodRSA:
			if a.jwks == nil {
				return nil, fmt.Errorf("JWKS not configured")
			}
			kid, ok := token.Header["kid"].(string)
			if !ok || kid == "" {
				return nil, fmt.Errorf("missing kid in token header")
			}
			jwk, err := a.jwks.GetKey(ctx, kid)
			if err != nil {
				return nil, fmt.Errorf("failed to get public key: %w", err)
			}
			if _, isEC := token.Method.(*jwt.SigningMethodECDSA); isEC {
				return parseECPublicKey(jwk)
			}
			return parseRSAPublicKey(jwk)

		default:
			return nil, fmt.Errorf("unsupported signing method: %v", token.Header["alg"])
		}
	}
}

// Verify parses tokenString and returns its claims.
func (a *Authenticator) Verify(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, a.keyFunc(ctx),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(time.Minute),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Handler requires a valid bearer token and stores the subject in Locals.
func (a *Authenticator) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			return apperr.Unauthorized("missing authorization")
		}

		claims, err := a.Verify(c.UserContext(), strings.TrimSpace(tokenString))
		if err != nil {
			a.log.WithError(err).Warn("JWT validation failed")
			return apperr.InvalidToken("invalid token")
		}

		sub, _ := claims["sub"].(string)
		if _, err := uuid.Parse(sub); err != nil {
			return apperr.InvalidToken("invalid user id in token")
		}

		c.Locals("user_id", sub)
		if email, ok := claims["email"].(string); ok {
			c.Locals("user_email", email)
		}
		if role, ok := claims["role"].(string); ok {
			c.Locals("user_role", role)
		}
		return c.Next()
	}
}
