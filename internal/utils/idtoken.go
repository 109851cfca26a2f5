package utils

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExternalIdentity is the subset of ID-token claims the member
// directory needs to resolve or provision an account.
type ExternalIdentity struct {
	Email   string
	Name    string
	Picture string
}

// IdentityVerifier validates a provider-issued ID token and returns
// the identity it asserts. The member service depends on this
// interface so tests can substitute a stub.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (ExternalIdentity, error)
}

// JWKSVerifier validates RS256 ID tokens against a provider's JWKS
// endpoint (Google: https://www.googleapis.com/oauth2/v3/certs). Keys
// are fetched on demand and cached briefly.
type JWKSVerifier struct {
	URL    string
	Client *http.Client

	keys    map[string]*rsa.PublicKey
	fetched time.Time
}

// NewJWKSVerifier builds a verifier for the given JWKS URL.
func NewJWKSVerifier(url string) *JWKSVerifier {
	return &JWKSVerifier{URL: url, Client: &http.Client{Timeout: 5 * time.Second}}
}

type jwksDoc struct {
	Keys []struct {
		Kid string `json:"kid"`
		Kty string `json:"kty"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (v *JWKSVerifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.URL, nil)
	if err != nil {
		return err
	}
	resp, err := v.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks fetch: unexpected status %d", resp.StatusCode)
	}
	var doc jwksDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return err
	}
	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nb),
			E: int(new(big.Int).SetBytes(eb).Int64()),
		}
	}
	v.keys = keys
	v.fetched = time.Now()
	return nil
}

func (v *JWKSVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if v.keys == nil || time.Since(v.fetched) > time.Hour {
		if err := v.refresh(ctx); err != nil {
			return nil, err
		}
	}
	if k, ok := v.keys[kid]; ok {
		return k, nil
	}
	// Unknown kid: the provider may have rotated keys, refetch once.
	if err := v.refresh(ctx); err != nil {
		return nil, err
	}
	if k, ok := v.keys[kid]; ok {
		return k, nil
	}
	return nil, errors.New("jwks: signing key not found")
}

// Verify parses and validates the token and extracts the identity
// claims. Tokens must be RS256 signed by a key in the JWKS set.
func (v *JWKSVerifier) Verify(ctx context.Context, rawToken string) (ExternalIdentity, error) {
	tok, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("jwks: unexpected signing method %s", t.Method.Alg())
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("jwks: token has no kid header")
		}
		return v.key(ctx, kid)
	})
	if err != nil || !tok.Valid {
		return ExternalIdentity{}, errors.New("invalid identity token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return ExternalIdentity{}, errors.New("invalid identity claims")
	}
	id := ExternalIdentity{}
	id.Email, _ = claims["email"].(string)
	id.Name, _ = claims["name"].(string)
	id.Picture, _ = claims["picture"].(string)
	if id.Email == "" {
		return ExternalIdentity{}, errors.New("identity token carries no email")
	}
	return id, nil
}
