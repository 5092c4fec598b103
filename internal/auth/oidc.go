package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCConfig configures single sign-on.
type OIDCConfig struct {
	IssuerURL      string
	ClientID       string
	ClientSecret   string
	RedirectURL    string
	Scopes         []string
	AllowedDomains []string
}

// OIDCProvider wraps the discovered provider and its OAuth2 config.
type OIDCProvider struct {
	oauth2Config   *oauth2.Config
	verifier       *oidc.IDTokenVerifier
	allowedDomains []string
}

// OIDCClaims are the ID token claims used to find or create the catalog user.
type OIDCClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// NewOIDCProvider runs discovery against cfg.IssuerURL.
func NewOIDCProvider(ctx context.Context, cfg OIDCConfig) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}
	return &OIDCProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       scopes,
		},
		verifier:       provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		allowedDomains: cfg.AllowedDomains,
	}, nil
}

// AuthCodeURL generates an authorization URL with state and nonce.
func (p *OIDCProvider) AuthCodeURL(state, nonce string) string {
	return p.oauth2Config.AuthCodeURL(state, oidc.Nonce(nonce))
}

// Exchange trades an authorization code for a verified set of claims.
func (p *OIDCProvider) Exchange(ctx context.Context, code, nonce string) (*OIDCClaims, error) {
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("no id_token in token response")
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}
	if !ConstantTimeCompare(idToken.Nonce, nonce) {
		return nil, fmt.Errorf("nonce mismatch")
	}

	var claims OIDCClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	if err := CheckEmailDomain(claims.Email, p.allowedDomains); err != nil {
		return nil, err
	}
	return &claims, nil
}

// CheckEmailDomain returns an error unless email belongs to one of allowed.
// An empty allow list accepts any domain.
func CheckEmailDomain(email string, allowed []string) error {
	if email == "" {
		return fmt.Errorf("email claim is required")
	}
	if len(allowed) == 0 {
		return nil
	}
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return fmt.Errorf("invalid email format")
	}
	host := strings.ToLower(email[at+1:])
	for _, d := range allowed {
		if strings.EqualFold(d, host) {
			return nil
		}
	}
	return fmt.Errorf("email domain %s is not allowed", host)
}

// GenerateSecureString returns length random bytes, base64url encoded.
func GenerateSecureString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
