package googleauth

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	errs "github.com/jrsteele09/go-tourbook/internal/errors"
	"github.com/jrsteele09/go-tourbook/session"
)

const issuer = "https://accounts.google.com"

// Authenticator runs the local leg of Google sign-in: the authorization-code
// exchange and ID token verification. The verified raw ID token and its
// profile claims are then handed to session.Manager.GoogleSignIn, which lets
// the backend mint Tourbook tokens.
type Authenticator struct {
	oauthConfig oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// New discovers Google's OIDC configuration and prepares the OAuth2 flow.
func New(ctx context.Context, clientID, clientSecret, redirectURL string) (*Authenticator, error) {
	if clientID == "" {
		return nil, errors.New("[googleauth.New] client ID is required")
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, errors.Wrap(err, "[googleauth.New] discover provider")
	}

	return &Authenticator{
		oauthConfig: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// AuthCodeURL returns the consent page URL for the given CSRF state.
func (a *Authenticator) AuthCodeURL(state string) string {
	return a.oauthConfig.AuthCodeURL(state)
}

// Exchange swaps the authorization code for tokens, verifies the ID token
// signature and claims, and returns the raw ID token with its profile
// claims. A missing ID token fails before any claims are read.
func (a *Authenticator) Exchange(ctx context.Context, code string) (string, session.ProfileClaims, error) {
	oauth2Token, err := a.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return "", session.ProfileClaims{}, errors.Wrap(errs.ErrAuthProviderRejected, err.Error())
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", session.ProfileClaims{}, errs.ErrMissingIdentityToken
	}

	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", session.ProfileClaims{}, errors.Wrap(errs.ErrAuthProviderRejected, err.Error())
	}

	var claims struct {
		Sub        string `json:"sub"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return "", session.ProfileClaims{}, errors.Wrap(err, "[Authenticator.Exchange] extract claims")
	}

	return rawIDToken, session.ProfileClaims{
		Subject:    claims.Sub,
		Email:      claims.Email,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
		Picture:    claims.Picture,
	}, nil
}
