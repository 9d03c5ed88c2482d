package oidckit

import (
	"context"
	"fmt"

	"github.com/zitadel/oidc/v2/pkg/client/rp"
	"github.com/zitadel/oidc/v2/pkg/oidc"
	"golang.org/x/oauth2"
)

// Exchange swaps an authorization code for tokens with the PKCE verifier,
// then verifies the id-token against the per-request nonce. The RP's built-in
// verifier knows nothing about our nonce, so verification is done explicitly.
func Exchange(ctx context.Context, rpClient rp.RelyingParty, code, verifier, nonce string) (Claims, error) {
	oauthConfig := rpClient.OAuthConfig()
	token, err := oauthConfig.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", verifier))
	if err != nil {
		return Claims{}, fmt.Errorf("token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return Claims{}, fmt.Errorf("no id_token in response")
	}

	verifierWithNonce := rp.NewIDTokenVerifier(
		rpClient.IDTokenVerifier().Issuer(),
		rpClient.IDTokenVerifier().ClientID(),
		rpClient.IDTokenVerifier().KeySet(),
		rp.WithNonce(func(context.Context) string { return nonce }),
	)
	idToken, err := rp.VerifyIDToken[*oidc.IDTokenClaims](ctx, rawIDToken, verifierWithNonce)
	if err != nil {
		return Claims{}, fmt.Errorf("id_token verification failed: %w", err)
	}

	return Claims{
		Subject:       idToken.GetSubject(),
		Email:         idToken.UserInfoEmail.Email,
		EmailVerified: bool(idToken.UserInfoEmail.EmailVerified),
		Name:          idToken.UserInfoProfile.Name,
	}, nil
}
