package service

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/allisson/authkeyd/internal/identity/domain"
)

// IdentityProviderClient exchanges end-user and machine credentials for an
// identity-provider token via the IdP's own OAuth2 token endpoint (§4.4:
// "password login delegates to the external identity provider"). The returned
// token is itself a JWKS-verifiable JWT, so both grants funnel through the same
// JWKSVerifier.Verify call the gateway uses for presented IdP tokens.
type IdentityProviderClient struct {
	passwordConfig oauth2.Config
	tokenURL       string
}

// NewIdentityProviderClient configures the OAuth2 token endpoint used for
// resource-owner-password and client-credentials grants.
func NewIdentityProviderClient(tokenURL string) *IdentityProviderClient {
	return &IdentityProviderClient{
		passwordConfig: oauth2.Config{Endpoint: oauth2.Endpoint{TokenURL: tokenURL}},
		tokenURL:       tokenURL,
	}
}

// PasswordGrant performs the resource-owner-password-credentials grant and
// returns the IdP-issued access token (a JWT, verified by the caller).
func (c *IdentityProviderClient) PasswordGrant(ctx context.Context, username, password string) (string, error) {
	tok, err := c.passwordConfig.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return "", domain.ErrAuthenticationFailed
	}
	return tok.AccessToken, nil
}

// ClientCredentialsGrant performs the M2M client-credentials grant.
func (c *IdentityProviderClient) ClientCredentialsGrant(ctx context.Context, clientID, clientSecret string) (string, error) {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     c.tokenURL,
	}
	tok, err := cfg.Token(ctx)
	if err != nil {
		return "", domain.ErrAuthenticationFailed
	}
	return tok.AccessToken, nil
}
