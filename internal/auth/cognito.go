package auth

import (
	"context"

	"golang.org/x/oauth2"
)

// NewCognitoUserPool builds a Provider for an AWS Cognito user pool's
// OAuth2 token endpoint using the client credentials grant, the same
// path any OAuth2-compliant identity provider takes; Cognito's app
// client domain just supplies a different tokenURL
// ("https://<domain>.auth.<region>.amazoncognito.com/oauth2/token").
func NewCognitoUserPool(ctx context.Context, clientID, clientSecret, domain string, scopes []string) *TokenSourceProvider {
	tokenURL := "https://" + domain + "/oauth2/token"
	return NewOAuth2ClientCredentials(ctx, clientID, clientSecret, tokenURL, scopes)
}

// NewCognitoIdentityPool wraps a pre-built oauth2.TokenSource for
// Cognito Identity Pool federated credentials, where the caller already
// exchanges an identity token for temporary AWS credentials elsewhere
// and just needs the resulting bearer token attached.
func NewCognitoIdentityPool(source oauth2.TokenSource) *TokenSourceProvider {
	return NewOAuth2TokenSource(source)
}
