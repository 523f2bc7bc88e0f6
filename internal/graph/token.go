package graph

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource is the token-issuing collaborator described in §1 as
// deliberately out of scope: acquisition and refresh live elsewhere, and
// this core only ever asks for the current access token. It is this
// package's own context-aware interface; any standard oauth2.TokenSource
// (client-credentials, device-code, a refreshing file-backed source) can be
// handed in through NewOAuth2TokenSource without this package needing to
// know which.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// oauth2TokenSource adapts an oauth2.TokenSource (which is not
// context-aware) to this package's context-aware TokenSource.
type oauth2TokenSource struct {
	inner oauth2.TokenSource
}

// NewOAuth2TokenSource wraps a standard oauth2.TokenSource.
func NewOAuth2TokenSource(ts oauth2.TokenSource) TokenSource {
	return &oauth2TokenSource{inner: ts}
}

func (s *oauth2TokenSource) Token(_ context.Context) (string, error) {
	tok, err := s.inner.Token()
	if err != nil {
		return "", err
	}

	return tok.AccessToken, nil
}

// StaticTokenSource returns a TokenSource that always yields the same
// token. Useful for tests and for callers who manage refresh entirely
// outside the oauth2 package.
func StaticTokenSource(token string) TokenSource {
	return staticTokenSource(token)
}

type staticTokenSource string

func (s staticTokenSource) Token(_ context.Context) (string, error) {
	return string(s), nil
}
