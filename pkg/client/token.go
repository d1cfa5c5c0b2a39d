package client

import "context"

// TokenSource supplies bearer tokens for outbound requests. Acquiring and
// refreshing tokens is the implementation's concern.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}
