package skill

import (
	"context"
	"errors"
)

// authTokenContextKey is the context key for the caller's auth token.
type authTokenContextKey struct{}

// ErrNoAuthToken is returned by AuthTokenFromContextSafely when the context
// carries no token.
var ErrNoAuthToken = errors.New("skill: no auth token in context")

// WithAuthToken stores the caller's auth token in ctx. The resolver does this
// before every store call so stores backed by an authenticated service can
// forward it.
func WithAuthToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, authTokenContextKey{}, token)
}

// AuthTokenFromContext returns the auth token stored in ctx, or "".
func AuthTokenFromContext(ctx context.Context) string {
	token, _ := AuthTokenFromContextSafely(ctx)
	return token
}

// AuthTokenFromContextSafely returns the auth token stored in ctx, or
// ErrNoAuthToken when there is none.
//
// Example:
//
//	func (s *remoteStore) GetActiveSkill(ctx context.Context, stage paper.StageID) (*skill.StageSkill, error) {
//	    token, err := skill.AuthTokenFromContextSafely(ctx)
//	    if err != nil {
//	        return nil, err
//	    }
//	    req.Header.Set("Authorization", "Bearer "+token)
//	    ...
//	}
func AuthTokenFromContextSafely(ctx context.Context) (string, error) {
	token, ok := ctx.Value(authTokenContextKey{}).(string)
	if !ok || token == "" {
		return "", ErrNoAuthToken
	}
	return token, nil
}
