package auth

import "context"

// Chain is an ordered list of authenticators. A request is accepted by the
// first member that supports its credentials and authenticates them.
type Chain []Authenticator

// NewChain builds a Chain, dropping nil members.
func NewChain(auths ...Authenticator) Chain {
	c := make(Chain, 0, len(auths))
	for _, a := range auths {
		if a != nil {
			c = append(c, a)
		}
	}
	return c
}

func (c Chain) Name() string { return "chain" }

// Supports reports whether any member supports creds.
func (c Chain) Supports(ctx context.Context, creds Credentials) bool {
	for _, a := range c {
		if a.Supports(ctx, creds) {
			return true
		}
	}
	return false
}

// Authenticate walks the chain. A rejection falls through to the next
// supporting member and the last rejection is returned if none accepts.
// An error from any member aborts the walk.
func (c Chain) Authenticate(ctx context.Context, creds Credentials) (*AuthResult, error) {
	rejected := AuthFailure(ErrMissingCredentials, "")
	for _, a := range c {
		if !a.Supports(ctx, creds) {
			continue
		}
		result, err := a.Authenticate(ctx, creds)
		if err != nil {
			return nil, err
		}
		if result.Authenticated {
			return result, nil
		}
		rejected = result
	}
	return rejected, nil
}

var _ Authenticator = Chain(nil)
