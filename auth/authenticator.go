package auth

import "context"

// Argument names that carry credentials in a tool call.
const (
	ArgAPIKey   = "api_key"
	ArgJWTToken = "jwt_token"
)

// Authenticator turns presented credentials into an Identity.
//
// Implementations must be safe for concurrent use. A rejected credential is
// reported as an AuthResult with Authenticated false and a nil error; a
// non-nil error means the check itself could not run, such as a key store
// being unreachable.
type Authenticator interface {
	Name() string

	// Supports reports whether creds carry the kind of credential this
	// authenticator understands.
	Supports(ctx context.Context, creds Credentials) bool

	Authenticate(ctx context.Context, creds Credentials) (*AuthResult, error)
}

// Credentials are the secrets presented with one tool call.
type Credentials struct {
	APIKey   string
	JWTToken string
}

// IsEmpty reports whether no credential was presented.
func (c Credentials) IsEmpty() bool {
	return c.APIKey == "" && c.JWTToken == ""
}

// CredentialsFromArguments extracts api_key and jwt_token string arguments.
// Non-string values are ignored.
func CredentialsFromArguments(args map[string]any) Credentials {
	var c Credentials
	if v, ok := args[ArgAPIKey].(string); ok {
		c.APIKey = v
	}
	if v, ok := args[ArgJWTToken].(string); ok {
		c.JWTToken = v
	}
	return c
}

// AuthResult reports one authentication attempt. Identity is set when
// Authenticated; Error explains a rejection otherwise. Method names the
// credential kind that was tried and may be empty when none applied.
type AuthResult struct {
	Authenticated bool
	Identity      *Identity
	Error         error
	Method        string
}

// AuthSuccess accepts identity.
func AuthSuccess(identity *Identity) *AuthResult {
	return &AuthResult{Authenticated: true, Identity: identity, Method: string(identity.Method)}
}

// AuthFailure rejects a credential of kind method because of err.
func AuthFailure(err error, method string) *AuthResult {
	return &AuthResult{Error: err, Method: method}
}
