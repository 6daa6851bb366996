package pipeline

import (
	"context"

	"github.com/jonwraymond/toolpipe/auth"
	"github.com/jonwraymond/toolpipe/observe"
)

// AuthenticationPriority is the fixed priority of AuthenticationMiddleware.
const AuthenticationPriority = 10

// AuthRequiredMessage is the text of the result returned to unauthenticated
// callers.
const AuthRequiredMessage = "Authentication required. Please provide a valid API key or JWT token."

// AuthenticationMiddleware authenticates the api_key or jwt_token argument
// of each request. In permissive mode it records auth_required=false and
// lets every request through.
type AuthenticationMiddleware struct {
	Base
	authenticator auth.Authenticator
	require       bool
	logger        observe.Logger
}

// NewAuthenticationMiddleware creates a middleware that requires a valid
// credential. Requests without one are stopped with AuthRequiredMessage.
func NewAuthenticationMiddleware(authenticator auth.Authenticator, logger observe.Logger) *AuthenticationMiddleware {
	return &AuthenticationMiddleware{
		authenticator: authenticator,
		require:       true,
		logger:        observe.OrNop(logger),
	}
}

// NewPermissiveAuthentication creates a middleware that requires nothing.
func NewPermissiveAuthentication() *AuthenticationMiddleware {
	return &AuthenticationMiddleware{logger: observe.NopLogger()}
}

// NewCredentialAuthenticator tries API keys from store first, then HS256
// JWTs signed with secret. An empty secret disables JWT authentication.
func NewCredentialAuthenticator(store auth.APIKeyStore, secret []byte) auth.Authenticator {
	auths := []auth.Authenticator{auth.NewAPIKeyAuthenticator(store)}
	if len(secret) > 0 {
		auths = append(auths, auth.NewJWTAuthenticator(auth.JWTConfig{}, secret))
	}
	return auth.NewChain(auths...)
}

func (m *AuthenticationMiddleware) Name() string  { return "authentication" }
func (m *AuthenticationMiddleware) Priority() int { return AuthenticationPriority }

// Required reports whether requests must carry a valid credential.
func (m *AuthenticationMiddleware) Required() bool { return m.require }

func (m *AuthenticationMiddleware) Before(ctx context.Context, req *Request, ic *InvocationContext) Outcome {
	if !m.require {
		ic.SetMetadata(MetaAuthRequired, false)
		return Continue()
	}

	args, _ := req.ArgumentsMap()
	creds := auth.CredentialsFromArguments(args)
	if creds.IsEmpty() || m.authenticator == nil || !m.authenticator.Supports(ctx, creds) {
		m.logger.Warn(ctx, "authentication required",
			observe.F("tool", req.Name),
			observe.F("invocation_id", ic.ID),
		)
		return Stop(ErrorResult(AuthRequiredMessage))
	}

	result, err := m.authenticator.Authenticate(ctx, creds)
	if err != nil {
		return Fail(&ChainError{
			Tool:       req.Name,
			Middleware: m.Name(),
			Hook:       hookBefore,
			Message:    "authenticator failed",
			Err:        err,
		})
	}
	if !result.Authenticated {
		m.logger.Warn(ctx, "authentication failed",
			observe.F("tool", req.Name),
			observe.F("invocation_id", ic.ID),
			observe.F("method", result.Method),
			observe.F("error", result.Error),
		)
		return Stop(ErrorResult(AuthRequiredMessage))
	}

	id := result.Identity
	ic.SetMetadata(MetaAuthType, string(id.Method))
	switch id.Method {
	case auth.MethodAPIKey:
		ic.SetMetadata(MetaAuthKeyID, id.Principal)
	case auth.MethodJWT:
		ic.SetMetadata(MetaAuthUserID, id.Principal)
	}
	ic.SetMetadata(MetaAuthPermissions, id.GrantedPermissions())
	ic.SetMetadata(MetaAuthRequired, true)
	return Continue()
}
