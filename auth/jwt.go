package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected token issuer (iss claim). Empty skips the check.
	Issuer string

	// Audience is the expected token audience (aud claim). Empty skips the check.
	Audience string

	// PermissionsClaim is the claim holding granted permissions.
	// Default: "permissions"
	PermissionsClaim string
}

// JWTAuthenticator validates HS256 tokens signed with a shared secret.
type JWTAuthenticator struct {
	config JWTConfig
	secret []byte
	now    func() time.Time
}

// NewJWTAuthenticator creates a new JWT authenticator.
func NewJWTAuthenticator(config JWTConfig, secret []byte) *JWTAuthenticator {
	if config.PermissionsClaim == "" {
		config.PermissionsClaim = "permissions"
	}
	return &JWTAuthenticator{config: config, secret: secret, now: time.Now}
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string {
	return "jwt"
}

// Supports returns true if a token was presented.
func (a *JWTAuthenticator) Supports(_ context.Context, creds Credentials) bool {
	return creds.JWTToken != ""
}

// Authenticate validates the token signature, expiry, issuer and audience.
func (a *JWTAuthenticator) Authenticate(_ context.Context, creds Credentials) (*AuthResult, error) {
	tokenString := strings.TrimSpace(creds.JWTToken)
	if tokenString == "" {
		return AuthFailure(ErrMissingCredentials, "jwt"), nil
	}
	if len(a.secret) == 0 {
		return AuthFailure(ErrInvalidCredentials, "jwt"), nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.config.Issuer))
	}
	if a.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.config.Audience))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return AuthFailure(classifyJWTError(err), "jwt"), nil
	}

	return AuthSuccess(a.buildIdentity(claims)), nil
}

// Issue signs a token for subject carrying permissions, valid for ttl.
func (a *JWTAuthenticator) Issue(subject string, permissions []string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", ErrMissingSecret
	}

	now := a.now()
	claims := jwt.MapClaims{
		"sub":                     subject,
		"iat":                     now.Unix(),
		"exp":                     now.Add(ttl).Unix(),
		a.config.PermissionsClaim: permissions,
	}
	if a.config.Issuer != "" {
		claims["iss"] = a.config.Issuer
	}
	if a.config.Audience != "" {
		claims["aud"] = a.config.Audience
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidCredentials
	default:
		return ErrTokenMalformed
	}
}

func (a *JWTAuthenticator) buildIdentity(claims jwt.MapClaims) *Identity {
	identity := &Identity{
		Method: MethodJWT,
		Claims: make(map[string]any, len(claims)),
	}
	for k, v := range claims {
		identity.Claims[k] = v
	}

	if sub, err := claims.GetSubject(); err == nil {
		identity.Principal = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		identity.IssuedAt = iat.Time
	}

	if perms, ok := claims[a.config.PermissionsClaim].([]any); ok {
		identity.Permissions = make([]string, 0, len(perms))
		for _, p := range perms {
			if s, ok := p.(string); ok {
				identity.Permissions = append(identity.Permissions, s)
			}
		}
	}

	return identity
}

var _ Authenticator = (*JWTAuthenticator)(nil)
