package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubAuthenticator returns a canned answer and counts calls.
type stubAuthenticator struct {
	supports bool
	result   *AuthResult
	err      error
	calls    int
}

func (s *stubAuthenticator) Name() string { return "stub" }

func (s *stubAuthenticator) Supports(context.Context, Credentials) bool { return s.supports }

func (s *stubAuthenticator) Authenticate(context.Context, Credentials) (*AuthResult, error) {
	s.calls++
	return s.result, s.err
}

func accept(principal string) *stubAuthenticator {
	return &stubAuthenticator{supports: true, result: AuthSuccess(&Identity{Principal: principal, Method: MethodJWT})}
}

func reject(err error) *stubAuthenticator {
	return &stubAuthenticator{supports: true, result: AuthFailure(err, "stub")}
}

func TestChain_Authenticate(t *testing.T) {
	tests := []struct {
		name          string
		members       []Authenticator
		wantAuth      bool
		wantPrincipal string
		wantErr       error
	}{
		{"empty chain", nil, false, "", ErrMissingCredentials},
		{"first accepts", []Authenticator{accept("alice"), accept("bob")}, true, "alice", nil},
		{"rejection falls through", []Authenticator{reject(ErrInvalidCredentials), accept("bob")}, true, "bob", nil},
		{"unsupported skipped", []Authenticator{&stubAuthenticator{result: AuthSuccess(&Identity{Principal: "x"})}, accept("bob")}, true, "bob", nil},
		{"last rejection wins", []Authenticator{reject(ErrInvalidCredentials), reject(ErrTokenExpired)}, false, "", ErrTokenExpired},
		{"nil members dropped", []Authenticator{nil, accept("carol")}, true, "carol", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewChain(tt.members...).Authenticate(context.Background(), Credentials{APIKey: "k"})
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if result.Authenticated != tt.wantAuth {
				t.Fatalf("Authenticated = %v, want %v", result.Authenticated, tt.wantAuth)
			}
			if tt.wantAuth && result.Identity.Principal != tt.wantPrincipal {
				t.Errorf("Principal = %q, want %q", result.Identity.Principal, tt.wantPrincipal)
			}
			if tt.wantErr != nil && !errors.Is(result.Error, tt.wantErr) {
				t.Errorf("Error = %v, want %v", result.Error, tt.wantErr)
			}
		})
	}
}

func TestChain_ErrorAbortsWalk(t *testing.T) {
	boom := errors.New("store unavailable")
	next := accept("bob")
	_, err := NewChain(&stubAuthenticator{supports: true, err: boom}, next).
		Authenticate(context.Background(), Credentials{APIKey: "k"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if next.calls != 0 {
		t.Errorf("later member called %d times after an error", next.calls)
	}
}

func TestChain_Supports(t *testing.T) {
	if NewChain().Supports(context.Background(), Credentials{APIKey: "k"}) {
		t.Error("empty chain should support nothing")
	}
	c := NewChain(&stubAuthenticator{}, &stubAuthenticator{supports: true})
	if !c.Supports(context.Background(), Credentials{APIKey: "k"}) {
		t.Error("chain should support what any member supports")
	}
	if c.Name() != "chain" {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestChain_APIKeyThenJWT(t *testing.T) {
	store := NewMemoryAPIKeyStore(NewAPIKey("good-key", "ops", []string{"read"}, time.Time{}))
	jwtAuth := NewJWTAuthenticator(JWTConfig{}, []byte("secret"))
	chain := NewChain(NewAPIKeyAuthenticator(store), jwtAuth)

	token, err := jwtAuth.Issue("user-7", []string{"write"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name       string
		creds      Credentials
		wantAuth   bool
		wantMethod Method
	}{
		{"api key", Credentials{APIKey: "good-key"}, true, MethodAPIKey},
		{"api key wins over token", Credentials{APIKey: "good-key", JWTToken: token}, true, MethodAPIKey},
		{"bad key falls back to token", Credentials{APIKey: "bad-key", JWTToken: token}, true, MethodJWT},
		{"token only", Credentials{JWTToken: token}, true, MethodJWT},
		{"bad key only", Credentials{APIKey: "bad-key"}, false, ""},
		{"nothing", Credentials{}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := chain.Authenticate(context.Background(), tt.creds)
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if result.Authenticated != tt.wantAuth {
				t.Fatalf("Authenticated = %v, want %v", result.Authenticated, tt.wantAuth)
			}
			if tt.wantAuth && result.Identity.Method != tt.wantMethod {
				t.Errorf("Method = %v, want %v", result.Identity.Method, tt.wantMethod)
			}
		})
	}
}
