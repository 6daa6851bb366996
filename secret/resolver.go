package secret

import (
	"context"
	"fmt"
	"strings"
)

const refPrefix = "secretref:"

// Ref points at a secret held by a provider, written secretref:<provider>:<key>.
type Ref struct {
	Provider string
	Key      string
}

func (r Ref) String() string { return refPrefix + r.Provider + ":" + r.Key }

// ParseRef reports whether value is a complete secret reference. The key
// may itself contain colons.
func ParseRef(value string) (Ref, bool) {
	rest, ok := strings.CutPrefix(value, refPrefix)
	if !ok {
		return Ref{}, false
	}
	provider, key, ok := strings.Cut(rest, ":")
	if !ok || provider == "" || key == "" {
		return Ref{}, false
	}
	return Ref{Provider: provider, Key: key}, true
}

// Field is a named config value resolved in place.
type Field struct {
	Name  string
	Value *string
}

// Resolver turns config values into secrets: ${VAR} references expand
// first, then a secretref is handed to its provider.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a Resolver. A strict resolver treats a secret that
// resolves to "" as an error.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider, len(providers)), strict: strict}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// DefaultResolver is strict and knows the env and file providers.
func DefaultResolver() *Resolver {
	return NewResolver(true, EnvProvider{}, FileProvider{})
}

// Resolve expands value and, when it is a secretref, fetches the secret.
// Plain values are returned expanded.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	ref, ok := ParseRef(expanded)
	if !ok {
		return expanded, nil
	}

	p, ok := r.providers[ref.Provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, ref.Provider)
	}
	v, err := p.Resolve(ctx, ref.Key)
	if err != nil {
		return "", err
	}
	if v == "" && r.strict {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, ref.Provider)
	}
	return v, nil
}

// ResolveFields resolves each non-empty field in place. The first failure
// stops the walk and is prefixed with the field name.
func (r *Resolver) ResolveFields(ctx context.Context, fields ...Field) error {
	for _, f := range fields {
		if f.Value == nil || *f.Value == "" {
			continue
		}
		v, err := r.Resolve(ctx, *f.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		*f.Value = v
	}
	return nil
}
