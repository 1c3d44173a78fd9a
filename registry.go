package ldapauth

import (
	"fmt"
	"sort"
)

// ProviderKind tags a provider constructor in a Registry.
type ProviderKind string

// KindLDAP is the directory-backed provider this package implements.
const KindLDAP ProviderKind = "ldap"

// Constructor builds a Provider from a directory configuration and a host
// credential store.
type Constructor func(cfg *Config, store CredentialStore) (*Provider, error)

// Registry maps provider kinds to constructors. It is populated from a
// fixed list at construction and read-only afterwards; there is no global
// mutable registration.
type Registry struct {
	constructors map[ProviderKind]Constructor
}

// NewRegistry returns a registry holding the built-in provider kinds.
func NewRegistry() *Registry {
	return &Registry{
		constructors: map[ProviderKind]Constructor{
			KindLDAP: NewProvider,
		},
	}
}

// New builds a provider of the given kind.
func (r *Registry) New(kind ProviderKind, cfg *Config, store CredentialStore) (*Provider, error) {
	ctor, ok := r.constructors[kind]
	if !ok {
		return nil, fmt.Errorf("ldapauth: unknown provider kind %q", kind)
	}
	return ctor(cfg, store)
}

// Kinds lists the registered provider kinds in stable order.
func (r *Registry) Kinds() []ProviderKind {
	kinds := make([]ProviderKind, 0, len(r.constructors))
	for k := range r.constructors {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
