package ldapauth

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Credential is the host-owned record linking a directory username to the
// host's user machinery. This package only ever reads it; passwords are
// never part of a Credential.
type Credential struct {
	// ID is the host's stable identifier for the credential.
	ID uuid.UUID
	// Username is the canonical directory account name the credential was
	// issued for.
	Username string
}

// UserMeta is the metadata the host uses to materialize a user profile on
// first login.
type UserMeta struct {
	DisplayName string
	IsActive    bool
}

// CredentialStore is the host's credential-resolution interface. A
// successful login flow hands the authenticated username to
// FindOrCreateCredential, which must return the existing credential for an
// exact username match or create a new one. Implementations must be safe
// for concurrent use.
type CredentialStore interface {
	FindOrCreateCredential(ctx context.Context, username string) (*Credential, error)
}

// MemoryCredentialStore is an in-memory CredentialStore for hosts without
// their own credential persistence, and for tests. Lookups match the exact
// username; repeated logins for the same username resolve to the same
// credential.
type MemoryCredentialStore struct {
	mu         sync.Mutex
	byUsername map[string]*Credential
}

// NewMemoryCredentialStore returns an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{byUsername: make(map[string]*Credential)}
}

// FindOrCreateCredential implements CredentialStore.
func (s *MemoryCredentialStore) FindOrCreateCredential(_ context.Context, username string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cred, ok := s.byUsername[username]; ok {
		return cred, nil
	}

	cred := &Credential{ID: uuid.New(), Username: username}
	s.byUsername[username] = cred
	return cred, nil
}
