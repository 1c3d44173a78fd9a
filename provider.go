package ldapauth

import (
	"errors"
	"log/slog"
)

// Provider ties the authenticator to the host's credential store and hands
// out login flows. One Provider serves any number of concurrent flows.
type Provider struct {
	auth        *Authenticator
	credentials CredentialStore
	logger      *slog.Logger
}

// NewProvider builds a Provider for the given directory configuration and
// host credential store.
func NewProvider(cfg *Config, store CredentialStore) (*Provider, error) {
	if store == nil {
		return nil, errors.New("ldapauth: credential store cannot be nil")
	}

	auth, err := NewAuthenticator(cfg)
	if err != nil {
		return nil, err
	}

	return &Provider{
		auth:        auth,
		credentials: store,
		logger:      auth.logger,
	}, nil
}

// Authenticator exposes the decision engine for hosts that drive
// authentication without the interactive flow.
func (p *Provider) Authenticator() *Authenticator {
	return p.auth
}

// LoginFlow starts a new interactive login flow in the awaiting state.
func (p *Provider) LoginFlow() *LoginFlow {
	return &LoginFlow{provider: p, state: StateAwaitingCredentials}
}

// UserMeta returns the metadata record the host uses to materialize a user
// profile for a credential on first login.
func (p *Provider) UserMeta(cred *Credential) UserMeta {
	return UserMeta{DisplayName: cred.Username, IsActive: true}
}
