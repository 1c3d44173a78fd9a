package ldapauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuildsKnownKind(t *testing.T) {
	reg := NewRegistry()

	cfg := serviceAccountConfig()
	p, err := reg.New(KindLDAP, cfg, NewMemoryCredentialStore())
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.NotNil(t, p.Authenticator())
}

func TestRegistryUnknownKind(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.New(ProviderKind("saml"), serviceAccountConfig(), NewMemoryCredentialStore())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider kind")
}

func TestRegistryKinds(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, []ProviderKind{KindLDAP}, reg.Kinds())
}

func TestProviderRequiresCredentialStore(t *testing.T) {
	_, err := NewProvider(serviceAccountConfig(), nil)
	require.Error(t, err)
}
