package ldapauth

import (
	"context"
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testProvider wires a provider to a scripted connection factory.
func testProvider(t *testing.T, cfg *Config, store CredentialStore, dial dialFunc) *Provider {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	p, err := NewProvider(cfg, store)
	require.NoError(t, err)
	p.auth.dial = dial
	return p
}

func workingDirectoryDial() dialFunc {
	return func(string, ...ldap.DialOpt) (directoryConn, error) {
		return &fakeConn{
			passwords: map[string]string{
				testSvcDN:   "svcpw",
				testEntryDN: "userpw",
			},
			searchResult: searchResultWith(jdoeEntry("cn=staff,dc=example,dc=com")),
		}, nil
	}
}

func TestLoginFlowInitialForm(t *testing.T) {
	p := testProvider(t, serviceAccountConfig(), NewMemoryCredentialStore(), workingDirectoryDial())

	flow := p.LoginFlow()
	require.Equal(t, StateAwaitingCredentials, flow.State())

	res, err := flow.Step(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, StepResultForm, res.Type)
	assert.Equal(t, []string{"username", "password"}, res.Fields)
	assert.Empty(t, res.ErrorCode)
	assert.Equal(t, StateAwaitingCredentials, flow.State())
}

func TestLoginFlowSuccess(t *testing.T) {
	store := NewMemoryCredentialStore()
	p := testProvider(t, serviceAccountConfig(), store, workingDirectoryDial())

	flow := p.LoginFlow()
	res, err := flow.Step(context.Background(), &StepInput{Username: "jdoe", Password: "userpw"})
	require.NoError(t, err)

	assert.Equal(t, StepResultDone, res.Type)
	assert.Equal(t, "jdoe", res.Username)
	require.NotNil(t, res.Credential)
	assert.Equal(t, "jdoe", res.Credential.Username)
	assert.Equal(t, StateCompleted, flow.State())

	// The completion payload carries the username only; the input's
	// password is wiped as soon as the attempt is decided.
	input := &StepInput{Username: "jdoe", Password: "userpw"}
	flow2 := p.LoginFlow()
	_, err = flow2.Step(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, input.Password)
}

func TestLoginFlowInvalidCredentials(t *testing.T) {
	p := testProvider(t, serviceAccountConfig(), NewMemoryCredentialStore(), workingDirectoryDial())

	flow := p.LoginFlow()
	res, err := flow.Step(context.Background(), &StepInput{Username: "jdoe", Password: "wrongpw"})
	require.NoError(t, err)

	assert.Equal(t, StepResultForm, res.Type)
	assert.Equal(t, ErrorCodeInvalidAuth, res.ErrorCode)
	assert.Equal(t, []string{"username", "password"}, res.Fields)
	assert.Equal(t, StateAwaitingCredentials, flow.State())

	// The flow stays usable: a correct retry completes.
	res, err = flow.Step(context.Background(), &StepInput{Username: "jdoe", Password: "userpw"})
	require.NoError(t, err)
	assert.Equal(t, StepResultDone, res.Type)
}

func TestLoginFlowGroupDenialMapsToInvalidAuth(t *testing.T) {
	cfg := serviceAccountConfig()
	cfg.AllowedGroupDNs = []string{"cn=admins,dc=example,dc=com"}
	p := testProvider(t, cfg, NewMemoryCredentialStore(), workingDirectoryDial())

	res, err := p.LoginFlow().Step(context.Background(), &StepInput{Username: "jdoe", Password: "userpw"})
	require.NoError(t, err)
	assert.Equal(t, ErrorCodeInvalidAuth, res.ErrorCode)
}

func TestLoginFlowTransportFaultMapsToGenericError(t *testing.T) {
	p := testProvider(t, serviceAccountConfig(), NewMemoryCredentialStore(),
		failingDial(errors.New("no route to host")))

	res, err := p.LoginFlow().Step(context.Background(), &StepInput{Username: "jdoe", Password: "userpw"})
	require.NoError(t, err)
	assert.Equal(t, StepResultForm, res.Type)
	assert.Equal(t, ErrorCodeGeneric, res.ErrorCode)
}

func TestLoginFlowQueryFailureMapsToGenericError(t *testing.T) {
	p := testProvider(t, serviceAccountConfig(), NewMemoryCredentialStore(),
		func(string, ...ldap.DialOpt) (directoryConn, error) {
			return &fakeConn{
				passwords:    map[string]string{testSvcDN: "svcpw"},
				searchResult: searchResultWith(),
			}, nil
		})

	res, err := p.LoginFlow().Step(context.Background(), &StepInput{Username: "ghost", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, ErrorCodeGeneric, res.ErrorCode,
		"an unknown user must not be reported as wrong credentials")
}

func TestLoginFlowCompletedIsTerminal(t *testing.T) {
	p := testProvider(t, serviceAccountConfig(), NewMemoryCredentialStore(), workingDirectoryDial())

	flow := p.LoginFlow()
	_, err := flow.Step(context.Background(), &StepInput{Username: "jdoe", Password: "userpw"})
	require.NoError(t, err)

	_, err = flow.Step(context.Background(), &StepInput{Username: "jdoe", Password: "userpw"})
	assert.ErrorIs(t, err, ErrFlowCompleted)
}

func TestLoginFlowIdempotentCredentialResolution(t *testing.T) {
	store := NewMemoryCredentialStore()
	p := testProvider(t, serviceAccountConfig(), store, workingDirectoryDial())

	first, err := p.LoginFlow().Step(context.Background(), &StepInput{Username: "jdoe", Password: "userpw"})
	require.NoError(t, err)
	second, err := p.LoginFlow().Step(context.Background(), &StepInput{Username: "jdoe", Password: "userpw"})
	require.NoError(t, err)

	assert.Equal(t, first.Credential.ID, second.Credential.ID,
		"repeated logins must resolve to the same credential, never duplicate")
}

func TestLoginFlowCredentialStoreFault(t *testing.T) {
	storeErr := errors.New("store offline")
	p := testProvider(t, serviceAccountConfig(), credentialStoreFunc(func(context.Context, string) (*Credential, error) {
		return nil, storeErr
	}), workingDirectoryDial())

	flow := p.LoginFlow()
	_, err := flow.Step(context.Background(), &StepInput{Username: "jdoe", Password: "userpw"})
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, StateAwaitingCredentials, flow.State())
}

func TestProviderUserMeta(t *testing.T) {
	p := testProvider(t, serviceAccountConfig(), NewMemoryCredentialStore(), workingDirectoryDial())

	meta := p.UserMeta(&Credential{Username: "jdoe"})
	assert.Equal(t, "jdoe", meta.DisplayName)
	assert.True(t, meta.IsActive)
}

// credentialStoreFunc adapts a function to the CredentialStore interface.
type credentialStoreFunc func(ctx context.Context, username string) (*Credential, error)

func (f credentialStoreFunc) FindOrCreateCredential(ctx context.Context, username string) (*Credential, error) {
	return f(ctx, username)
}
