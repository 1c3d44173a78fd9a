package ldapauth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creasty/defaults"
)

// Encryption selects how the directory connection is protected.
type Encryption string

const (
	// EncryptionNone uses a plaintext connection.
	EncryptionNone Encryption = "none"
	// EncryptionLDAPS uses implicit TLS from the first byte (port 636 by default).
	EncryptionLDAPS Encryption = "ldaps"
	// EncryptionStartTLS opens a plaintext connection and upgrades it to TLS
	// after the initial bind. The bind credentials cross the wire before the
	// upgrade; this ordering is kept for compatibility with existing
	// deployments and is not a transport-security guarantee.
	EncryptionStartTLS Encryption = "starttls"
)

// AttrSAMAccountName is the account-name attribute used instead of
// Config.UsernameAttribute when Config.IsActiveDirectory is set.
const AttrSAMAccountName = "sAMAccountName"

var (
	// ErrServerRequired is returned by Config.Validate when no server is configured.
	ErrServerRequired = errors.New("ldapauth: server cannot be empty")
	// ErrBaseDNRequired is returned by Config.Validate when no base DN is configured.
	ErrBaseDNRequired = errors.New("ldapauth: base DN cannot be empty")
	// ErrServiceAccountRequired is returned by Config.Validate when the
	// service-account bind strategy is selected without service-account
	// credentials.
	ErrServiceAccountRequired = errors.New("ldapauth: service-account bind requires BindUsername and BindPassword")
)

// Config describes one directory server and how to authenticate against it.
// It is immutable after the provider is constructed; the same Config is
// shared read-only by all concurrent authentication attempts.
//
// Schema-level validation (types, ranges) is the host's job. Validate only
// enforces the invariants this package depends on.
type Config struct {
	// Server is the directory host name or address, without scheme or port.
	Server string
	// Port is the directory port. Defaults to 636, the LDAPS port.
	Port int `default:"636"`
	// Encryption selects the transport mode. Defaults to EncryptionLDAPS.
	Encryption Encryption `default:"ldaps"`
	// InsecureSkipVerify disables server certificate validation. This is an
	// explicit operator opt-out for lab or self-signed deployments.
	InsecureSkipVerify bool
	// Timeout bounds connect, bind and search. Defaults to 10s.
	Timeout time.Duration `default:"10s"`

	// BaseDN is the subtree searched for person entries and the suffix of
	// constructed bind DNs.
	BaseDN string
	// UsernameAttribute names the attribute holding the canonical account
	// name. Defaults to "uid". Ignored when IsActiveDirectory is set, which
	// forces sAMAccountName.
	UsernameAttribute string `default:"uid"`
	// IsActiveDirectory switches to Active Directory behavior: NTLM binds
	// and the sAMAccountName attribute.
	IsActiveDirectory bool

	// BindAsUser binds with the end user's own credentials instead of the
	// service account. When false (the default) BindUsername and
	// BindPassword must be set, and each authentication attempt re-binds as
	// the discovered entry to verify the end user's password.
	BindAsUser   bool
	BindUsername string
	BindPassword string

	// AllowedGroupDNs restricts authentication to members of at least one of
	// the listed group DNs (case-insensitive comparison). Empty means no
	// restriction.
	AllowedGroupDNs []string

	// Logger receives structured authentication events. Defaults to
	// slog.Default(). Usernames, DNs and server names are masked before
	// logging.
	Logger *slog.Logger
}

// applyDefaults fills zero-valued fields with the documented defaults.
func (c *Config) applyDefaults() error {
	return defaults.Set(c)
}

// Validate enforces the invariants the authenticator depends on.
func (c *Config) Validate() error {
	if c.Server == "" {
		return ErrServerRequired
	}
	if c.BaseDN == "" {
		return ErrBaseDNRequired
	}
	switch c.Encryption {
	case EncryptionNone, EncryptionLDAPS, EncryptionStartTLS:
	default:
		return fmt.Errorf("ldapauth: unknown encryption mode %q", c.Encryption)
	}
	if !c.BindAsUser && (c.BindUsername == "" || c.BindPassword == "") {
		return ErrServiceAccountRequired
	}
	return nil
}

// URL returns the dial URL for the configured server and encryption mode.
func (c *Config) URL() string {
	scheme := "ldap"
	if c.Encryption == EncryptionLDAPS {
		scheme = "ldaps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Server, c.Port)
}

// usernameAttribute returns the attribute the canonical account name is
// read from, honoring the Active Directory override.
func (c *Config) usernameAttribute() string {
	if c.IsActiveDirectory {
		return AttrSAMAccountName
	}
	return c.UsernameAttribute
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
