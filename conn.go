package ldapauth

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// directoryConn is the subset of *ldap.Conn the authenticator touches.
// Narrowing the surface keeps the session logic testable against a fake
// connection without a directory server.
type directoryConn interface {
	Bind(username, password string) error
	NTLMBind(domain, username, password string) error
	StartTLS(config *tls.Config) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	SetTimeout(d time.Duration)
	Close() error
}

// dialFunc opens a directory connection. The default is ldap.DialURL.
type dialFunc func(url string, opts ...ldap.DialOpt) (directoryConn, error)

func dialDirectory(url string, opts ...ldap.DialOpt) (directoryConn, error) {
	return ldap.DialURL(url, opts...)
}

// bindMethod selects how the initial bind authenticates.
type bindMethod int

const (
	// bindSimple binds with a constructed DN "<attr>=<user>,<BaseDN>".
	bindSimple bindMethod = iota
	// bindNTLM binds with the Active Directory NTLM mechanism.
	bindNTLM
)

// credentialSource selects whose credentials the initial bind uses.
type credentialSource int

const (
	// credentialsService binds with the configured service account. The end
	// user's password is verified later by re-binding as the found entry.
	credentialsService credentialSource = iota
	// credentialsEndUser binds with the end user's own credentials, so the
	// initial bind itself is the credential check.
	credentialsEndUser
)

// bindStrategy is the bind method and credential source resolved once per
// Config at construction time. Authentication attempts never re-branch on
// the raw config flags.
type bindStrategy struct {
	method bindMethod
	source credentialSource
}

func resolveBindStrategy(cfg *Config) bindStrategy {
	s := bindStrategy{method: bindSimple, source: credentialsService}
	if cfg.IsActiveDirectory {
		s.method = bindNTLM
	}
	if cfg.BindAsUser {
		s.source = credentialsEndUser
	}
	return s
}

// usesServiceAccount reports whether the initial bind proves the service
// account's credentials rather than the end user's.
func (s bindStrategy) usesServiceAccount() bool {
	return s.source == credentialsService
}

// bindCredentials picks the username/password pair for the initial bind.
func (s bindStrategy) bindCredentials(cfg *Config, username, password string) (string, string) {
	if s.source == credentialsService {
		return cfg.BindUsername, cfg.BindPassword
	}
	return username, password
}

// bind authenticates conn according to the strategy.
func (s bindStrategy) bind(conn directoryConn, cfg *Config, bindUser, bindPass string) error {
	if s.method == bindNTLM {
		domain, account := splitDomainAccount(bindUser)
		return conn.NTLMBind(domain, account, bindPass)
	}
	dn := fmt.Sprintf("%s=%s,%s", cfg.usernameAttribute(), ldap.EscapeDN(bindUser), cfg.BaseDN)
	return conn.Bind(dn, bindPass)
}

// splitDomainAccount splits "DOMAIN\user" and "user@domain" NTLM principal
// forms into their domain and account parts. Bare usernames pass through
// with an empty domain, leaving domain selection to the server.
func splitDomainAccount(principal string) (domain, account string) {
	if i := strings.Index(principal, `\`); i >= 0 {
		return principal[:i], principal[i+1:]
	}
	if i := strings.LastIndex(principal, "@"); i >= 0 {
		return principal[i+1:], principal[:i]
	}
	return "", principal
}

// tlsConfig builds the TLS client configuration for LDAPS and STARTTLS.
// With InsecureSkipVerify set any server certificate is accepted; this is
// the operator opt-out for self-signed deployments.
func (c *Config) tlsConfig() *tls.Config {
	tc := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.InsecureSkipVerify {
		tc.InsecureSkipVerify = true
	} else {
		tc.ServerName = c.Server
	}
	return tc
}

// openSession dials the directory, performs the initial bind under the
// resolved strategy and, in STARTTLS mode, upgrades the connection. The
// caller owns the returned connection and must close it; sessions are
// never pooled or reused across authentication attempts.
//
// STARTTLS is negotiated after the initial bind to stay byte-compatible
// with the deployments this package replaces, so in that mode the bind
// credentials cross the wire before encryption is active.
func (a *Authenticator) openSession(ctx context.Context, username, password string) (directoryConn, error) {
	cfg := a.config
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, newAuthError(KindTransport, "dial", cfg.URL(), err)
	}

	opts := []ldap.DialOpt{ldap.DialWithDialer(&net.Dialer{Timeout: cfg.Timeout})}
	if cfg.Encryption == EncryptionLDAPS {
		opts = append(opts, ldap.DialWithTLSConfig(cfg.tlsConfig()))
	}

	conn, err := a.dial(cfg.URL(), opts...)
	if err != nil {
		a.logger.Error("directory_dial_failed",
			slog.String("server", maskSensitiveData(cfg.Server)),
			slog.String("encryption", string(cfg.Encryption)),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return nil, newAuthError(KindTransport, "dial", cfg.URL(), err)
	}
	conn.SetTimeout(cfg.Timeout)

	bindUser, bindPass := a.strategy.bindCredentials(cfg, username, password)
	if err := a.strategy.bind(conn, cfg, bindUser, bindPass); err != nil {
		_ = conn.Close()
		a.logger.Warn("directory_bind_failed",
			slog.String("server", maskSensitiveData(cfg.Server)),
			slog.String("bind_principal", maskSensitiveData(bindUser)),
			slog.Bool("service_account", a.strategy.usesServiceAccount()),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return nil, classifyBindError("bind", cfg.URL(), err)
	}

	if cfg.Encryption == EncryptionStartTLS {
		if err := conn.StartTLS(cfg.tlsConfig()); err != nil {
			_ = conn.Close()
			a.logger.Error("directory_starttls_failed",
				slog.String("server", maskSensitiveData(cfg.Server)),
				slog.String("error", err.Error()),
				slog.Duration("duration", time.Since(start)))
			return nil, newAuthError(KindTransport, "starttls", cfg.URL(), err)
		}
	}

	a.logger.Debug("directory_session_established",
		slog.String("server", maskSensitiveData(cfg.Server)),
		slog.String("encryption", string(cfg.Encryption)),
		slog.Bool("service_account", a.strategy.usesServiceAccount()),
		slog.Duration("duration", time.Since(start)))

	return conn, nil
}
