package ldapauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-ldap/ldap/v3"
	"golang.org/x/text/cases"
)

const (
	attrDisplayName = "displayName"
	attrMemberOf    = "memberOf"

	// personFilter matches the single person entry an authentication
	// attempt is about. The search is size-limited to one entry; if several
	// entries could match, only the first is considered.
	personFilter = "(objectclass=person)"
)

// Authenticator decides whether a username/password pair authenticates
// against the configured directory. Every call is a self-contained unit of
// work (dial, bind, search, optional re-bind, close); concurrent calls are
// independent and share only the immutable Config.
type Authenticator struct {
	config   *Config
	strategy bindStrategy
	logger   *slog.Logger
	dial     dialFunc
}

// NewAuthenticator applies Config defaults, validates the invariants and
// resolves the bind strategy.
func NewAuthenticator(cfg *Config) (*Authenticator, error) {
	if cfg == nil {
		return nil, errors.New("ldapauth: config cannot be nil")
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, fmt.Errorf("ldapauth: applying config defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Authenticator{
		config:   cfg,
		strategy: resolveBindStrategy(cfg),
		logger:   cfg.logger(),
		dial:     dialDirectory,
	}, nil
}

// Authenticate verifies the supplied credentials against the directory and
// returns the matching entry's identity.
//
// The attempt opens a fresh connection, binds under the resolved strategy,
// searches beneath BaseDN for the person entry, enforces the group
// allow-list and, when the initial bind used the service account, re-binds
// as the discovered entry with the end user's password. Failures are
// *AuthError values; classify them with errors.Is against the package
// sentinels. The password is used for the binds only and never retained.
//
// Latency is bounded by Config.Timeout per network operation. Callers on a
// latency-sensitive path should run Authenticate off that path.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	start := time.Now()
	cfg := a.config
	maskedUsername := maskSensitiveData(username)

	a.logger.Debug("authentication_attempt",
		slog.String("server", maskSensitiveData(cfg.Server)),
		slog.String("username_masked", maskedUsername))

	conn, err := a.openSession(ctx, username, password)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	entry, err := a.searchPerson(conn)
	if err != nil {
		a.logger.Warn("authentication_failed",
			slog.String("username_masked", maskedUsername),
			slog.String("failure", "directory_query"),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return nil, err
	}

	identity := &Identity{
		Username:    entry.GetAttributeValue(cfg.usernameAttribute()),
		DisplayName: entry.GetAttributeValue(attrDisplayName),
		DN:          entry.DN,
		Groups:      entry.GetAttributeValues(attrMemberOf),
	}

	a.logger.Debug("person_entry_found",
		slog.String("username_masked", maskSensitiveData(identity.Username)),
		slog.String("dn_masked", maskSensitiveData(identity.DN)))

	if len(cfg.AllowedGroupDNs) > 0 && !memberOfAny(identity.Groups, cfg.AllowedGroupDNs) {
		a.logger.Warn("authentication_denied_group_membership",
			slog.String("username", identity.Username),
			slog.Int("claimed_groups", len(identity.Groups)),
			slog.Int("allowed_groups", len(cfg.AllowedGroupDNs)),
			slog.Duration("duration", time.Since(start)))
		err := newAuthError(KindGroupMembership, "group_check", cfg.URL(),
			fmt.Errorf("user %s is not a member of any allowed group", identity.Username))
		return nil, err.withDN(identity.DN).withUsername(identity.Username)
	}

	// The service-account bind only proved the service account's
	// credentials. Verify the end user's password by re-binding the same
	// connection as the discovered entry.
	if a.strategy.usesServiceAccount() {
		if err := conn.Bind(entry.DN, password); err != nil {
			a.logger.Warn("authentication_rebind_failed",
				slog.String("username_masked", maskedUsername),
				slog.String("dn_masked", maskSensitiveData(entry.DN)),
				slog.String("error", err.Error()),
				slog.Duration("duration", time.Since(start)))
			return nil, classifyBindError("rebind", cfg.URL(), err).withDN(entry.DN)
		}
	}

	a.logger.Info("authentication_successful",
		slog.String("username_masked", maskSensitiveData(identity.Username)),
		slog.String("display_name_masked", maskSensitiveData(identity.DisplayName)),
		slog.Duration("duration", time.Since(start)))

	return identity, nil
}

// searchPerson runs the single-entry person search beneath BaseDN.
func (a *Authenticator) searchPerson(conn directoryConn) (*ldap.Entry, error) {
	cfg := a.config

	// Size limit 1: the first matching entry wins. Time limit is the
	// configured timeout, in seconds.
	req := ldap.NewSearchRequest(
		cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		1,
		int(cfg.Timeout/time.Second),
		false,
		personFilter,
		[]string{cfg.usernameAttribute(), attrDisplayName, attrMemberOf},
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		// A size-limit overrun still carries the first entry; the search is
		// deliberately limited to one result and ambiguity is not resolved.
		if ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) && res != nil && len(res.Entries) > 0 {
			return res.Entries[0], nil
		}
		return nil, newAuthError(KindDirectoryQuery, "search", cfg.URL(), err)
	}
	if len(res.Entries) == 0 {
		return nil, newAuthError(KindDirectoryQuery, "search", cfg.URL(),
			errors.New("person search returned no entries"))
	}
	return res.Entries[0], nil
}

// memberOfAny reports whether any allowed group DN matches one of the
// entry's claimed groups. Comparison uses Unicode case folding, so
// "CN=Staff,DC=Example,DC=Com" matches "cn=staff,dc=example,dc=com".
func memberOfAny(claimed, allowed []string) bool {
	fold := cases.Fold()
	folded := make(map[string]struct{}, len(claimed))
	for _, g := range claimed {
		folded[fold.String(g)] = struct{}{}
	}
	for _, g := range allowed {
		if _, ok := folded[fold.String(g)]; ok {
			return true
		}
	}
	return false
}
