// Package ldapauth authenticates end users against an LDAP or Active
// Directory server on behalf of a host identity layer.
//
// The package translates directory semantics (binds, searches, group
// membership, encryption modes) into a pass/fail authentication decision
// plus the authenticated user's directory identity. It deliberately owns
// no persistence: credential records and user profiles belong to the
// host, which the package reaches through small interfaces.
//
// # Basic Usage
//
//	cfg := &ldapauth.Config{
//		Server:       "ldap.example.com",
//		BaseDN:       "dc=example,dc=com",
//		BindUsername: "serviceaccount",
//		BindPassword: "secret",
//	}
//
//	provider, err := ldapauth.NewProvider(cfg, ldapauth.NewMemoryCredentialStore())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	flow := provider.LoginFlow()
//	form, _ := flow.Step(ctx, nil) // form requesting username and password
//	res, err := flow.Step(ctx, &ldapauth.StepInput{Username: "jdoe", Password: "pw"})
//
// Every authentication attempt opens a fresh connection, binds, searches
// for the matching person entry, enforces the optional group allow-list
// and, when the initial bind used the service account, re-binds as the
// discovered entry to verify the end user's own password. Connections are
// never pooled or reused across users.
//
// # Bind Strategies
//
// The bind strategy is resolved once from the Config: Active Directory
// deployments bind with the directory's NTLM mechanism, everything else
// with a simple bind against "<attr>=<username>,<BaseDN>". Either the
// configured service account or the end user's own credentials are used,
// depending on Config.BindAsUser.
//
// # Encryption
//
// Supported modes are EncryptionNone, EncryptionLDAPS (implicit TLS) and
// EncryptionStartTLS. In STARTTLS mode the connection is upgraded after
// the initial bind, matching the behavior of deployments this package
// replaces; the initial bind therefore crosses the wire unencrypted.
// Prefer LDAPS where that is not acceptable.
//
// # Error Handling
//
// Failures carry a FailureKind and match package sentinels via errors.Is:
//   - ErrInvalidCredentials: a bind was rejected
//   - ErrDirectoryUnavailable: dial, TLS or timeout trouble before a bind
//   - ErrNoSuchPerson: the person search returned nothing or timed out
//   - ErrGroupMembershipDenied: the entry is in none of the allowed groups
package ldapauth
