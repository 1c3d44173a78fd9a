package ldapauth

import (
	"errors"
	"fmt"

	"github.com/go-ldap/ldap/v3"
)

// FailureKind classifies why an authentication attempt failed.
type FailureKind int

const (
	// KindTransport covers DNS, connect, TLS negotiation and timeout
	// failures before any bind was attempted.
	KindTransport FailureKind = iota
	// KindBind means the directory rejected the bind credentials, either on
	// the initial bind or on the verification re-bind.
	KindBind
	// KindDirectoryQuery means the person search returned no entry or timed
	// out. The end user's credentials were never tested in this case.
	KindDirectoryQuery
	// KindGroupMembership means the entry was found and bound but is a
	// member of none of the allowed groups.
	KindGroupMembership
)

// String implements fmt.Stringer.
func (k FailureKind) String() string {
	switch k {
	case KindTransport:
		return "transport_failure"
	case KindBind:
		return "bind_failure"
	case KindDirectoryQuery:
		return "directory_query_failure"
	case KindGroupMembership:
		return "group_membership_denied"
	default:
		return fmt.Sprintf("failure_kind(%d)", int(k))
	}
}

// Sentinel errors for classifying authentication failures with errors.Is.
var (
	// ErrInvalidCredentials is matched by any AuthError of KindBind.
	ErrInvalidCredentials = errors.New("ldapauth: invalid credentials")
	// ErrDirectoryUnavailable is matched by any AuthError of KindTransport.
	ErrDirectoryUnavailable = errors.New("ldapauth: directory unavailable")
	// ErrNoSuchPerson is matched by any AuthError of KindDirectoryQuery.
	ErrNoSuchPerson = errors.New("ldapauth: no matching person entry")
	// ErrGroupMembershipDenied is matched by any AuthError of KindGroupMembership.
	ErrGroupMembershipDenied = errors.New("ldapauth: not a member of any allowed group")
)

// AuthError is an authentication failure with operation context. It wraps
// the underlying directory or transport error while identifying the failed
// operation, the server and, where known, the DN and canonical username
// involved.
type AuthError struct {
	// Kind classifies the failure.
	Kind FailureKind
	// Op is the operation that failed (e.g. "bind", "search", "rebind").
	Op string
	// Server is the directory URL.
	Server string
	// DN is the distinguished name involved, if any.
	DN string
	// Username is the canonical account name, if already discovered. Set on
	// group-membership denials for audit purposes.
	Username string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.DN != "" {
		return fmt.Sprintf("ldapauth %s failed for DN %q on %q: %v", e.Op, e.DN, e.Server, e.Err)
	}
	return fmt.Sprintf("ldapauth %s failed on %q: %v", e.Op, e.Server, e.Err)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is maps each FailureKind to its sentinel so callers can classify with
// errors.Is without inspecting the struct.
func (e *AuthError) Is(target error) bool {
	switch target {
	case ErrInvalidCredentials:
		return e.Kind == KindBind
	case ErrDirectoryUnavailable:
		return e.Kind == KindTransport
	case ErrNoSuchPerson:
		return e.Kind == KindDirectoryQuery
	case ErrGroupMembershipDenied:
		return e.Kind == KindGroupMembership
	}
	return false
}

// newAuthError builds an AuthError for the given kind and operation.
func newAuthError(kind FailureKind, op, server string, err error) *AuthError {
	return &AuthError{Kind: kind, Op: op, Server: server, Err: err}
}

// withDN attaches the DN involved in the failed operation.
func (e *AuthError) withDN(dn string) *AuthError {
	e.DN = dn
	return e
}

// withUsername attaches the discovered canonical username.
func (e *AuthError) withUsername(username string) *AuthError {
	e.Username = username
	return e
}

// IsInvalidCredentials reports whether err represents a rejected bind,
// i.e. wrong end-user (or service-account) credentials.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// IsDirectoryUnavailable reports whether err represents a transport-level
// failure unrelated to credentials.
func IsDirectoryUnavailable(err error) bool {
	return errors.Is(err, ErrDirectoryUnavailable)
}

// IsNoSuchPerson reports whether err represents an empty or timed-out
// person search.
func IsNoSuchPerson(err error) bool {
	return errors.Is(err, ErrNoSuchPerson)
}

// IsGroupMembershipDenied reports whether err represents a failed group
// allow-list check.
func IsGroupMembershipDenied(err error) bool {
	return errors.Is(err, ErrGroupMembershipDenied)
}

// classifyBindError distinguishes credential rejections from server-side
// trouble during a bind. Result codes that indicate the server could not
// process the bind at all are reported as transport failures so operators
// can tell them apart from wrong passwords in diagnostics, even though the
// login flow maps both to the same user-visible outcome.
func classifyBindError(op, server string, err error) *AuthError {
	if ldap.IsErrorWithCode(err, ldap.LDAPResultUnavailable) ||
		ldap.IsErrorWithCode(err, ldap.LDAPResultServerDown) ||
		ldap.IsErrorWithCode(err, ldap.LDAPResultBusy) {
		return newAuthError(KindTransport, op, server, err)
	}
	return newAuthError(KindBind, op, server, err)
}
