package ldapauth

import (
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// fakeConn is a scripted directoryConn. It records every call in order so
// tests can assert protocol sequencing (e.g. that the STARTTLS upgrade
// happens after the initial bind) and authenticates binds against a fixed
// set of known credentials.
type fakeConn struct {
	// ops records calls in order: "bind <dn>", "ntlm_bind <domain> <account>",
	// "starttls", "search <filter>", "close".
	ops []string

	// passwords maps bind DN to the accepted password.
	passwords map[string]string
	// ntlmPasswords maps "domain/account" to the accepted password.
	ntlmPasswords map[string]string

	searchResult *ldap.SearchResult
	searchErr    error
	startTLSErr  error

	lastSearch *ldap.SearchRequest
	timeout    time.Duration
	closed     bool
}

func (c *fakeConn) Bind(dn, password string) error {
	c.ops = append(c.ops, "bind "+dn)
	if want, ok := c.passwords[dn]; ok && want == password {
		return nil
	}
	return ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))
}

func (c *fakeConn) NTLMBind(domain, account, password string) error {
	c.ops = append(c.ops, fmt.Sprintf("ntlm_bind %s %s", domain, account))
	if want, ok := c.ntlmPasswords[domain+"/"+account]; ok && want == password {
		return nil
	}
	return ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))
}

func (c *fakeConn) StartTLS(_ *tls.Config) error {
	c.ops = append(c.ops, "starttls")
	return c.startTLSErr
}

func (c *fakeConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	c.ops = append(c.ops, "search "+req.Filter)
	c.lastSearch = req
	if c.searchErr != nil {
		return c.searchResult, c.searchErr
	}
	if c.searchResult == nil {
		return &ldap.SearchResult{}, nil
	}
	return c.searchResult, nil
}

func (c *fakeConn) SetTimeout(d time.Duration) {
	c.timeout = d
}

func (c *fakeConn) Close() error {
	c.ops = append(c.ops, "close")
	c.closed = true
	return nil
}

// dialTo returns a dialFunc handing out conn, recording the dialed URL.
func dialTo(conn *fakeConn, dialedURL *string) dialFunc {
	return func(url string, _ ...ldap.DialOpt) (directoryConn, error) {
		if dialedURL != nil {
			*dialedURL = url
		}
		return conn, nil
	}
}

// failingDial returns a dialFunc that fails with err.
func failingDial(err error) dialFunc {
	return func(string, ...ldap.DialOpt) (directoryConn, error) {
		return nil, err
	}
}

// personEntry builds a directory entry for search results.
func personEntry(dn string, attrs map[string][]string) *ldap.Entry {
	entry := &ldap.Entry{DN: dn}
	for name, values := range attrs {
		entry.Attributes = append(entry.Attributes, &ldap.EntryAttribute{
			Name:   name,
			Values: values,
		})
	}
	return entry
}

// searchResultWith wraps entries into a search result.
func searchResultWith(entries ...*ldap.Entry) *ldap.SearchResult {
	return &ldap.SearchResult{Entries: entries}
}
