package ldapauth

// Identity is the directory's view of an authenticated user, extracted
// from a single search result. It is handed to the caller once per
// successful authentication and holds no connection state.
type Identity struct {
	// Username is the canonical account name: the value of the configured
	// username attribute, or sAMAccountName in Active Directory mode.
	Username string
	// DisplayName is the entry's displayName attribute ("Firstname Lastname").
	DisplayName string
	// DN is the entry's distinguished name.
	DN string
	// Groups lists the group DNs the entry claims membership in (memberOf).
	Groups []string
}
