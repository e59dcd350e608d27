// Package identity defines the authenticated-user model shared by the
// session store, the auth gateway and the login flow.
package identity

// Identity is the record of a logged-in user. The zero value means
// "nobody is logged in".
type Identity struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
}

// IsZero reports whether the identity is the unauthenticated default.
func (i Identity) IsZero() bool {
	return i.Username == ""
}

// Session pairs an identity with its derived authenticated flag.
type Session struct {
	Identity Identity `json:"identity"`
}

// Authenticated is derived from the identity; it is never stored.
func (s Session) Authenticated() bool {
	return !s.Identity.IsZero()
}
