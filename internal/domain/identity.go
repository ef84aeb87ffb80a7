package domain

// Identity is the key against which quota is tracked: a persisted anonymous
// token, or a username once login succeeds. Exactly one identity is active
// per session; switching from anonymous to authenticated never merges usage.
type Identity struct {
	Key           string
	Authenticated bool
}

// AnonymousIdentity wraps a visitor token.
func AnonymousIdentity(token string) Identity {
	return Identity{Key: token}
}

// AuthenticatedIdentity wraps a username.
func AuthenticatedIdentity(username string) Identity {
	return Identity{Key: username, Authenticated: true}
}
