package auth

import "time"

// Identity is a registered user and the opaque key that authorizes their uploads.
type Identity struct {
	Key          string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// SafeIdentity removes the password hash for response payloads.
func (i Identity) SafeIdentity() Identity {
	i.PasswordHash = ""
	return i
}
