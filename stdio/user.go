package stdio

import (
	"errors"
	"os/user"
)

// UserProvider names the stdio peer. No credentials cross the stdio
// boundary, so the peer is whoever launched the process.
type UserProvider interface {
	CurrentUserID() (string, error)
}

// UserProviderFunc adapts a function to UserProvider.
type UserProviderFunc func() (string, error)

func (f UserProviderFunc) CurrentUserID() (string, error) { return f() }

// StaticUser always reports the same user ID.
type StaticUser string

func (s StaticUser) CurrentUserID() (string, error) {
	if s == "" {
		return "", errors.New("stdio: empty static user id")
	}
	return string(s), nil
}

// OSUserProvider reports the username of the process owner, or its uid when
// the account has no name.
type OSUserProvider struct{}

func (OSUserProvider) CurrentUserID() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	if u.Username == "" {
		return u.Uid, nil
	}
	return u.Username, nil
}
