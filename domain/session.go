package domain

import "strconv"

// Session is the explicitly passed current-user context. It is resolved once
// at startup and handed to every component that needs to know who "me" is.
type Session struct {
	Identity string
	User     *User
}

func NewSession(identity string, user *User) Session {
	return Session{Identity: identity, User: user}
}

func (s Session) LoggedIn() bool {
	return s.User != nil && s.User.ID != 0
}

// UserID is zero when nobody is logged in.
func (s Session) UserID() UserID {
	if !s.LoggedIn() {
		return 0
	}
	return s.User.ID
}

func itoa(i int64) string {
	return strconv.FormatInt(i, 10)
}
