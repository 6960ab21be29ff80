package auth

import (
	"net/url"
	"strconv"
)

// SessionUser is the identity carried by a session
type SessionUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
	Role     string `json:"role,omitempty"`
}

// Session is an authenticated identity plus its bearer token
type Session struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"` // Seconds left at issue time
	ExpiresAt   int64       `json:"expires_at"` // Unix seconds
	User        SessionUser `json:"user"`
}

// CallbackURL appends the session to an OAuth redirect target as query
// parameters, the form a CLI loopback listener can read.
func CallbackURL(target string, s *Session) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("access_token", s.AccessToken)
	q.Set("token_type", s.TokenType)
	q.Set("expires_in", strconv.FormatInt(s.ExpiresIn, 10))
	q.Set("expires_at", strconv.FormatInt(s.ExpiresAt, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
