package auth

import (
	"errors"
	"net/http"
	"strings"

	"comprafacil/internal/session"
)

// Identity is the user a local API request acts for.
type Identity struct {
	UserID      string
	AccessToken string
	// FromDevice is set when the caller sent no token and the device
	// session was used instead.
	FromDevice bool
}

type SessionLoader interface {
	Load() (*session.Session, error)
}

func ExtractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie("access_token"); err == nil {
		if cookie.Value != "" {
			return cookie.Value
		}
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}

// Resolve prefers a token sent by the caller and falls back to the
// device session. It returns session.ErrNoSession when neither exists.
func Resolve(r *http.Request, device SessionLoader) (Identity, error) {
	if tok := ExtractAccessToken(r); tok != "" {
		userID, _, err := session.UserFromToken(tok)
		if err != nil {
			return Identity{}, err
		}
		return Identity{UserID: userID, AccessToken: tok}, nil
	}

	if device == nil {
		return Identity{}, session.ErrNoSession
	}
	s, err := device.Load()
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: s.UserID, AccessToken: s.AccessToken, FromDevice: true}, nil
}

// IsUnauthenticated reports whether err means the request has no usable
// identity.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrInvalidToken)
}
