// Package identity extracts the local participant identity from the bearer
// token the account service issues. The chat core needs the local user's id
// (to gate unread accrual) and display name; both ride in the token claims,
// so shells can avoid a profile round-trip.
package identity

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrNoSubject    = errors.New("token has no subject")
)

// Claims carried by mapmeet access tokens.
type Claims struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	jwt.RegisteredClaims
}

// LocalUser identifies the authenticated participant on this device.
type LocalUser struct {
	ID        string
	FirstName string
	LastName  string
	AvatarURL string
}

// FromToken reads the identity claims without verifying the signature.
// Verification is the server's job when the socket authenticates; the client
// only needs to know who it is.
func FromToken(token string) (LocalUser, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return LocalUser{}, errors.Join(ErrTokenInvalid, err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return LocalUser{}, ErrNoSubject
	}
	return LocalUser{
		ID:        sub,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		AvatarURL: claims.AvatarURL,
	}, nil
}
