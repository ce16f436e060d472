package domain

import (
	"strings"
	"time"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username,omitempty"` // empty until claimed
	Name      string    `json:"name"`
	Bio       string    `json:"bio"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// PublicUser is the projection returned by user search.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	Bio      string `json:"bio"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Avatar:   u.Avatar,
		Bio:      u.Bio,
	}
}

// ExternalIdentity is what the identity provider tells us about a signed-in person.
type ExternalIdentity struct {
	Email  string
	Name   string
	Avatar string
}

// UsernameBase returns the local part of an email address.
func UsernameBase(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
