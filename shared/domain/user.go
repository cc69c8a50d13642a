package domain

import "time"

type User struct {
	Id        UserId    `json:"id"`
	Username  Username  `json:"username"`
	Name      string    `json:"name"`
	Image     string    `json:"image,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Onboarded bool      `json:"onboarded"`
	CreatedAt time.Time `json:"created_at"`

	// Admin is taken from token claims, never stored.
	Admin bool `json:"-"`
}

// UserSummary is the author shape embedded into populated convos.
type UserSummary struct {
	Id       UserId   `json:"id"`
	Username Username `json:"username"`
	Name     string   `json:"name"`
	Image    string   `json:"image,omitempty"`
}

type UserProfileData struct {
	Id       UserId
	Username Username
	Name     string
	Image    string
	Bio      string
}
