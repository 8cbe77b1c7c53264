package models

import "time"

// User is the public profile of a portal user, as returned by the users
// endpoint. LastSeenAt drives presence.
type User struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	AvatarURL  string     `json:"avatarUrl,omitempty"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}
