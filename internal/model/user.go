// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a member with a personal scrapbook page.
//
// Identity comes from Google OAuth, so the primary external identifier is the
// Google subject id (a string). We still generate our own internal ID (xid)
// so our primary keys are not tied to a third party's numbering scheme.
//
// Email is the real uniqueness anchor: exactly one row per (lowercased)
// email. ExternalID is also unique, but optional — users provisioned by an
// administrator before their first login have none until identity resolution
// attaches it.
//
// ShareCode is an opaque token identifying the user's public page. It is a
// UUID, distinct from ID, so the page URL is unguessable and can't be
// enumerated from internal ids.
type User struct {
	ID               string    `json:"id"`
	ExternalID       string    `json:"externalId,omitempty"` // Google subject id (empty if never linked)
	Email            string    `json:"email"`                // lowercased, unique
	DisplayName      string    `json:"displayName"`
	Alias            string    `json:"alias,omitempty"` // preferred display override
	Bio              string    `json:"bio,omitempty"`
	AvatarURL        string    `json:"avatarUrl,omitempty"`        // external avatar from the identity provider
	CustomAvatarPath string    `json:"customAvatarPath,omitempty"` // locally stored avatar, wins over AvatarURL
	ShareCode        string    `json:"shareCode"`
	CreatedAt        time.Time `json:"createdAt"`
	LastLoginAt      time.Time `json:"lastLoginAt"`
}

// PreferredName returns the alias if set, the display name otherwise.
func (u *User) PreferredName() string {
	if u.Alias != "" {
		return u.Alias
	}
	return u.DisplayName
}
