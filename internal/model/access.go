package model

import "time"

// RequestStatus is the review state of an AccessRequest.
//
// Transitions are one-way: pending → approved or pending → rejected,
// never back to pending.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Valid reports whether s is one of the three known statuses.
func (s RequestStatus) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// AccessRequest is a queued provisioning request, created when an identity
// that is neither recognized nor allowlisted attempts to sign in. An
// administrator decision terminates it; approval also creates or links a User.
type AccessRequest struct {
	ID          string        `json:"id"`
	Email       string        `json:"email"` // lowercased
	ExternalID  string        `json:"externalId,omitempty"`
	DisplayName string        `json:"displayName"`
	AvatarURL   string        `json:"avatarUrl,omitempty"`
	Status      RequestStatus `json:"status"`
	RequestedAt time.Time     `json:"requestedAt"`
	ReviewedAt  *time.Time    `json:"reviewedAt,omitempty"` // set on approve/reject
}

// AllowedEmail is an allowlist entry permitting an email address to
// self-provision an account without administrator review. Unique on email,
// case-insensitive.
type AllowedEmail struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
