// Package domain contains core concepts of the chat client.
// This file defines the User as returned by the directory and identity endpoints.
package domain

type UserID int64

// User is a snapshot of an account as seen by the client.
type User struct {
	ID             UserID     `json:"id"`
	Login          string     `json:"login"`
	Email          string     `json:"email"`
	AdditionalInfo string     `json:"additional_info"`
	Disabled       bool       `json:"disabled"`
	Pending        bool       `json:"pending"`
	RequestedOn    *Timestamp `json:"requested_on"`
	RegisteredOn   *Timestamp `json:"registered_on"`
	LoggedOn       *Timestamp `json:"logged_on"`
	Groups         []string   `json:"groups"`
	Capabilities   []string   `json:"capabilities,omitempty"`
}

func (u User) AvatarURL() string {
	return AvatarURL(u.Login)
}
