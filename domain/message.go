// Package domain contains core concepts of the chat client.
// This file defines Message events and related rules.
// Messages are immutable once received from the server.
package domain

type MessageID int64

// Sender is the embedded author snapshot returned by the messages endpoint.
type Sender struct {
	ID    UserID `json:"id"`
	Login string `json:"login"`
}

// Message represents an immutable chat event.
type Message struct {
	ID        MessageID `json:"id"`
	RoomID    RoomID    `json:"chat_room_id"`
	SenderID  UserID    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt Timestamp `json:"created_at"`
	Sender    Sender    `json:"sender"`
	// Own is derived on the client, never sent by the server.
	Own bool `json:"-"`
}

// SenderName falls back to the numeric id when the server omitted the login.
func (m Message) SenderName() string {
	if m.Sender.Login != "" {
		return m.Sender.Login
	}
	return "user " + itoa(int64(m.SenderID))
}

// WithOwner returns a copy with Own computed against the current user.
func (m Message) WithOwner(current UserID) Message {
	m.Own = current != 0 && m.SenderID == current
	return m
}

// Before orders messages by creation time, ties broken by id.
func (m Message) Before(other Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt.Time) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt.Time)
}
