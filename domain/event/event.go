package event

import (
	"chatlark/domain"
	"time"
)

// Names of the frames exchanged on the realtime channel.
const (
	JoinName       = "join"
	LeaveName      = "leave"
	NewMessageName = "new_message"
	StatusName     = "status"
)

type DomainEvent interface {
	RoomID() domain.RoomID
}

// NewMessage is pushed by the server whenever a message lands in a room.
type NewMessage struct {
	ID         domain.MessageID
	Room       domain.RoomID
	SenderID   domain.UserID
	SenderName string
	Content    string
	CreatedAt  time.Time
}

func (m NewMessage) RoomID() domain.RoomID {
	return m.Room
}

// Message converts the push payload into the domain message it announces.
func (m NewMessage) Message() domain.Message {
	return domain.Message{
		ID:        m.ID,
		RoomID:    m.Room,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: domain.At(m.CreatedAt),
		Sender: domain.Sender{
			ID:    m.SenderID,
			Login: m.SenderName,
		},
	}
}

// Status is informational only.
type Status struct {
	Room domain.RoomID
	Msg  string
}

func (s Status) RoomID() domain.RoomID {
	return s.Room
}

// Disconnected is raised locally when the transport drops while joined.
type Disconnected struct {
	Room  domain.RoomID
	Cause error
}

func (d Disconnected) RoomID() domain.RoomID {
	return d.Room
}
