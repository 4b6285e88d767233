package domain

import (
	"fmt"
	"net/url"
)

const avatarBaseURL = "https://api.dicebear.com/7.x/avatars/svg"

type RoomID int64

type RoomType string

const (
	PublicRoom  RoomType = "public"
	PrivateRoom RoomType = "private"
)

func (t RoomType) Valid() bool {
	return t == PublicRoom || t == PrivateRoom
}

// Room is the directory entry of a chat room visible to the current user.
type Room struct {
	ID           RoomID    `json:"id"`
	Name         string    `json:"name"`
	Type         RoomType  `json:"type"`
	CreatedAt    Timestamp `json:"created_at"`
	MemberCount  int       `json:"member_count"`
	MessageCount int       `json:"message_count"`
}

// AvatarSeed is stable for a room so the rendered avatar never changes.
func (r Room) AvatarSeed() string {
	return fmt.Sprintf("%d", r.ID)
}

func (r Room) AvatarURL() string {
	return AvatarURL(r.AvatarSeed())
}

// Summary is the one-line activity descriptor shown in the room list.
func (r Room) Summary() string {
	return fmt.Sprintf("%d members · %d messages", r.MemberCount, r.MessageCount)
}

func AvatarURL(seed string) string {
	return avatarBaseURL + "?seed=" + url.QueryEscape(seed)
}
