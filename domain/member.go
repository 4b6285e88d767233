package domain

type MemberID int64

// Member is a membership record: one user in one room.
type Member struct {
	ID     MemberID `json:"id"`
	UserID UserID   `json:"user_id"`
	RoomID RoomID   `json:"chat_room_id"`
	User   User     `json:"user"`
}
