package realtime

import (
	"chatlark/domain"
	"chatlark/domain/event"
	"encoding/json"
	"fmt"
)

// Frame is the envelope of every message on the realtime socket.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type roomPayload struct {
	Room domain.RoomID `json:"room"`
}

type newMessagePayload struct {
	ID         domain.MessageID `json:"id"`
	RoomID     domain.RoomID    `json:"chat_room_id"`
	SenderID   domain.UserID    `json:"sender_id"`
	SenderName string           `json:"sender_name"`
	Content    string           `json:"content"`
	CreatedAt  domain.Timestamp `json:"created_at"`
}

type statusPayload struct {
	Msg string `json:"msg"`
}

// EncodeRoomIntent builds a join/leave frame.
func EncodeRoomIntent(name string, room domain.RoomID) ([]byte, error) {
	data, err := json.Marshal(roomPayload{Room: room})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: name, Data: data})
}

// Decode turns a raw frame into a domain event.
// It returns (nil, nil) for events the client does not know about.
func Decode(raw []byte) (event.DomainEvent, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	switch frame.Event {
	case event.NewMessageName:
		var p newMessagePayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", frame.Event, err)
		}
		return event.NewMessage{
			ID:         p.ID,
			Room:       p.RoomID,
			SenderID:   p.SenderID,
			SenderName: p.SenderName,
			Content:    p.Content,
			CreatedAt:  p.CreatedAt.Time,
		}, nil
	case event.StatusName:
		var p statusPayload
		if len(frame.Data) > 0 {
			if err := json.Unmarshal(frame.Data, &p); err != nil {
				return nil, fmt.Errorf("invalid %s payload: %w", frame.Event, err)
			}
		}
		return event.Status{Msg: p.Msg}, nil
	default:
		return nil, nil
	}
}
