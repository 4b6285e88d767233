package rest

import (
	"chatlark/domain"
	"chatlark/errors"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, router http.Handler) *Client {
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/", 2*time.Second, logs.GetLoggerFromLevel(slog.LevelDebug))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_FetchMessages_SendsPagination(t *testing.T) {
	req := require.New(t)
	var gotRoom, gotPage, gotPerPage string

	router := chi.NewRouter()
	router.Get("/api/v1/chat-rooms/{roomID}/messages", func(w http.ResponseWriter, r *http.Request) {
		gotRoom = chi.URLParam(r, "roomID")
		gotPage = r.URL.Query().Get("page")
		gotPerPage = r.URL.Query().Get("per_page")
		writeJSON(w, http.StatusOK, map[string]any{
			"items": []map[string]any{
				{"id": 2, "chat_room_id": 7, "sender_id": 1, "content": "second", "created_at": "2024-01-01T10:00:02Z", "sender": map[string]any{"id": 1, "login": "alice"}},
				{"id": 1, "chat_room_id": 7, "sender_id": 1, "content": "first", "created_at": "2024-01-01T10:00:01Z", "sender": map[string]any{"id": 1, "login": "alice"}},
			},
			"pagination": map[string]any{"page": 1, "per_page": 50, "total": 2, "pages": 1},
		})
	})
	client := newTestClient(t, router)

	// When fetching the first page of room 7
	page, err := client.FetchMessages(context.Background(), 7, 1, 50)

	// Then the query carries the pagination
	req.NoError(err)
	req.Equal("7", gotRoom)
	req.Equal("1", gotPage)
	req.Equal("50", gotPerPage)

	// And the server order is preserved (newest first)
	req.Len(page.Items, 2)
	req.Equal(domain.MessageID(2), page.Items[0].ID)
	req.Equal("alice", page.Items[0].Sender.Login)
	req.False(page.HasNext())
}

func TestClient_CreateMessage_Body(t *testing.T) {
	req := require.New(t)
	var body createMessageRequest

	router := chi.NewRouter()
	router.Post("/api/v1/chat-rooms/{roomID}/messages", func(w http.ResponseWriter, r *http.Request) {
		req.Equal("application/json", r.Header.Get("Content-Type"))
		req.NoError(json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusCreated, map[string]any{"id": 10, "chat_room_id": 7, "sender_id": 3, "content": body.Content, "created_at": "2024-01-01T10:00:00Z"})
	})
	client := newTestClient(t, router)

	msg, err := client.CreateMessage(context.Background(), 7, "hello", 3)

	req.NoError(err)
	req.Equal("hello", body.Content)
	req.Equal(domain.UserID(3), body.SenderID)
	req.Equal(domain.MessageID(10), msg.ID)
}

func TestClient_Members(t *testing.T) {
	req := require.New(t)
	var added addMemberRequest
	var removedUser string

	router := chi.NewRouter()
	router.Route("/api/v1/chat-rooms/{roomID}/members", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"items": []map[string]any{
					{"id": 1, "user_id": 4, "chat_room_id": 7, "user": map[string]any{"id": 4, "login": "dave", "email": "dave@example.com"}},
				},
				"pagination": map[string]any{"page": 1, "per_page": 10, "total": 1, "pages": 1},
			})
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&added)
			w.WriteHeader(http.StatusCreated)
		})
		r.Delete("/{userID}", func(w http.ResponseWriter, r *http.Request) {
			removedUser = chi.URLParam(r, "userID")
			w.WriteHeader(http.StatusNoContent)
		})
	})
	client := newTestClient(t, router)
	ctx := context.Background()

	members, err := client.FetchRoomMembers(ctx, 7)
	req.NoError(err)
	req.Len(members.Items, 1)
	req.Equal("dave", members.Items[0].User.Login)

	req.NoError(client.AddMember(ctx, 7, 5))
	req.Equal(domain.UserID(5), added.UserID)

	req.NoError(client.RemoveMember(ctx, 7, 4))
	req.Equal("4", removedUser)
}

func TestClient_CreateChatRoom(t *testing.T) {
	req := require.New(t)
	var body createRoomRequest

	router := chi.NewRouter()
	router.Post("/api/v1/chat-rooms", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, map[string]any{"id": 3, "name": body.Name, "type": body.Type, "created_at": "2024-01-01T00:00:00", "member_count": 1})
	})
	client := newTestClient(t, router)

	room, err := client.CreateChatRoom(context.Background(), "General", domain.PrivateRoom)

	req.NoError(err)
	req.Equal(domain.PrivateRoom, body.Type)
	req.Equal(domain.RoomID(3), room.ID)
	req.Equal(1, room.MemberCount)
}

func TestClient_FetchUserByIdentity(t *testing.T) {
	req := require.New(t)

	router := chi.NewRouter()
	router.Get("/api/v1/users/identity/{identity}", func(w http.ResponseWriter, r *http.Request) {
		req.Equal("5031217165", chi.URLParam(r, "identity"))
		writeJSON(w, http.StatusOK, map[string]any{"id": 9, "login": "test_user", "email": "t@example.com", "groups": []string{"users"}, "logged_on": nil})
	})
	client := newTestClient(t, router)

	user, err := client.FetchUserByIdentity(context.Background(), "5031217165")

	req.NoError(err)
	req.Equal(domain.UserID(9), user.ID)
	req.Nil(user.LoggedOn)
}

func TestClient_FetchRoomsAndUsers(t *testing.T) {
	req := require.New(t)

	router := chi.NewRouter()
	router.Get("/api/v1/users/{userID}/chat-rooms", func(w http.ResponseWriter, r *http.Request) {
		req.Equal("9", chi.URLParam(r, "userID"))
		req.Equal("10", r.URL.Query().Get("per_page"))
		writeJSON(w, http.StatusOK, map[string]any{
			"items":      []map[string]any{{"id": 1, "name": "General", "type": "public", "created_at": "2024-01-01T00:00:00Z"}},
			"pagination": map[string]any{"page": 1, "per_page": 10, "total": 1, "pages": 1},
		})
	})
	router.Get("/api/v1/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"items":      []map[string]any{{"id": 1, "login": "alice"}, {"id": 2, "login": "bob"}},
			"pagination": map[string]any{"page": 1, "per_page": 10, "total": 2, "pages": 1},
		})
	})
	client := newTestClient(t, router)
	ctx := context.Background()

	rooms, err := client.FetchChatRooms(ctx, 9, 1, 10)
	req.NoError(err)
	req.Len(rooms.Items, 1)
	req.Equal(domain.PublicRoom, rooms.Items[0].Type)

	users, err := client.FetchUsers(ctx, 1, 10)
	req.NoError(err)
	req.Len(users.Items, 2)
}

func TestClient_Errors(t *testing.T) {
	req := require.New(t)

	router := chi.NewRouter()
	router.Get("/api/v1/chat-rooms/{roomID}/messages", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client := newTestClient(t, router)

	// Given the server answers 500
	_, err := client.FetchMessages(context.Background(), 1, 1, 50)
	req.ErrorIs(err, errors.ErrUnexpectedStatus)
	req.ErrorIs(err, errors.ErrNetworkFailure)

	// Given nobody listens
	dead := NewClient("http://127.0.0.1:1", 200*time.Millisecond, slog.Default())
	_, err = dead.FetchMessages(context.Background(), 1, 1, 50)
	req.ErrorIs(err, errors.ErrNetworkFailure)
	req.Equal(errors.KindNetwork, errors.KindOf(err))
}
