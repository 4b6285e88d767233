package rest

import (
	"bytes"
	"chatlark/domain"
	"chatlark/errors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const apiPrefix = "/api/v1"

// Client talks to the chat REST API. It is the only place where HTTP status
// codes and transport errors are turned into the client error taxonomy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// WithTransport swaps the HTTP round tripper, typically to log calls.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	c.httpClient.Transport = rt
	return c
}

type createMessageRequest struct {
	Content  string        `json:"content"`
	SenderID domain.UserID `json:"sender_id"`
}

type createRoomRequest struct {
	Name string          `json:"name"`
	Type domain.RoomType `json:"type"`
}

type addMemberRequest struct {
	UserID domain.UserID `json:"user_id"`
}

func (c *Client) FetchUserByIdentity(ctx context.Context, identity string) (domain.User, error) {
	var user domain.User
	path := fmt.Sprintf("%s/users/identity/%s", apiPrefix, url.PathEscape(identity))
	err := c.do(ctx, http.MethodGet, path, nil, nil, &user)
	return user, err
}

func (c *Client) FetchUsers(ctx context.Context, page, perPage int) (domain.Page[domain.User], error) {
	var res domain.Page[domain.User]
	err := c.do(ctx, http.MethodGet, apiPrefix+"/users", paginate(page, perPage), nil, &res)
	return res, err
}

func (c *Client) FetchChatRooms(ctx context.Context, userID domain.UserID, page, perPage int) (domain.Page[domain.Room], error) {
	var res domain.Page[domain.Room]
	path := fmt.Sprintf("%s/users/%d/chat-rooms", apiPrefix, userID)
	err := c.do(ctx, http.MethodGet, path, paginate(page, perPage), nil, &res)
	return res, err
}

func (c *Client) CreateChatRoom(ctx context.Context, name string, roomType domain.RoomType) (domain.Room, error) {
	var room domain.Room
	body := createRoomRequest{Name: name, Type: roomType}
	err := c.do(ctx, http.MethodPost, apiPrefix+"/chat-rooms", nil, body, &room)
	return room, err
}

// FetchMessages returns one page, newest message first as delivered by the server.
func (c *Client) FetchMessages(ctx context.Context, roomID domain.RoomID, page, perPage int) (domain.Page[domain.Message], error) {
	var res domain.Page[domain.Message]
	path := fmt.Sprintf("%s/chat-rooms/%d/messages", apiPrefix, roomID)
	err := c.do(ctx, http.MethodGet, path, paginate(page, perPage), nil, &res)
	return res, err
}

func (c *Client) CreateMessage(ctx context.Context, roomID domain.RoomID, content string, senderID domain.UserID) (domain.Message, error) {
	var msg domain.Message
	path := fmt.Sprintf("%s/chat-rooms/%d/messages", apiPrefix, roomID)
	body := createMessageRequest{Content: content, SenderID: senderID}
	err := c.do(ctx, http.MethodPost, path, nil, body, &msg)
	return msg, err
}

func (c *Client) FetchRoomMembers(ctx context.Context, roomID domain.RoomID) (domain.Page[domain.Member], error) {
	var res domain.Page[domain.Member]
	path := fmt.Sprintf("%s/chat-rooms/%d/members", apiPrefix, roomID)
	err := c.do(ctx, http.MethodGet, path, nil, nil, &res)
	return res, err
}

func (c *Client) AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	path := fmt.Sprintf("%s/chat-rooms/%d/members", apiPrefix, roomID)
	return c.do(ctx, http.MethodPost, path, nil, addMemberRequest{UserID: userID}, nil)
}

func (c *Client) RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	path := fmt.Sprintf("%s/chat-rooms/%d/members/%d", apiPrefix, roomID, userID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func paginate(page, perPage int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", fmt.Sprintf("%d", page))
	}
	if perPage > 0 {
		q.Set("per_page", fmt.Sprintf("%d", perPage))
	}
	return q
}

// do sends one JSON request and decodes the JSON answer into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", errors.ErrNetworkFailure, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug("http call", "method", method, "path", path, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s %s returned %d", errors.ErrUnexpectedStatus, method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", errors.ErrNetworkFailure, path, err)
	}
	return nil
}
