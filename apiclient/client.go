package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/campushub/chatkit/models"
)

// Client talks to the portal's conversation API: JSON over HTTPS with a
// bearer token. Reads are retried with exponential backoff because the
// calling components treat transient failures as silent; writes are never
// retried so a failed send or creation surfaces exactly once.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.SugaredLogger
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func New(cfg Config, log *zap.SugaredLogger) *Client {
	tr := &http.Transport{
		DialContext:     (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Transport: tr, Timeout: cfg.Timeout},
		log:     log,
	}
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// ListConversations fetches the user's full conversation list.
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var out []models.Conversation
	if err := c.getJSON(ctx, "/conversations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMessages fetches the ordered message history of one conversation.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var out []models.Message
	if err := c.getJSON(ctx, "/conversations/"+conversationID+"/messages", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage posts a new message and returns the server's confirmed copy.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (*models.Message, error) {
	body := map[string]string{"content": content}
	var out models.Message
	if err := c.writeJSON(ctx, http.MethodPost, "/conversations/"+conversationID+"/messages", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type conversationEnvelope struct {
	Conversation models.Conversation `json:"conversation"`
}

// CreateDirect opens (or resolves) the 1:1 conversation with the given user.
// The server returns the existing conversation when one already exists.
func (c *Client) CreateDirect(ctx context.Context, userID string) (*models.Conversation, error) {
	body := map[string]string{"userId": userID}
	var out conversationEnvelope
	if err := c.writeJSON(ctx, http.MethodPost, "/conversations/direct", body, &out); err != nil {
		return nil, err
	}
	return &out.Conversation, nil
}

// CreateGroup creates a named group with the given members.
func (c *Client) CreateGroup(ctx context.Context, name string, memberIDs []string, avatarURL string) (*models.Conversation, error) {
	body := map[string]any{"name": name, "memberIds": memberIDs}
	if avatarURL != "" {
		body["avatarUrl"] = avatarURL
	}
	var out conversationEnvelope
	if err := c.writeJSON(ctx, http.MethodPost, "/conversations/group", body, &out); err != nil {
		return nil, err
	}
	return &out.Conversation, nil
}

// UpdateGroup patches group metadata. The server enforces that only the
// creator may do this.
func (c *Client) UpdateGroup(ctx context.Context, conversationID, name, avatarURL string) (*models.Conversation, error) {
	body := map[string]string{}
	if name != "" {
		body["name"] = name
	}
	if avatarURL != "" {
		body["avatarUrl"] = avatarURL
	}
	var out conversationEnvelope
	if err := c.writeJSON(ctx, http.MethodPatch, "/conversations/"+conversationID, body, &out); err != nil {
		return nil, err
	}
	return &out.Conversation, nil
}

// RemoveParticipant removes a member from a group. Removing the local user is
// how "leave group" is expressed.
func (c *Client) RemoveParticipant(ctx context.Context, conversationID, userID string) error {
	return c.writeJSON(ctx, http.MethodDelete, "/conversations/"+conversationID+"/participants/"+userID, nil, nil)
}

// GetUser fetches a public profile, including lastSeenAt for presence.
func (c *Client) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var out models.User
	if err := c.getJSON(ctx, "/users/"+userID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// getJSON runs a GET with exponential backoff. 4xx responses are permanent;
// network errors and 5xx responses are retried until the backoff gives up.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		c.auth(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("server error: %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(c.decodeError(resp))
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		c.log.Debugw("GET failed", "path", path, "err", err)
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return nil
}

// writeJSON runs a mutating request exactly once. out may be nil for
// responses with no interesting body.
func (c *Client) writeJSON(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	c.auth(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: %w", method, path, c.decodeError(resp))
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) auth(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
}

func (c *Client) decodeError(resp *http.Response) error {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		if envelope.Error != "" {
			msg = envelope.Error
		} else if envelope.Message != "" {
			msg = envelope.Message
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
