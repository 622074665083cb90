package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
)

// ErrUnauthorized marks an expired or invalid session token. It is
// surfaced to the session layer, not handled here.
var ErrUnauthorized = errors.New("api: unauthorized")

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the dashboard REST API. All calls carry the session
// bearer token via the underlying transport.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: &authTransport{token: cfg.Token},
		},
	}
}

// ChatFilter narrows the chat list by kind and group flag.
type ChatFilter struct {
	Kind      domain.ChatKind
	GroupOnly bool
}

func (f ChatFilter) query() url.Values {
	q := url.Values{}
	if f.Kind != "" {
		q.Set("type", string(f.Kind))
	}
	if f.GroupOnly {
		q.Set("isGroup", "true")
	}
	return q
}

type CreateDirectChatRequest struct {
	ParticipantID string             `json:"participantId"`
	Kind          domain.ChatKind    `json:"type"`
	ContextType   domain.ContextType `json:"contextType,omitempty"`
	ContextID     string             `json:"contextId,omitempty"`
}

type CreateGroupChatRequest struct {
	GroupName      string   `json:"groupName"`
	ParticipantIDs []string `json:"participantIds"`
	Department     string   `json:"department,omitempty"`
}

func (c *Client) ListChats(ctx context.Context, filter ChatFilter) ([]*domain.Chat, error) {
	path := "/chats"
	if q := filter.query().Encode(); q != "" {
		path += "?" + q
	}
	var chats []*domain.Chat
	if err := c.do(ctx, http.MethodGet, path, nil, &chats); err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

func (c *Client) ListStaff(ctx context.Context) ([]domain.Participant, error) {
	var staff []domain.Participant
	if err := c.do(ctx, http.MethodGet, "/chats/staff", nil, &staff); err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return staff, nil
}

func (c *Client) ListTeams(ctx context.Context) ([]domain.Team, error) {
	var teams []domain.Team
	if err := c.do(ctx, http.MethodGet, "/teams", nil, &teams); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

func (c *Client) CreateDirectChat(ctx context.Context, req CreateDirectChatRequest) (*domain.Chat, error) {
	var chat domain.Chat
	if err := c.do(ctx, http.MethodPost, "/chats/create", req, &chat); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	return &chat, nil
}

func (c *Client) CreateGroupChat(ctx context.Context, req CreateGroupChatRequest) (*domain.Chat, error) {
	var chat domain.Chat
	if err := c.do(ctx, http.MethodPost, "/chats/group", req, &chat); err != nil {
		return nil, fmt.Errorf("create group chat: %w", err)
	}
	return &chat, nil
}

// ChatMessages fetches the full history for a chat, oldest first.
func (c *Client) ChatMessages(ctx context.Context, chatID string) ([]*domain.Message, error) {
	var page struct {
		Messages []*domain.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/chats/"+url.PathEscape(chatID)+"/messages", nil, &page); err != nil {
		return nil, fmt.Errorf("chat messages: %w", err)
	}
	return page.Messages, nil
}

func (c *Client) MarkChatRead(ctx context.Context, chatID string) error {
	if err := c.do(ctx, http.MethodPatch, "/chats/"+url.PathEscape(chatID)+"/read", nil, nil); err != nil {
		return fmt.Errorf("mark chat read: %w", err)
	}
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	if err := c.do(ctx, http.MethodDelete, "/chats/messages/"+url.PathEscape(messageID), nil, nil); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	if err := c.do(ctx, http.MethodDelete, "/chats/"+url.PathEscape(chatID), nil, nil); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return nil
}

// ContextDetails is the display payload for an attached order, product, or
// customer reference.
type ContextDetails struct {
	ID          string `json:"_id"`
	OrderNumber string `json:"orderNumber,omitempty"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Status      string `json:"status,omitempty"`
}

func (d ContextDetails) Label() string {
	if d.OrderNumber != "" {
		return "#" + d.OrderNumber
	}
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// ResolveContext fetches the record a context reference points at.
func (c *Client) ResolveContext(ctx context.Context, ref domain.ContextRef) (*ContextDetails, error) {
	var path string
	switch ref.Type {
	case domain.ContextTypeOrder:
		path = "/orders/"
	case domain.ContextTypeProduct:
		path = "/products/"
	case domain.ContextTypeCustomer:
		path = "/customers/"
	default:
		return nil, fmt.Errorf("resolve context: unknown type %q", ref.Type)
	}

	var details ContextDetails
	if err := c.do(ctx, http.MethodGet, path+url.PathEscape(ref.ID), nil, &details); err != nil {
		return nil, fmt.Errorf("resolve context %s: %w", ref, err)
	}
	return &details, nil
}

// envelope is the standard API response wrapper. Some endpoints return the
// payload bare, so Data is optional.
type envelope struct {
	Success *bool           `json:"success,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Most endpoints wrap the payload in {success, data}; a few return it
	// bare, so fall back to the raw body.
	var env envelope
	wrapped := json.Unmarshal(raw, &env) == nil && len(env.Data) > 0

	if resp.StatusCode >= 400 {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, msg)
	}

	if out == nil {
		return nil
	}
	if wrapped {
		return json.Unmarshal(env.Data, out)
	}
	return json.Unmarshal(raw, out)
}
