package domain

import (
	"encoding/json"
	"time"
)

type ChatKind string

const (
	ChatKindInternal ChatKind = "internal"
	ChatKindExternal ChatKind = "external"
)

// Participant is one identity taking part in a chat.
type Participant struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

func (p Participant) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Email != "" {
		return p.Email
	}
	return p.ID
}

// Team is a staff team that may back a group chat.
type Team struct {
	ID          string        `json:"_id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Members     []Participant `json:"members,omitempty"`
	Active      *bool         `json:"isActive,omitempty"`
}

// IsActive treats a missing flag as active.
func (t Team) IsActive() bool {
	return t.Active == nil || *t.Active
}

// Chat is a conversation thread between two or more participants.
type Chat struct {
	ID            string        `json:"_id"`
	Kind          ChatKind      `json:"type"`
	Participants  []Participant `json:"participants"`
	IsGroup       bool          `json:"isGroup"`
	GroupName     string        `json:"groupName,omitempty"`
	Department    string        `json:"department,omitempty"`
	ContextType   string        `json:"contextType,omitempty"`
	ContextID     ContextID     `json:"contextId,omitempty"`
	LastMessage   string        `json:"lastMessage,omitempty"`
	LastMessageAt *time.Time    `json:"lastMessageAt,omitempty"`
	UnreadCount   int           `json:"myUnreadCount"`
}

// UnmarshalJSON coalesces the two unread fields the API may return
// (myUnreadCount preferred, unreadCount as fallback).
func (c *Chat) UnmarshalJSON(data []byte) error {
	type alias Chat
	aux := struct {
		*alias
		MyUnreadCount *int `json:"myUnreadCount"`
		UnreadCount   *int `json:"unreadCount"`
	}{alias: (*alias)(c)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch {
	case aux.MyUnreadCount != nil:
		c.UnreadCount = *aux.MyUnreadCount
	case aux.UnreadCount != nil:
		c.UnreadCount = *aux.UnreadCount
	default:
		c.UnreadCount = 0
	}
	return nil
}

// Peer returns the participant that is not the given viewer. For group
// chats it returns false.
func (c *Chat) Peer(viewerID string) (Participant, bool) {
	if c.IsGroup {
		return Participant{}, false
	}
	for _, p := range c.Participants {
		if p.ID != viewerID {
			return p, true
		}
	}
	return Participant{}, false
}

// Title is the display name of the chat from the viewer's perspective.
func (c *Chat) Title(viewerID string) string {
	if c.IsGroup {
		return c.GroupName
	}
	if peer, ok := c.Peer(viewerID); ok {
		return peer.DisplayName()
	}
	return "Unknown"
}

// Context returns the chat-level context reference, if any.
func (c *Chat) Context() *ContextRef {
	if c.ContextType == "" || c.ContextType == "general" {
		return nil
	}
	return &ContextRef{Type: ContextType(c.ContextType), ID: string(c.ContextID)}
}
