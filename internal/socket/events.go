package socket

import (
	"encoding/json"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
)

type EventType string

// Events emitted by the client.
const (
	EventChatJoin         EventType = "chat:join"
	EventChatLeave        EventType = "chat:leave"
	EventMessageSend      EventType = "message:send"
	EventTypingStart      EventType = "typing:start"
	EventTypingStop       EventType = "typing:stop"
	EventMessageRead      EventType = "message:read"
	EventMessageDelivered EventType = "message:delivered"
	EventUsersOnline      EventType = "users:online"
)

// Events pushed by the server.
const (
	EventMessageNew      EventType = "message:new"
	EventChatUpdated     EventType = "chat:updated"
	EventTypingUpdate    EventType = "typing:update"
	EventMessagesRead    EventType = "messages:read"
	EventMessageStatus   EventType = "message:status"
	EventUserOnline      EventType = "user:online"
	EventUserOffline     EventType = "user:offline"
	EventOnlineUsersList EventType = "users:online:list"
)

// Envelope is the wire frame for both directions.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SendMessagePayload is what the client sends for message:send.
type SendMessagePayload struct {
	ChatID      string             `json:"chatId"`
	Text        string             `json:"text"`
	Attachments []string           `json:"attachments,omitempty"`
	ContextType domain.ContextType `json:"contextType,omitempty"`
	ContextID   string             `json:"contextId,omitempty"`
}

type chatIDPayload struct {
	ChatID string `json:"chatId"`
}

type MessageNewPayload struct {
	ChatID  string         `json:"chatId"`
	Message domain.Message `json:"message"`
}

type ChatUpdatedPayload struct {
	ChatID string `json:"chatId"`
}

type TypingUpdatePayload struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

type MessagesReadPayload struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

type MessageStatusPayload struct {
	MessageID string               `json:"messageId"`
	ChatID    string               `json:"chatId,omitempty"`
	Status    domain.MessageStatus `json:"status"`
}

type userPayload struct {
	UserID string `json:"userId"`
}

// Handlers receive server pushes. Nil handlers are skipped. All callbacks
// run on the connection's read goroutine.
type Handlers struct {
	OnMessageNew    func(MessageNewPayload)
	OnChatUpdated   func(ChatUpdatedPayload)
	OnTypingUpdate  func(TypingUpdatePayload)
	OnMessagesRead  func(MessagesReadPayload)
	OnMessageStatus func(MessageStatusPayload)
	OnUserOnline    func(userID string)
	OnUserOffline   func(userID string)
	OnOnlineUsers   func(userIDs []string)
	OnStatus        func(connected bool, reason string)
}
