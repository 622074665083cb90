package repository

import (
	"encoding/json"
	"time"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
)

type ChatModel struct {
	ID            string    `gorm:"primaryKey;column:id"`
	Kind          string    `gorm:"column:kind"`
	Participants  string    `gorm:"column:participants"` // JSON
	IsGroup       bool      `gorm:"column:is_group"`
	GroupName     string    `gorm:"column:group_name"`
	Department    string    `gorm:"column:department"`
	ContextType   string    `gorm:"column:context_type"`
	ContextID     string    `gorm:"column:context_id"`
	LastMessage   string    `gorm:"column:last_message"`
	LastMessageAt time.Time `gorm:"column:last_message_at;index"`
	UnreadCount   int       `gorm:"column:unread_count"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (ChatModel) TableName() string { return "chats" }

type MessageModel struct {
	ID          string    `gorm:"primaryKey;column:id"`
	ChatID      string    `gorm:"column:chat_id;index:idx_chat_created"`
	SenderID    string    `gorm:"column:sender_id"`
	SenderRole  string    `gorm:"column:sender_role"`
	SenderName  string    `gorm:"column:sender_name"`
	Text        string    `gorm:"column:text"`
	Attachments string    `gorm:"column:attachments"` // JSON
	ContextType string    `gorm:"column:context_type"`
	ContextID   string    `gorm:"column:context_id"`
	Status      string    `gorm:"column:status"`
	ReadBy      string    `gorm:"column:read_by"` // JSON
	MessageAt   time.Time `gorm:"column:message_at;index:idx_chat_created"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (MessageModel) TableName() string { return "messages" }

// Conversion functions

func ChatDomainToModel(chat *domain.Chat) *ChatModel {
	if chat == nil {
		return nil
	}
	model := &ChatModel{
		ID:           chat.ID,
		Kind:         string(chat.Kind),
		Participants: marshalJSON(chat.Participants),
		IsGroup:      chat.IsGroup,
		GroupName:    chat.GroupName,
		Department:   chat.Department,
		ContextType:  chat.ContextType,
		ContextID:    string(chat.ContextID),
		LastMessage:  chat.LastMessage,
		UnreadCount:  chat.UnreadCount,
	}
	if chat.LastMessageAt != nil {
		model.LastMessageAt = *chat.LastMessageAt
	}
	return model
}

func ChatModelToDomain(m *ChatModel) *domain.Chat {
	if m == nil {
		return nil
	}
	chat := &domain.Chat{
		ID:          m.ID,
		Kind:        domain.ChatKind(m.Kind),
		IsGroup:     m.IsGroup,
		GroupName:   m.GroupName,
		Department:  m.Department,
		ContextType: m.ContextType,
		ContextID:   domain.ContextID(m.ContextID),
		LastMessage: m.LastMessage,
		UnreadCount: m.UnreadCount,
	}
	if !m.LastMessageAt.IsZero() {
		at := m.LastMessageAt
		chat.LastMessageAt = &at
	}
	unmarshalJSON(m.Participants, &chat.Participants)
	return chat
}

func MessageDomainToModel(msg *domain.Message) *MessageModel {
	if msg == nil {
		return nil
	}
	return &MessageModel{
		ID:          msg.ID,
		ChatID:      msg.ChatID,
		SenderID:    msg.SenderID,
		SenderRole:  msg.SenderRole,
		SenderName:  msg.SenderName,
		Text:        msg.Text,
		Attachments: marshalJSON(msg.Attachments),
		ContextType: msg.ContextType,
		ContextID:   string(msg.ContextID),
		Status:      string(msg.Status),
		ReadBy:      marshalJSON(msg.ReadBy),
		MessageAt:   msg.CreatedAt,
	}
}

func MessageModelToDomain(m *MessageModel) *domain.Message {
	if m == nil {
		return nil
	}
	msg := &domain.Message{
		ID:          m.ID,
		ChatID:      m.ChatID,
		SenderID:    m.SenderID,
		SenderRole:  m.SenderRole,
		SenderName:  m.SenderName,
		Text:        m.Text,
		ContextType: m.ContextType,
		ContextID:   domain.ContextID(m.ContextID),
		Status:      domain.MessageStatus(m.Status),
		CreatedAt:   m.MessageAt,
	}
	unmarshalJSON(m.Attachments, &msg.Attachments)
	unmarshalJSON(m.ReadBy, &msg.ReadBy)
	return msg
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func unmarshalJSON(s string, out any) {
	if s == "" {
		return
	}
	json.Unmarshal([]byte(s), out)
}
