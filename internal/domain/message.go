package domain

import "time"

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusSeen      MessageStatus = "seen"
)

func (s MessageStatus) rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusSeen:
		return 3
	}
	return 0
}

// Message belongs exclusively to its chat. Status only ever moves forward
// along sent -> delivered -> seen.
type Message struct {
	ID          string        `json:"_id"`
	ChatID      string        `json:"chatId"`
	SenderID    string        `json:"senderId"`
	SenderRole  string        `json:"senderRole,omitempty"`
	SenderName  string        `json:"senderName,omitempty"`
	Text        string        `json:"text"`
	Attachments []string      `json:"attachments,omitempty"`
	ContextType string        `json:"contextType,omitempty"`
	ContextID   ContextID     `json:"contextId,omitempty"`
	Status      MessageStatus `json:"status"`
	ReadBy      []string      `json:"readBy,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// AdvanceStatus applies a monotonic status transition. A regression is
// ignored and reported false.
func (m *Message) AdvanceStatus(next MessageStatus) bool {
	if next.rank() <= m.Status.rank() {
		return false
	}
	m.Status = next
	return true
}

// Context returns the message-level context reference, if any.
func (m *Message) Context() *ContextRef {
	if m.ContextType == "" {
		return nil
	}
	return &ContextRef{Type: ContextType(m.ContextType), ID: string(m.ContextID)}
}
