package cli

import "time"

// Mode represents the CLI operation mode
type Mode string

const (
	ModeInteractive Mode = "interactive"
	ModeHeadless    Mode = "headless"
)

// Request represents a JSON request in headless mode
type Request struct {
	ID      string                 `json:"id,omitempty"`
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Response represents a JSON response in headless mode
type Response struct {
	ID      string      `json:"id,omitempty"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Event represents a real-time event in headless mode
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ChatInfo represents chat information for responses
type ChatInfo struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Kind          string     `json:"kind"`
	IsGroup       bool       `json:"is_group"`
	UnreadCount   int        `json:"unread_count"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	Context       string     `json:"context,omitempty"`
}

// TargetInfo represents a chat-list entry, real or potential
type TargetInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Existing    bool   `json:"existing"`
	UnreadCount int    `json:"unread_count,omitempty"`
	Online      bool   `json:"online,omitempty"`
}

// MessageInfo represents message information for responses
type MessageInfo struct {
	ID         string    `json:"id"`
	ChatID     string    `json:"chat_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Text       string    `json:"text"`
	Status     string    `json:"status"`
	Context    string    `json:"context,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	IsFromMe   bool      `json:"is_from_me"`
}

// ConnectionStatus represents connection status for responses
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Polling   bool   `json:"polling"`
	Status    string `json:"status"`
	Self      string `json:"self"`
	OpenChat  string `json:"open_chat,omitempty"`
}

// ContextInfo represents a resolved business-record context
type ContextInfo struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Label string `json:"label"`
}
