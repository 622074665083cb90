package chat

import (
	"context"
	"errors"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/api"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/socket"
)

var (
	ErrEmptyMessage = errors.New("chat: message text is empty")
	ErrNoActiveChat = errors.New("chat: no chat is open")
)

// API is the REST surface the sync core consumes. *api.Client satisfies it.
type API interface {
	ListChats(ctx context.Context, filter api.ChatFilter) ([]*domain.Chat, error)
	ListStaff(ctx context.Context) ([]domain.Participant, error)
	ListTeams(ctx context.Context) ([]domain.Team, error)
	CreateDirectChat(ctx context.Context, req api.CreateDirectChatRequest) (*domain.Chat, error)
	CreateGroupChat(ctx context.Context, req api.CreateGroupChatRequest) (*domain.Chat, error)
	ChatMessages(ctx context.Context, chatID string) ([]*domain.Message, error)
	MarkChatRead(ctx context.Context, chatID string) error
	DeleteMessage(ctx context.Context, messageID string) error
	DeleteChat(ctx context.Context, chatID string) error
	ResolveContext(ctx context.Context, ref domain.ContextRef) (*api.ContextDetails, error)
}

// Emitter is the push-channel surface the sync core consumes. Join/leave
// and typing emissions are fire-and-forget; only SendMessage reports a
// disconnected state. *socket.Conn satisfies it.
type Emitter interface {
	JoinChat(chatID string)
	LeaveChat(chatID string)
	SendMessage(p socket.SendMessagePayload) error
	StartTyping(chatID string)
	StopTyping(chatID string)
	MarkMessagesRead(chatID string)
}

// ChatStore persists chat summaries so a last-known list can be rendered
// while degraded. Implemented by the repository package; optional.
type ChatStore interface {
	ReplaceAll(ctx context.Context, chats []*domain.Chat) error
	GetAll(ctx context.Context) ([]*domain.Chat, error)
	SetUnread(ctx context.Context, chatID string, count int) error
	IncrementUnread(ctx context.Context, chatID string) error
	Delete(ctx context.Context, chatID string) error
}

// MessageStore persists fetched history pages and pushed messages.
// Implemented by the repository package; optional.
type MessageStore interface {
	CreateOrIgnore(ctx context.Context, msg *domain.Message) error
	ReplaceHistory(ctx context.Context, chatID string, msgs []*domain.Message) error
	GetByChat(ctx context.Context, chatID string, limit int) ([]*domain.Message, error)
	Delete(ctx context.Context, messageID string) error
	DeleteByChat(ctx context.Context, chatID string) error
}
