package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/api"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/socket"
)

// Conversation is the active conversation buffer: the authoritative
// in-memory order for the one chat that is open, append-only by arrival.
// Only this component issues room join/leave for the connection, and it
// never holds membership in two rooms: the previous room is always left
// before the next one is joined.
type Conversation struct {
	log    zerolog.Logger
	api    API
	emit   Emitter
	list   *ListCache
	typing *TypingTracker
	msgs   MessageStore // optional
	self   domain.Participant

	mu       sync.Mutex
	epoch    uint64
	open     *domain.Chat
	messages []*domain.Message
}

func NewConversation(a API, emit Emitter, list *ListCache, typing *TypingTracker, msgs MessageStore, self domain.Participant, log zerolog.Logger) *Conversation {
	return &Conversation{
		log:    log,
		api:    a,
		emit:   emit,
		list:   list,
		typing: typing,
		msgs:   msgs,
		self:   self,
	}
}

// Open selects a target. A potential target is materialized first (the
// create call happens before any room signal), then the previous room is
// left, the new one joined, history fetched, and the chat marked read.
// When the fetch fails the last persisted history page is served instead,
// keeping the conversation readable while degraded. A history response
// that arrives after the buffer has moved on is discarded by the epoch
// guard.
func (c *Conversation) Open(ctx context.Context, target domain.Target) (*domain.Chat, error) {
	chat, err := c.materialize(ctx, target)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.open != nil && c.open.ID == chat.ID {
		c.mu.Unlock()
		return chat, nil
	}
	if c.open != nil {
		prev := c.open
		c.emit.LeaveChat(prev.ID)
		c.typing.Reset(prev.ID)
	}
	c.epoch++
	epoch := c.epoch
	c.open = chat
	c.messages = nil
	c.emit.JoinChat(chat.ID)
	c.mu.Unlock()

	history, err := c.api.ChatMessages(ctx, chat.ID)
	if err != nil {
		cached := c.loadCached(ctx, chat.ID)
		if len(cached) == 0 {
			return chat, fmt.Errorf("open chat %s: %w", chat.ID, err)
		}
		c.log.Warn().Err(err).Str("chat", chat.ID).Msg("history fetch failed, serving cached messages")
		c.mu.Lock()
		if c.epoch == epoch {
			c.messages = cached
		}
		c.mu.Unlock()
		return chat, nil
	}

	c.mu.Lock()
	if c.epoch != epoch {
		// The user moved on while the fetch was in flight.
		c.mu.Unlock()
		c.log.Debug().Str("chat", chat.ID).Msg("discarding stale history response")
		return chat, nil
	}
	c.messages = history
	c.mu.Unlock()

	if c.msgs != nil {
		if err := c.msgs.ReplaceHistory(ctx, chat.ID, history); err != nil {
			c.log.Warn().Err(err).Str("chat", chat.ID).Msg("failed to persist history")
		}
	}

	if err := c.api.MarkChatRead(ctx, chat.ID); err != nil {
		c.log.Warn().Err(err).Str("chat", chat.ID).Msg("mark read failed")
	}
	c.emit.MarkMessagesRead(chat.ID)
	c.list.MarkRead(chat.ID)

	return chat, nil
}

// Rejoin re-emits the room subscription for the open chat. Server-side
// room membership does not survive a reconnect, so the connection status
// handler calls this on every transition back to connected.
func (c *Conversation) Rejoin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open != nil {
		c.emit.JoinChat(c.open.ID)
	}
}

// loadCached serves the last persisted history page while degraded,
// mirroring the list cache's snapshot fallback.
func (c *Conversation) loadCached(ctx context.Context, chatID string) []*domain.Message {
	if c.msgs == nil {
		return nil
	}
	cached, err := c.msgs.GetByChat(ctx, chatID, 0)
	if err != nil {
		c.log.Warn().Err(err).Str("chat", chatID).Msg("cached history unavailable")
		return nil
	}
	return cached
}

func (c *Conversation) materialize(ctx context.Context, target domain.Target) (*domain.Chat, error) {
	switch t := target.(type) {
	case domain.ExistingChat:
		return t.Chat, nil

	case domain.PotentialDirect:
		req := api.CreateDirectChatRequest{
			ParticipantID: t.Peer.ID,
			Kind:          t.Kind,
		}
		if t.Context != nil {
			req.ContextType = t.Context.Type
			req.ContextID = t.Context.ID
		}
		chat, err := c.api.CreateDirectChat(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("materialize direct chat with %s: %w", t.Peer.ID, err)
		}
		return chat, nil

	case domain.PotentialGroup:
		ids := make([]string, len(t.Team.Members))
		for i, m := range t.Team.Members {
			ids[i] = m.ID
		}
		chat, err := c.api.CreateGroupChat(ctx, api.CreateGroupChatRequest{
			GroupName:      t.Team.Name,
			ParticipantIDs: ids,
			Department:     t.Team.Description,
		})
		if err != nil {
			return nil, fmt.Errorf("materialize group chat for %s: %w", t.Team.Name, err)
		}
		return chat, nil

	default:
		return nil, fmt.Errorf("unknown chat target %T", target)
	}
}

// AppendIncoming tail-appends a pushed message when it belongs to the open
// chat. Messages for other chats (including a chat that was just closed
// while a send was in flight) are not buffered and false is returned so
// the caller can route them to the list cache. Duplicate pushes of the
// same message id are dropped; in particular the sender's own message,
// which arrives only via the push channel, appears exactly once.
func (c *Conversation) AppendIncoming(msg *domain.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open == nil || msg.ChatID != c.open.ID {
		return false
	}
	for _, existing := range c.messages {
		if existing.ID == msg.ID {
			return true
		}
	}
	c.messages = append(c.messages, msg)
	return true
}

// Send validates and forwards a message over the connection. Local typing
// state is cleared immediately, even mid-debounce. No local echo is
// inserted: the single source of truth for the sent message is the push
// channel.
func (c *Conversation) Send(text string, ref *domain.ContextRef) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	open := c.open
	c.mu.Unlock()
	if open == nil {
		return ErrNoActiveChat
	}

	c.typing.Stop(open.ID)

	payload := socket.SendMessagePayload{
		ChatID: open.ID,
		Text:   text,
	}
	if ref != nil {
		payload.ContextType = ref.Type
		payload.ContextID = ref.ID
	}
	return c.emit.SendMessage(payload)
}

// MarkSeenBy handles a bulk read marker for the open chat: every buffered
// message authored by the local user advances to seen. Transitions are
// monotonic; messages not currently buffered are left to the next fetch.
func (c *Conversation) MarkSeenBy(chatID, readerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open == nil || c.open.ID != chatID || readerID == c.self.ID {
		return
	}
	for _, msg := range c.messages {
		if msg.SenderID == c.self.ID {
			msg.AdvanceStatus(domain.StatusSeen)
		}
	}
}

// ApplyStatus advances a single buffered message's delivery status.
func (c *Conversation) ApplyStatus(messageID string, status domain.MessageStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, msg := range c.messages {
		if msg.ID == messageID {
			msg.AdvanceStatus(status)
			return
		}
	}
}

// Close leaves the room and clears the buffer. A push-back for an in-flight
// send lands after this and is dropped by AppendIncoming's identity check.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open == nil {
		return
	}
	c.emit.LeaveChat(c.open.ID)
	c.typing.Reset(c.open.ID)
	c.epoch++
	c.open = nil
	c.messages = nil
}

// Active returns the open chat, nil when none.
func (c *Conversation) Active() *domain.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// ActiveID returns the open chat id, "" when none.
func (c *Conversation) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open == nil {
		return ""
	}
	return c.open.ID
}

// Messages returns a snapshot of the buffer in arrival order.
func (c *Conversation) Messages() []*domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*domain.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// DeleteMessage removes a message server-side and from the buffer.
func (c *Conversation) DeleteMessage(ctx context.Context, messageID string) error {
	if err := c.api.DeleteMessage(ctx, messageID); err != nil {
		return err
	}
	c.mu.Lock()
	for i, msg := range c.messages {
		if msg.ID == messageID {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	if c.msgs != nil {
		if err := c.msgs.Delete(ctx, messageID); err != nil {
			c.log.Warn().Err(err).Str("message", messageID).Msg("failed to delete cached message")
		}
	}
	return nil
}

// DeleteChat removes a chat server-side, closes it if open, and drops it
// from the list cache.
func (c *Conversation) DeleteChat(ctx context.Context, chatID string) error {
	if err := c.api.DeleteChat(ctx, chatID); err != nil {
		return err
	}
	if c.ActiveID() == chatID {
		c.Close()
	}
	c.list.Remove(chatID)

	if c.msgs != nil {
		if err := c.msgs.DeleteByChat(ctx, chatID); err != nil {
			c.log.Warn().Err(err).Str("chat", chatID).Msg("failed to delete cached history")
		}
	}
	return nil
}
