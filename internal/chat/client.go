package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/api"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/socket"
)

// Client is the chat synchronization core: it owns the list cache, the
// active conversation buffer, the typing and presence trackers, and routes
// server pushes between them. All push-channel traffic goes through the
// single shared connection.
type Client struct {
	log   zerolog.Logger
	api   API
	conn  *socket.Conn
	bus   domain.EventBus
	self  domain.Participant
	chats ChatStore    // optional
	msgs  MessageStore // optional

	List         *ListCache
	Conversation *Conversation
	Typing       *TypingTracker
	Presence     *PresenceTracker
	Resolver     *ContextResolver
}

type Options struct {
	Self          domain.Participant
	TypingTimeout time.Duration
	ChatStore     ChatStore
	MessageStore  MessageStore
}

func NewClient(a API, conn *socket.Conn, bus domain.EventBus, opts Options, log zerolog.Logger) *Client {
	c := &Client{
		log:   log,
		api:   a,
		conn:  conn,
		bus:   bus,
		self:  opts.Self,
		chats: opts.ChatStore,
		msgs:  opts.MessageStore,
	}

	c.List = NewListCache(a, opts.ChatStore, log)
	c.Typing = NewTypingTracker(conn, opts.TypingTimeout)
	c.Conversation = NewConversation(a, conn, c.List, c.Typing, opts.MessageStore, opts.Self, log)
	c.Presence = NewPresenceTracker()
	c.Resolver = NewContextResolver(a)

	c.Typing.OnChange(func(chatID string) {
		c.publish(domain.TypingChangedEvent{
			ChatID:    chatID,
			PeerNames: c.Typing.Peers(chatID),
			EventTime: time.Now(),
		})
	})

	conn.SetHandlers(socket.Handlers{
		OnMessageNew:    c.handleMessageNew,
		OnChatUpdated:   c.handleChatUpdated,
		OnTypingUpdate:  c.handleTypingUpdate,
		OnMessagesRead:  c.handleMessagesRead,
		OnMessageStatus: c.handleMessageStatus,
		OnUserOnline:    c.handleUserOnline,
		OnUserOffline:   c.handleUserOffline,
		OnOnlineUsers:   c.handleOnlineUsers,
		OnStatus:        c.handleStatus,
	})

	return c
}

// Start connects the push channel. Lazily called on first chat open by the
// CLI; idempotent.
func (c *Client) Start(ctx context.Context) error {
	return c.conn.Connect(ctx)
}

// Stop tears the push channel down and closes the open conversation.
func (c *Client) Stop() {
	c.Conversation.Close()
	c.conn.Close()
}

func (c *Client) Self() domain.Participant {
	return c.self
}

func (c *Client) Bus() domain.EventBus {
	return c.bus
}

func (c *Client) Connected() bool {
	return c.conn.Connected()
}

func (c *Client) Polling() bool {
	return c.conn.Polling()
}

// MarkRead marks a whole chat as read: persists on the server, notifies
// other participants over the push channel, and zeroes the local counter.
func (c *Client) MarkRead(ctx context.Context, chatID string) error {
	if err := c.api.MarkChatRead(ctx, chatID); err != nil {
		return err
	}
	c.conn.MarkMessagesRead(chatID)
	c.List.MarkRead(chatID)
	return nil
}

// RequestPresence asks the server for a fresh online-users snapshot.
func (c *Client) RequestPresence() {
	c.conn.RequestOnlineUsers()
}

// Staff returns the merged internal roster (existing chats + potential
// direct targets).
func (c *Client) Staff(ctx context.Context) ([]domain.Target, error) {
	staff, err := c.api.ListStaff(ctx)
	if err != nil {
		return nil, err
	}
	return c.List.MergeStaff(staff, c.self.ID), nil
}

// Teams returns the merged team roster (existing group chats + potential
// group targets).
func (c *Client) Teams(ctx context.Context) ([]domain.Target, error) {
	teams, err := c.api.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	return c.List.MergeTeams(teams), nil
}

func (c *Client) handleMessageNew(p socket.MessageNewPayload) {
	msg := p.Message
	if msg.Status == "" {
		msg.Status = domain.StatusSent
	}

	active := c.Conversation.AppendIncoming(&msg)
	if active {
		// Reading happens implicitly while the chat is on screen.
		c.conn.MarkMessagesRead(msg.ChatID)
		c.List.MarkRead(msg.ChatID)
		c.Typing.ClearPeer(msg.ChatID, msg.SenderName)
	} else if !c.List.ApplyIncoming(&msg) {
		// Unknown chat: the client cannot synthesize chat metadata it has
		// not fetched, so fall back to a full refresh.
		go c.refreshList("push for unknown chat")
	}

	if c.msgs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
		if err := c.msgs.CreateOrIgnore(ctx, &msg); err != nil {
			c.log.Warn().Err(err).Str("message", msg.ID).Msg("failed to cache message")
		}
		cancel()
	}

	c.publish(domain.MessageReceivedEvent{Message: &msg, Active: active, EventTime: time.Now()})
}

func (c *Client) handleChatUpdated(p socket.ChatUpdatedPayload) {
	go c.refreshList("chat updated")
}

func (c *Client) refreshList(cause string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.List.Refresh(ctx, c.List.Filter()); err != nil {
		c.log.Warn().Err(err).Str("cause", cause).Msg("chat list refresh failed")
		return
	}
	c.publish(domain.ChatListChangedEvent{EventTime: time.Now()})
}

func (c *Client) handleTypingUpdate(p socket.TypingUpdatePayload) {
	if p.UserID == c.self.ID {
		return
	}
	c.Typing.ApplyRemote(p.ChatID, p.UserName, p.IsTyping)
}

func (c *Client) handleMessagesRead(p socket.MessagesReadPayload) {
	c.Conversation.MarkSeenBy(p.ChatID, p.UserID)
	c.publish(domain.MessagesReadEvent{ChatID: p.ChatID, ReaderID: p.UserID, EventTime: time.Now()})
}

func (c *Client) handleMessageStatus(p socket.MessageStatusPayload) {
	c.Conversation.ApplyStatus(p.MessageID, p.Status)
}

func (c *Client) handleUserOnline(userID string) {
	c.Presence.SetOnline(userID)
	c.publish(domain.PresenceChangedEvent{UserID: userID, Online: true, EventTime: time.Now()})
}

func (c *Client) handleUserOffline(userID string) {
	c.Presence.SetOffline(userID)
	c.publish(domain.PresenceChangedEvent{UserID: userID, Online: false, EventTime: time.Now()})
}

func (c *Client) handleOnlineUsers(userIDs []string) {
	c.Presence.ReplaceAll(userIDs)
}

func (c *Client) handleStatus(connected bool, reason string) {
	if connected {
		// The server drops room subscriptions with the old connection.
		c.Conversation.Rejoin()
	}
	c.publish(domain.ConnectionStatusEvent{Connected: connected, Reason: reason, EventTime: time.Now()})
}

func (c *Client) publish(event domain.Event) {
	if c.bus != nil {
		c.bus.Publish(event)
	}
}

// Filter re-exported for callers building list refreshes.
type Filter = api.ChatFilter
