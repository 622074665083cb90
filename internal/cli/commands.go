package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/chat"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
)

// CommandHandler handles CLI commands
type CommandHandler struct {
	client *chat.Client

	mu      sync.Mutex
	targets map[string]domain.Target // last listed targets, keyed by target id
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(client *chat.Client) *CommandHandler {
	return &CommandHandler{
		client:  client,
		targets: make(map[string]domain.Target),
	}
}

// Command represents a parsed command
type Command struct {
	Name string
	Args []string
}

// ParseCommand parses a command string (e.g., "/open user-6655 Hello")
func ParseCommand(input string) (*Command, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty command")
	}

	if !strings.HasPrefix(input, "/") {
		return nil, fmt.Errorf("commands must start with /")
	}

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	name := strings.TrimPrefix(parts[0], "/")
	args := parts[1:]

	return &Command{Name: name, Args: args}, nil
}

// Execute executes a command and returns the result
func (h *CommandHandler) Execute(ctx context.Context, cmd *Command) (interface{}, error) {
	switch cmd.Name {
	case "help", "h":
		return h.cmdHelp()
	case "status", "s":
		return h.cmdStatus()
	case "connect", "c":
		return h.cmdConnect(ctx)
	case "disconnect", "d":
		return h.cmdDisconnect()
	case "chats", "ls":
		return h.cmdChats(ctx, cmd.Args)
	case "refresh":
		return h.cmdChats(ctx, nil)
	case "staff":
		return h.cmdStaff(ctx)
	case "teams":
		return h.cmdTeams(ctx)
	case "open", "o":
		return h.cmdOpen(ctx, cmd.Args)
	case "close":
		return h.cmdClose()
	case "messages", "msg":
		return h.cmdMessages(cmd.Args)
	case "send":
		return h.cmdSend(cmd.Args)
	case "type", "typing":
		return h.cmdType()
	case "read":
		return h.cmdRead(ctx, cmd.Args)
	case "context":
		return h.cmdContext(ctx)
	case "online":
		return h.cmdOnline()
	case "delete-msg", "dm":
		return h.cmdDeleteMessage(ctx, cmd.Args)
	case "delete-chat", "dc":
		return h.cmdDeleteChat(ctx, cmd.Args)
	case "quit", "exit", "q":
		return map[string]bool{"quit": true}, nil
	default:
		return nil, fmt.Errorf("unknown command: %s. Type /help for available commands", cmd.Name)
	}
}

func (h *CommandHandler) cmdHelp() (interface{}, error) {
	help := `Available commands:

Connection:
  /status, /s              Show connection status
  /connect, /c             Connect the push channel
  /disconnect, /d          Disconnect the push channel

Chat list:
  /chats, /ls [internal|external] [group]  List chats from the server
  /refresh                 Re-fetch the chat list
  /staff                   List internal staff (existing + potential chats)
  /teams                   List teams (existing + potential group chats)

Conversation:
  /open, /o <id>           Open a chat, staff target (user-<id>) or team target (team-<id>)
  /close                   Close the open conversation
  /messages, /msg [limit]  Show messages of the open conversation
  /send <text>             Send a message to the open conversation
  /type                    Signal a keystroke (typing indicator)
  /read [chat_id]          Mark a chat as read (default: the open one)
  /context                 Resolve the open chat's linked order/product/customer

Presence:
  /online                  Show online users

Deletion:
  /delete-msg, /dm <message_id>  Delete a message
  /delete-chat, /dc <chat_id>    Delete a whole chat

Other:
  /help, /h                Show this help
  /quit, /exit, /q         Exit the CLI`

	return map[string]string{"help": help}, nil
}

func (h *CommandHandler) cmdStatus() (interface{}, error) {
	connected := h.client.Connected()
	polling := h.client.Polling()

	var status string
	switch {
	case connected:
		status = "connected"
	case polling:
		status = "degraded (long-poll fallback)"
	default:
		status = "disconnected"
	}

	self := h.client.Self()
	open := ""
	if active := h.client.Conversation.Active(); active != nil {
		open = active.Title(self.ID)
	}

	return ConnectionStatus{
		Connected: connected,
		Polling:   polling,
		Status:    status,
		Self:      self.DisplayName(),
		OpenChat:  open,
	}, nil
}

func (h *CommandHandler) cmdConnect(ctx context.Context) (interface{}, error) {
	if err := h.client.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return map[string]string{"message": "Push channel connecting"}, nil
}

func (h *CommandHandler) cmdDisconnect() (interface{}, error) {
	h.client.Stop()
	return map[string]string{"message": "Push channel disconnected"}, nil
}

func (h *CommandHandler) cmdChats(ctx context.Context, args []string) (interface{}, error) {
	var filter chat.Filter
	for _, arg := range args {
		switch arg {
		case "internal":
			filter.Kind = domain.ChatKindInternal
		case "external":
			filter.Kind = domain.ChatKindExternal
		case "group":
			filter.GroupOnly = true
		default:
			return nil, fmt.Errorf("usage: /chats [internal|external] [group]")
		}
	}

	if err := h.client.List.Refresh(ctx, filter); err != nil {
		return nil, fmt.Errorf("failed to fetch chats: %w", err)
	}

	chats := h.client.List.Chats()
	self := h.client.Self()

	h.mu.Lock()
	result := make([]ChatInfo, len(chats))
	for i, c := range chats {
		h.targets[c.ID] = domain.ExistingChat{Chat: c}
		result[i] = h.chatInfo(c, self.ID)
	}
	h.mu.Unlock()

	return map[string]interface{}{"chats": result, "count": len(result)}, nil
}

func (h *CommandHandler) cmdStaff(ctx context.Context) (interface{}, error) {
	targets, err := h.client.Staff(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch staff: %w", err)
	}
	return map[string]interface{}{"staff": h.targetInfos(targets), "count": len(targets)}, nil
}

func (h *CommandHandler) cmdTeams(ctx context.Context) (interface{}, error) {
	targets, err := h.client.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch teams: %w", err)
	}
	return map[string]interface{}{"teams": h.targetInfos(targets), "count": len(targets)}, nil
}

func (h *CommandHandler) targetInfos(targets []domain.Target) []TargetInfo {
	self := h.client.Self()

	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]TargetInfo, 0, len(targets))
	for _, target := range targets {
		h.targets[target.TargetID()] = target

		info := TargetInfo{ID: target.TargetID()}
		switch t := target.(type) {
		case domain.ExistingChat:
			info.Title = t.Chat.Title(self.ID)
			info.Existing = true
			info.UnreadCount = t.Chat.UnreadCount
			if peer, ok := t.Chat.Peer(self.ID); ok {
				info.Online = h.client.Presence.Online(peer.ID)
			}
		case domain.PotentialDirect:
			info.Title = t.Peer.DisplayName()
			info.Online = h.client.Presence.Online(t.Peer.ID)
		case domain.PotentialGroup:
			info.Title = t.Team.Name
		}
		result = append(result, info)
	}
	return result
}

func (h *CommandHandler) cmdOpen(ctx context.Context, args []string) (interface{}, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /open <chat_id | user-<id> | team-<id>>")
	}

	target, err := h.resolveTarget(args[0])
	if err != nil {
		return nil, err
	}

	opened, err := h.client.Conversation.Open(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat: %w", err)
	}

	self := h.client.Self()
	return map[string]interface{}{
		"chat":     h.chatInfo(opened, self.ID),
		"messages": len(h.client.Conversation.Messages()),
	}, nil
}

func (h *CommandHandler) resolveTarget(id string) (domain.Target, error) {
	if c, ok := h.client.List.Get(id); ok {
		return domain.ExistingChat{Chat: c}, nil
	}

	h.mu.Lock()
	target, ok := h.targets[id]
	h.mu.Unlock()
	if ok {
		return target, nil
	}

	return nil, fmt.Errorf("unknown target %q: list it first with /chats, /staff or /teams", id)
}

func (h *CommandHandler) cmdClose() (interface{}, error) {
	if h.client.Conversation.Active() == nil {
		return nil, chat.ErrNoActiveChat
	}
	h.client.Conversation.Close()
	return map[string]string{"message": "Conversation closed"}, nil
}

func (h *CommandHandler) cmdMessages(args []string) (interface{}, error) {
	if h.client.Conversation.Active() == nil {
		return nil, chat.ErrNoActiveChat
	}

	msgs := h.client.Conversation.Messages()

	limit := 50
	if len(args) > 0 {
		if l, err := strconv.Atoi(args[0]); err == nil && l > 0 {
			limit = l
		}
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	self := h.client.Self()
	result := make([]MessageInfo, len(msgs))
	for i, msg := range msgs {
		result[i] = h.messageInfo(msg, self.ID)
	}

	return map[string]interface{}{"messages": result, "count": len(result)}, nil
}

func (h *CommandHandler) cmdSend(args []string) (interface{}, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /send <text>")
	}

	text := strings.Join(args, " ")
	if err := h.client.Conversation.Send(text, nil); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	// The sent message arrives back over the push channel; there is no
	// local echo to report.
	return map[string]string{"message": "Message sent"}, nil
}

func (h *CommandHandler) cmdType() (interface{}, error) {
	chatID := h.client.Conversation.ActiveID()
	if chatID == "" {
		return nil, chat.ErrNoActiveChat
	}
	h.client.Typing.Keystroke(chatID)
	return map[string]string{"message": "Typing indicator refreshed"}, nil
}

func (h *CommandHandler) cmdRead(ctx context.Context, args []string) (interface{}, error) {
	chatID := h.client.Conversation.ActiveID()
	if len(args) > 0 {
		chatID = args[0]
	}
	if chatID == "" {
		return nil, fmt.Errorf("usage: /read [chat_id] (no conversation is open)")
	}

	if err := h.client.MarkRead(ctx, chatID); err != nil {
		return nil, fmt.Errorf("failed to mark as read: %w", err)
	}

	return map[string]string{"message": "Chat marked as read", "chat_id": chatID}, nil
}

func (h *CommandHandler) cmdContext(ctx context.Context) (interface{}, error) {
	active := h.client.Conversation.Active()
	if active == nil {
		return nil, chat.ErrNoActiveChat
	}

	ref := active.Context()
	if ref == nil {
		return map[string]string{"message": "This chat has no linked record"}, nil
	}

	details, err := h.client.Resolver.Resolve(ctx, *ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", ref, err)
	}

	return ContextInfo{
		Type:  string(ref.Type),
		ID:    ref.ID,
		Label: details.Label(),
	}, nil
}

func (h *CommandHandler) cmdOnline() (interface{}, error) {
	h.client.RequestPresence()
	users := h.client.Presence.Users()
	return map[string]interface{}{"online": users, "count": len(users)}, nil
}

func (h *CommandHandler) cmdDeleteMessage(ctx context.Context, args []string) (interface{}, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /delete-msg <message_id>")
	}

	if err := h.client.Conversation.DeleteMessage(ctx, args[0]); err != nil {
		return nil, fmt.Errorf("failed to delete message: %w", err)
	}
	return map[string]string{"message": "Message deleted", "message_id": args[0]}, nil
}

func (h *CommandHandler) cmdDeleteChat(ctx context.Context, args []string) (interface{}, error) {
	chatID := h.client.Conversation.ActiveID()
	if len(args) > 0 {
		chatID = args[0]
	}
	if chatID == "" {
		return nil, fmt.Errorf("usage: /delete-chat [chat_id] (no conversation is open)")
	}

	if err := h.client.Conversation.DeleteChat(ctx, chatID); err != nil {
		return nil, fmt.Errorf("failed to delete chat: %w", err)
	}
	return map[string]string{"message": "Chat deleted", "chat_id": chatID}, nil
}

func (h *CommandHandler) chatInfo(c *domain.Chat, viewerID string) ChatInfo {
	info := ChatInfo{
		ID:            c.ID,
		Title:         c.Title(viewerID),
		Kind:          string(c.Kind),
		IsGroup:       c.IsGroup,
		UnreadCount:   c.UnreadCount,
		LastMessage:   c.LastMessage,
		LastMessageAt: c.LastMessageAt,
	}
	if ref := c.Context(); ref != nil {
		info.Context = ref.String()
	}
	return info
}

func (h *CommandHandler) messageInfo(msg *domain.Message, viewerID string) MessageInfo {
	info := MessageInfo{
		ID:         msg.ID,
		ChatID:     msg.ChatID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Text:       msg.Text,
		Status:     string(msg.Status),
		Timestamp:  msg.CreatedAt,
		IsFromMe:   msg.SenderID == viewerID,
	}
	if ref := msg.Context(); ref != nil {
		info.Context = ref.String()
	}
	return info
}

// SubscribeEvents subscribes to chat events for the given types (all chat
// event types when empty).
func (h *CommandHandler) SubscribeEvents(eventTypes []domain.EventType) <-chan Event {
	if len(eventTypes) == 0 {
		eventTypes = []domain.EventType{
			domain.EventTypeMessageReceived,
			domain.EventTypeMessagesRead,
			domain.EventTypeChatListChanged,
			domain.EventTypeTypingChanged,
			domain.EventTypePresenceChanged,
			domain.EventTypeConnectionStatus,
		}
	}

	domainChan := h.client.Bus().Subscribe(eventTypes)
	resultChan := make(chan Event)
	self := h.client.Self()

	go func() {
		defer close(resultChan)
		for evt := range domainChan {
			var eventType string
			var data interface{}

			switch e := evt.(type) {
			case domain.MessageReceivedEvent:
				eventType = "message_received"
				data = h.messageInfo(e.Message, self.ID)
			case domain.MessagesReadEvent:
				eventType = "messages_read"
				data = map[string]string{"chat_id": e.ChatID, "reader_id": e.ReaderID}
			case domain.ChatListChangedEvent:
				eventType = "chat_list_changed"
				data = map[string]int{"count": len(h.client.List.Chats())}
			case domain.TypingChangedEvent:
				eventType = "typing_changed"
				data = map[string]interface{}{"chat_id": e.ChatID, "peers": e.PeerNames}
			case domain.PresenceChangedEvent:
				eventType = "presence_changed"
				data = map[string]interface{}{"user_id": e.UserID, "online": e.Online}
			case domain.ConnectionStatusEvent:
				eventType = "connection_status"
				data = map[string]interface{}{"connected": e.Connected, "reason": e.Reason}
			default:
				continue
			}

			resultChan <- Event{
				Type:      eventType,
				Timestamp: time.Now(),
				Data:      data,
			}
		}
	}()

	return resultChan
}
