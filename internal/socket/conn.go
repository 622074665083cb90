package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = (pongWait * 9) / 10
	sendBufSize = 64
)

var ErrNotConnected = errors.New("socket: not connected")

type Config struct {
	// URL is the websocket endpoint. PollURL, when set, enables the HTTP
	// long-poll fallback once the reconnection budget is exhausted.
	URL     string
	PollURL string
	Token   string

	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration

	Dialer *websocket.Dialer
}

// Conn owns the single socket connection shared by all chat components.
// Connect is idempotent while the manager is running; Close releases the
// connection and permits a later Connect to create a new one. Connection
// errors are surfaced to Handlers.OnStatus and logged, never fatal.
type Conn struct {
	cfg       Config
	log       zerolog.Logger
	sessionID string
	handlers  Handlers

	mu        sync.Mutex
	ws        *websocket.Conn
	send      chan Envelope
	started   bool
	connected bool
	polling   bool
	cancel    context.CancelFunc
}

func New(cfg Config, log zerolog.Logger) *Conn {
	if cfg.ReconnectAttempts <= 0 {
		cfg.ReconnectAttempts = 5
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.ReconnectDelayMax <= 0 {
		cfg.ReconnectDelayMax = 5 * time.Second
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Conn{
		cfg:       cfg,
		log:       log,
		sessionID: uuid.NewString(),
		send:      make(chan Envelope, sendBufSize),
	}
}

// SetHandlers must be called before Connect.
func (c *Conn) SetHandlers(h Handlers) {
	c.handlers = h
}

// Connect starts the connection manager. Repeated calls while running are
// no-ops. The returned error covers startup only; dial failures are
// recovered by the internal reconnection loop.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.started = true
	go c.run(runCtx)
	return nil
}

// Close tears the connection down. Safe to call multiple times.
func (c *Conn) Close() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	c.connected = false
	c.polling = false
	cancel := c.cancel
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	cancel()
	if ws != nil {
		ws.Close()
	}
	c.log.Info().Msg("socket closed")
}

func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Polling reports whether the manager degraded to the long-poll transport.
func (c *Conn) Polling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polling
}

func (c *Conn) run(ctx context.Context) {
	attempt := 0
	delay := c.cfg.ReconnectDelay

	for ctx.Err() == nil {
		ws, err := c.dial(ctx)
		if err != nil {
			attempt++
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("socket connect error")
			c.status(false, "connect_error")

			if attempt >= c.cfg.ReconnectAttempts {
				if c.cfg.PollURL != "" {
					c.log.Info().Str("url", c.cfg.PollURL).Msg("degrading to long-poll transport")
					c.pollLoop(ctx)
				} else {
					c.log.Error().Int("attempts", attempt).Msg("socket reconnection budget exhausted")
				}
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.cfg.ReconnectDelayMax {
				delay = c.cfg.ReconnectDelayMax
			}
			continue
		}

		attempt = 0
		delay = c.cfg.ReconnectDelay

		c.mu.Lock()
		c.ws = ws
		c.connected = true
		c.mu.Unlock()

		c.log.Info().Str("session", c.sessionID).Msg("socket connected")
		c.status(true, "")

		reason := c.pump(ctx, ws)

		c.mu.Lock()
		c.connected = false
		c.ws = nil
		c.mu.Unlock()

		c.log.Info().Str("reason", reason).Msg("socket disconnected")
		c.status(false, reason)
	}
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	ws, _, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, header)
	return ws, err
}

// pump runs the write loop in a goroutine and reads inline until the
// connection drops. Returns the disconnect reason.
func (c *Conn) pump(ctx context.Context, ws *websocket.Conn) string {
	done := make(chan struct{})
	defer close(done)

	go c.writePump(ctx, ws, done)

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := ws.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return "closed"
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "server closed"
			}
			return "read error"
		}
		c.dispatch(env)
	}
}

func (c *Conn) writePump(ctx context.Context, ws *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case env := <-c.send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(env); err != nil {
				c.log.Warn().Err(err).Str("event", string(env.Event)).Msg("socket write failed")
				ws.Close()
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				ws.Close()
				return
			}
		case <-ctx.Done():
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			ws.Close()
			return
		case <-done:
			return
		}
	}
}

func (c *Conn) dispatch(env Envelope) {
	h := c.handlers
	switch env.Event {
	case EventMessageNew:
		var p MessageNewPayload
		if c.unmarshal(env, &p) && h.OnMessageNew != nil {
			if p.Message.ChatID == "" {
				p.Message.ChatID = p.ChatID
			}
			h.OnMessageNew(p)
		}
	case EventChatUpdated:
		var p ChatUpdatedPayload
		if c.unmarshal(env, &p) && h.OnChatUpdated != nil {
			h.OnChatUpdated(p)
		}
	case EventTypingUpdate:
		var p TypingUpdatePayload
		if c.unmarshal(env, &p) && h.OnTypingUpdate != nil {
			h.OnTypingUpdate(p)
		}
	case EventMessagesRead:
		var p MessagesReadPayload
		if c.unmarshal(env, &p) && h.OnMessagesRead != nil {
			h.OnMessagesRead(p)
		}
	case EventMessageStatus:
		var p MessageStatusPayload
		if c.unmarshal(env, &p) && h.OnMessageStatus != nil {
			h.OnMessageStatus(p)
		}
	case EventUserOnline:
		var p userPayload
		if c.unmarshal(env, &p) && h.OnUserOnline != nil {
			h.OnUserOnline(p.UserID)
		}
	case EventUserOffline:
		var p userPayload
		if c.unmarshal(env, &p) && h.OnUserOffline != nil {
			h.OnUserOffline(p.UserID)
		}
	case EventOnlineUsersList:
		var ids []string
		if c.unmarshal(env, &ids) && h.OnOnlineUsers != nil {
			h.OnOnlineUsers(ids)
		}
	default:
		c.log.Debug().Str("event", string(env.Event)).Msg("unhandled socket event")
	}
}

func (c *Conn) unmarshal(env Envelope, out any) bool {
	if err := json.Unmarshal(env.Data, out); err != nil {
		c.log.Warn().Err(err).Str("event", string(env.Event)).Msg("bad socket payload")
		return false
	}
	return true
}

func (c *Conn) status(connected bool, reason string) {
	if c.handlers.OnStatus != nil {
		c.handlers.OnStatus(connected, reason)
	}
}

// JoinChat subscribes this client to a chat room. Fire-and-forget.
func (c *Conn) JoinChat(chatID string) {
	c.emit(EventChatJoin, chatIDPayload{ChatID: chatID})
}

// LeaveChat unsubscribes from a chat room. Fire-and-forget.
func (c *Conn) LeaveChat(chatID string) {
	c.emit(EventChatLeave, chatIDPayload{ChatID: chatID})
}

func (c *Conn) StartTyping(chatID string) {
	c.emit(EventTypingStart, chatIDPayload{ChatID: chatID})
}

func (c *Conn) StopTyping(chatID string) {
	c.emit(EventTypingStop, chatIDPayload{ChatID: chatID})
}

func (c *Conn) MarkMessagesRead(chatID string) {
	c.emit(EventMessageRead, chatIDPayload{ChatID: chatID})
}

func (c *Conn) MarkDelivered(messageID string) {
	c.emit(EventMessageDelivered, struct {
		MessageID string `json:"messageId"`
	}{MessageID: messageID})
}

func (c *Conn) RequestOnlineUsers() {
	c.emit(EventUsersOnline, nil)
}

// SendMessage forwards a message payload over the connection. Unlike the
// fire-and-forget emits, a disconnected state is reported to the caller so
// the UI can surface an inline notice.
func (c *Conn) SendMessage(p SendMessagePayload) error {
	c.mu.Lock()
	connected := c.connected
	polling := c.polling
	c.mu.Unlock()
	if !connected && !polling {
		return ErrNotConnected
	}
	c.emit(EventMessageSend, p)
	return nil
}

func (c *Conn) emit(event EventType, data any) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			c.log.Error().Err(err).Str("event", string(event)).Msg("marshal emit payload")
			return
		}
		raw = b
	}
	env := Envelope{Event: event, Data: raw}

	c.mu.Lock()
	connected := c.connected
	polling := c.polling
	c.mu.Unlock()

	switch {
	case polling:
		go c.pollEmit(env)
	case connected:
		select {
		case c.send <- env:
		default:
			c.log.Warn().Str("event", string(event)).Msg("socket send buffer full, dropping emit")
		}
	default:
		c.log.Debug().Str("event", string(event)).Msg("not connected, dropping emit")
	}
}
