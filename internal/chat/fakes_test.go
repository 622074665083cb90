package chat

import (
	"context"
	"sync"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/api"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/socket"
)

// fakeAPI stubs the REST surface. Unset funcs return zero values.
type fakeAPI struct {
	listChats       func(filter api.ChatFilter) ([]*domain.Chat, error)
	chatMessages    func(chatID string) ([]*domain.Message, error)
	createDirect    func(req api.CreateDirectChatRequest) (*domain.Chat, error)
	createGroup     func(req api.CreateGroupChatRequest) (*domain.Chat, error)
	resolveContext  func(ref domain.ContextRef) (*api.ContextDetails, error)
	markReadErr     error
	deleteErr       error
	staff           []domain.Participant
	teams           []domain.Team
	historyCalls    int
	markReadChats   []string
	deletedMessages []string
	deletedChats    []string
}

func (f *fakeAPI) ListChats(_ context.Context, filter api.ChatFilter) ([]*domain.Chat, error) {
	if f.listChats != nil {
		return f.listChats(filter)
	}
	return nil, nil
}

func (f *fakeAPI) ListStaff(context.Context) ([]domain.Participant, error) { return f.staff, nil }
func (f *fakeAPI) ListTeams(context.Context) ([]domain.Team, error)        { return f.teams, nil }

func (f *fakeAPI) CreateDirectChat(_ context.Context, req api.CreateDirectChatRequest) (*domain.Chat, error) {
	if f.createDirect != nil {
		return f.createDirect(req)
	}
	return &domain.Chat{ID: "created-" + req.ParticipantID}, nil
}

func (f *fakeAPI) CreateGroupChat(_ context.Context, req api.CreateGroupChatRequest) (*domain.Chat, error) {
	if f.createGroup != nil {
		return f.createGroup(req)
	}
	return &domain.Chat{ID: "created-group", IsGroup: true, GroupName: req.GroupName}, nil
}

func (f *fakeAPI) ChatMessages(_ context.Context, chatID string) ([]*domain.Message, error) {
	f.historyCalls++
	if f.chatMessages != nil {
		return f.chatMessages(chatID)
	}
	return nil, nil
}

func (f *fakeAPI) MarkChatRead(_ context.Context, chatID string) error {
	f.markReadChats = append(f.markReadChats, chatID)
	return f.markReadErr
}

func (f *fakeAPI) DeleteMessage(_ context.Context, messageID string) error {
	f.deletedMessages = append(f.deletedMessages, messageID)
	return f.deleteErr
}

func (f *fakeAPI) DeleteChat(_ context.Context, chatID string) error {
	f.deletedChats = append(f.deletedChats, chatID)
	return f.deleteErr
}

func (f *fakeAPI) ResolveContext(_ context.Context, ref domain.ContextRef) (*api.ContextDetails, error) {
	if f.resolveContext != nil {
		return f.resolveContext(ref)
	}
	return &api.ContextDetails{ID: ref.ID}, nil
}

// fakeEmitter records every push-channel operation in arrival order as
// "op chatID" strings, so tests can assert ordering invariants.
type fakeEmitter struct {
	mu      sync.Mutex
	ops     []string
	sent    []socket.SendMessagePayload
	sendErr error
}

func (f *fakeEmitter) record(op, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op+" "+id)
}

func (f *fakeEmitter) JoinChat(chatID string)  { f.record("join", chatID) }
func (f *fakeEmitter) LeaveChat(chatID string) { f.record("leave", chatID) }
func (f *fakeEmitter) StartTyping(chatID string) {
	f.record("typing:start", chatID)
}
func (f *fakeEmitter) StopTyping(chatID string) {
	f.record("typing:stop", chatID)
}
func (f *fakeEmitter) MarkMessagesRead(chatID string) {
	f.record("read", chatID)
}

func (f *fakeEmitter) SendMessage(p socket.SendMessagePayload) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "send "+p.ChatID)
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakeEmitter) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ops))
	copy(out, f.ops)
	return out
}

// fakeChatStore is an in-memory ChatStore that records unread writes.
type fakeChatStore struct {
	mu          sync.Mutex
	chats       []*domain.Chat
	unreadSets  map[string]int
	unreadBumps []string
}

func (s *fakeChatStore) ReplaceAll(_ context.Context, chats []*domain.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append([]*domain.Chat(nil), chats...)
	return nil
}

func (s *fakeChatStore) GetAll(context.Context) ([]*domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Chat(nil), s.chats...), nil
}

func (s *fakeChatStore) SetUnread(_ context.Context, chatID string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unreadSets == nil {
		s.unreadSets = make(map[string]int)
	}
	s.unreadSets[chatID] = count
	return nil
}

func (s *fakeChatStore) IncrementUnread(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unreadBumps = append(s.unreadBumps, chatID)
	return nil
}

func (s *fakeChatStore) Delete(context.Context, string) error { return nil }

// fakeMessageStore is an in-memory MessageStore keyed by chat.
type fakeMessageStore struct {
	mu      sync.Mutex
	history map[string][]*domain.Message
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{history: make(map[string][]*domain.Message)}
}

func (s *fakeMessageStore) CreateOrIgnore(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.history[msg.ChatID] {
		if existing.ID == msg.ID {
			return nil
		}
	}
	s.history[msg.ChatID] = append(s.history[msg.ChatID], msg)
	return nil
}

func (s *fakeMessageStore) ReplaceHistory(_ context.Context, chatID string, msgs []*domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[chatID] = append([]*domain.Message(nil), msgs...)
	return nil
}

func (s *fakeMessageStore) GetByChat(_ context.Context, chatID string, _ int) ([]*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Message(nil), s.history[chatID]...), nil
}

func (s *fakeMessageStore) Delete(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for chatID, msgs := range s.history {
		for i, msg := range msgs {
			if msg.ID == messageID {
				s.history[chatID] = append(msgs[:i], msgs[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (s *fakeMessageStore) DeleteByChat(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, chatID)
	return nil
}
