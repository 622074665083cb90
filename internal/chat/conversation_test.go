package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/api"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
)

var self = domain.Participant{ID: "me", Name: "Admin User"}

func newTestConversation(a *fakeAPI, emit *fakeEmitter) (*Conversation, *ListCache, *TypingTracker) {
	log := zerolog.Nop()
	list := NewListCache(a, nil, log)
	typing := NewTypingTracker(emit, time.Hour) // never expires during a test
	conv := NewConversation(a, emit, list, typing, nil, self, log)
	return conv, list, typing
}

func existing(id string) domain.Target {
	return domain.ExistingChat{Chat: &domain.Chat{ID: id}}
}

func TestOpen_JoinsFetchesAndMarksRead(t *testing.T) {
	a := &fakeAPI{
		chatMessages: func(chatID string) ([]*domain.Message, error) {
			return []*domain.Message{{ID: "m1", ChatID: chatID, Text: "hi"}}, nil
		},
	}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	opened, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)
	assert.Equal(t, "c1", opened.ID)

	assert.Equal(t, []string{"join c1", "read c1"}, emit.Ops())
	assert.Equal(t, []string{"c1"}, a.markReadChats)

	msgs := conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ID)
}

func TestOpen_LeavesPreviousRoomBeforeJoining(t *testing.T) {
	a := &fakeAPI{}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	_, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)
	_, err = conv.Open(context.Background(), existing("c2"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"join c1", "read c1",
		"leave c1", "join c2", "read c2",
	}, emit.Ops())
}

func TestOpen_SameChatIsNoop(t *testing.T) {
	a := &fakeAPI{}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	_, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)
	_, err = conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)

	assert.Equal(t, []string{"join c1", "read c1"}, emit.Ops(), "re-opening must not rejoin")
	assert.Equal(t, 1, a.historyCalls, "re-opening must not refetch history")
}

func TestOpen_MaterializesPotentialDirectBeforeJoining(t *testing.T) {
	var created api.CreateDirectChatRequest
	a := &fakeAPI{
		createDirect: func(req api.CreateDirectChatRequest) (*domain.Chat, error) {
			created = req
			return &domain.Chat{ID: "c-new"}, nil
		},
	}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	target := domain.PotentialDirect{
		Peer: domain.Participant{ID: "6655", Name: "Alice"},
		Kind: domain.ChatKindInternal,
	}
	opened, err := conv.Open(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, "6655", created.ParticipantID)
	assert.Equal(t, domain.ChatKindInternal, created.Kind)
	assert.Equal(t, "c-new", opened.ID)
	// The room signal carries the server-issued id, never the
	// placeholder target id.
	assert.Equal(t, []string{"join c-new", "read c-new"}, emit.Ops())
}

func TestOpen_MaterializesPotentialGroupFromTeam(t *testing.T) {
	var created api.CreateGroupChatRequest
	a := &fakeAPI{
		createGroup: func(req api.CreateGroupChatRequest) (*domain.Chat, error) {
			created = req
			return &domain.Chat{ID: "c-group", IsGroup: true, GroupName: req.GroupName}, nil
		},
	}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	target := domain.PotentialGroup{Team: domain.Team{
		ID:   "t1",
		Name: "Operations",
		Members: []domain.Participant{
			{ID: "u1"}, {ID: "u2"},
		},
	}}
	opened, err := conv.Open(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, "Operations", created.GroupName)
	assert.Equal(t, []string{"u1", "u2"}, created.ParticipantIDs)
	assert.Equal(t, "c-group", opened.ID)
}

func TestAppendIncoming_RoutesByChat(t *testing.T) {
	a := &fakeAPI{}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	_, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)

	assert.True(t, conv.AppendIncoming(&domain.Message{ID: "m1", ChatID: "c1"}))
	assert.False(t, conv.AppendIncoming(&domain.Message{ID: "m2", ChatID: "other"}),
		"messages for other chats are not buffered")
	assert.Len(t, conv.Messages(), 1)
}

func TestAppendIncoming_DropsDuplicatePush(t *testing.T) {
	a := &fakeAPI{}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	_, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)

	msg := &domain.Message{ID: "m1", ChatID: "c1", Text: "hi"}
	assert.True(t, conv.AppendIncoming(msg))
	assert.True(t, conv.AppendIncoming(msg), "duplicate is swallowed, not re-buffered")
	assert.Len(t, conv.Messages(), 1)
}

func TestAppendIncoming_NothingOpen(t *testing.T) {
	conv, _, _ := newTestConversation(&fakeAPI{}, &fakeEmitter{})
	assert.False(t, conv.AppendIncoming(&domain.Message{ID: "m1", ChatID: "c1"}))
}

func TestSend_ValidatesBeforeAnyNetwork(t *testing.T) {
	a := &fakeAPI{}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	_, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)

	assert.ErrorIs(t, conv.Send("   \t  ", nil), ErrEmptyMessage)
	for _, op := range emit.Ops() {
		assert.NotContains(t, op, "send", "a rejected message must not reach the wire")
	}
}

func TestSend_RequiresOpenChat(t *testing.T) {
	conv, _, _ := newTestConversation(&fakeAPI{}, &fakeEmitter{})
	assert.ErrorIs(t, conv.Send("hello", nil), ErrNoActiveChat)
}

func TestSend_NoLocalEcho(t *testing.T) {
	a := &fakeAPI{}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	_, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)

	require.NoError(t, conv.Send("hello", nil))

	require.Len(t, emit.sent, 1)
	assert.Equal(t, "c1", emit.sent[0].ChatID)
	assert.Equal(t, "hello", emit.sent[0].Text)
	assert.Empty(t, conv.Messages(), "the buffer fills from the push channel only")
}

func TestSend_StopsTypingImmediately(t *testing.T) {
	a := &fakeAPI{}
	emit := &fakeEmitter{}
	conv, _, typing := newTestConversation(a, emit)

	_, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)

	typing.Keystroke("c1")
	require.NoError(t, conv.Send("hello", nil))

	assert.Equal(t, []string{
		"join c1", "read c1",
		"typing:start c1", "typing:stop c1", "send c1",
	}, emit.Ops(), "stop must precede the send, not wait for the debounce window")
}

func TestSend_AttachesContext(t *testing.T) {
	a := &fakeAPI{}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	_, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)

	ref := &domain.ContextRef{Type: domain.ContextTypeOrder, ID: "order-42"}
	require.NoError(t, conv.Send("about this order", ref))

	require.Len(t, emit.sent, 1)
	assert.Equal(t, domain.ContextTypeOrder, emit.sent[0].ContextType)
	assert.Equal(t, "order-42", emit.sent[0].ContextID)
}

func TestMarkSeenBy_AdvancesOwnMessagesOnly(t *testing.T) {
	a := &fakeAPI{}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	_, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)

	conv.AppendIncoming(&domain.Message{ID: "m1", ChatID: "c1", SenderID: self.ID, Status: domain.StatusSent})
	conv.AppendIncoming(&domain.Message{ID: "m2", ChatID: "c1", SenderID: "peer", Status: domain.StatusSent})

	conv.MarkSeenBy("c1", "peer")

	msgs := conv.Messages()
	assert.Equal(t, domain.StatusSeen, msgs[0].Status, "own message advances")
	assert.Equal(t, domain.StatusSent, msgs[1].Status, "peer message is untouched")
}

func TestMarkSeenBy_IgnoresOwnReadEcho(t *testing.T) {
	a := &fakeAPI{}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	_, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)

	conv.AppendIncoming(&domain.Message{ID: "m1", ChatID: "c1", SenderID: self.ID, Status: domain.StatusSent})
	conv.MarkSeenBy("c1", self.ID)

	assert.Equal(t, domain.StatusSent, conv.Messages()[0].Status)
}

func TestApplyStatus_IsMonotonic(t *testing.T) {
	a := &fakeAPI{}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	_, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)

	conv.AppendIncoming(&domain.Message{ID: "m1", ChatID: "c1", SenderID: self.ID, Status: domain.StatusSeen})
	conv.ApplyStatus("m1", domain.StatusDelivered)

	assert.Equal(t, domain.StatusSeen, conv.Messages()[0].Status, "a late delivered push cannot regress seen")
}

func TestOpen_ServesCachedHistoryWhenDegraded(t *testing.T) {
	a := &fakeAPI{
		chatMessages: func(string) ([]*domain.Message, error) {
			return nil, errors.New("connection refused")
		},
	}
	emit := &fakeEmitter{}
	store := newFakeMessageStore()
	require.NoError(t, store.ReplaceHistory(context.Background(), "c1",
		[]*domain.Message{{ID: "m1", ChatID: "c1", Text: "cached"}}))

	log := zerolog.Nop()
	list := NewListCache(a, nil, log)
	typing := NewTypingTracker(emit, time.Hour)
	conv := NewConversation(a, emit, list, typing, store, self, log)

	opened, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err, "a reachable cache keeps the conversation readable")
	assert.Equal(t, "c1", opened.ID)

	msgs := conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ID)
}

func TestOpen_FailsWhenDegradedWithoutCache(t *testing.T) {
	a := &fakeAPI{
		chatMessages: func(string) ([]*domain.Message, error) {
			return nil, errors.New("connection refused")
		},
	}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	_, err := conv.Open(context.Background(), existing("c1"))
	require.Error(t, err)
	assert.Empty(t, conv.Messages())
}

func TestRejoin_ReemitsOpenRoom(t *testing.T) {
	a := &fakeAPI{}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	conv.Rejoin() // nothing open yet
	assert.Empty(t, emit.Ops())

	_, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)

	conv.Rejoin()
	ops := emit.Ops()
	assert.Equal(t, "join c1", ops[len(ops)-1],
		"the open room is re-subscribed after a reconnect")
}

func TestOpen_DiscardsStaleHistory(t *testing.T) {
	a := &fakeAPI{}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	// While c1's history is in flight the user opens c2. The late page for
	// c1 must not land in c2's buffer.
	a.chatMessages = func(chatID string) ([]*domain.Message, error) {
		if chatID == "c1" {
			a.chatMessages = func(chatID string) ([]*domain.Message, error) {
				return []*domain.Message{{ID: "m-c2", ChatID: chatID}}, nil
			}
			_, err := conv.Open(context.Background(), existing("c2"))
			require.NoError(t, err)
			return []*domain.Message{{ID: "m-c1", ChatID: "c1"}}, nil
		}
		return nil, nil
	}

	_, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)

	require.Equal(t, "c2", conv.Active().ID)
	msgs := conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "m-c2", msgs[0].ID)
}

func TestClose_LeavesRoomAndDropsLatePush(t *testing.T) {
	a := &fakeAPI{}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	_, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)

	conv.Close()
	assert.Nil(t, conv.Active())
	assert.Contains(t, emit.Ops(), "leave c1")

	// A push-back for an in-flight send lands after close.
	assert.False(t, conv.AppendIncoming(&domain.Message{ID: "m1", ChatID: "c1"}))
}

func TestDeleteChat_ClosesOpenConversation(t *testing.T) {
	a := &fakeAPI{}
	emit := &fakeEmitter{}
	conv, list, _ := newTestConversation(a, emit)

	a.listChats = func(api.ChatFilter) ([]*domain.Chat, error) {
		return []*domain.Chat{{ID: "c1"}}, nil
	}
	require.NoError(t, list.Refresh(context.Background(), api.ChatFilter{}))

	_, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)

	require.NoError(t, conv.DeleteChat(context.Background(), "c1"))

	assert.Equal(t, []string{"c1"}, a.deletedChats)
	assert.Nil(t, conv.Active())
	_, ok := list.Get("c1")
	assert.False(t, ok, "deleted chat leaves the list cache")
}

func TestDeleteMessage_RemovesFromBuffer(t *testing.T) {
	a := &fakeAPI{}
	emit := &fakeEmitter{}
	conv, _, _ := newTestConversation(a, emit)

	_, err := conv.Open(context.Background(), existing("c1"))
	require.NoError(t, err)

	conv.AppendIncoming(&domain.Message{ID: "m1", ChatID: "c1"})
	conv.AppendIncoming(&domain.Message{ID: "m2", ChatID: "c1"})

	require.NoError(t, conv.DeleteMessage(context.Background(), "m1"))

	assert.Equal(t, []string{"m1"}, a.deletedMessages)
	msgs := conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "m2", msgs[0].ID)
}
