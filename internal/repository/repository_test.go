package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ChatModel{}, &MessageModel{}))
	return db
}

func TestChatRepository_ReplaceAll(t *testing.T) {
	repo := NewChatRepository(testDB(t))
	ctx := context.Background()

	at := time.Now().Truncate(time.Second)
	first := []*domain.Chat{
		{
			ID:   "c1",
			Kind: domain.ChatKindInternal,
			Participants: []domain.Participant{
				{ID: "u1", Name: "Alice"},
			},
			LastMessage:   "hello",
			LastMessageAt: &at,
			UnreadCount:   2,
		},
		{ID: "c2", Kind: domain.ChatKindExternal},
	}
	require.NoError(t, repo.ReplaceAll(ctx, first))

	got, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// c1 has the newer last_message_at and sorts first.
	assert.Equal(t, "c1", got[0].ID)
	assert.Equal(t, 2, got[0].UnreadCount)
	require.Len(t, got[0].Participants, 1)
	assert.Equal(t, "Alice", got[0].Participants[0].Name)

	// A later snapshot without c2 removes it.
	require.NoError(t, repo.ReplaceAll(ctx, first[:1]))
	got, err = repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)
}

func TestChatRepository_ReplaceAllEmptyClears(t *testing.T) {
	repo := NewChatRepository(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.ReplaceAll(ctx, []*domain.Chat{{ID: "c1"}}))
	require.NoError(t, repo.ReplaceAll(ctx, nil))

	got, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestChatRepository_UnreadCounters(t *testing.T) {
	repo := NewChatRepository(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.ReplaceAll(ctx, []*domain.Chat{{ID: "c1", UnreadCount: 1}}))

	require.NoError(t, repo.IncrementUnread(ctx, "c1"))
	require.NoError(t, repo.IncrementUnread(ctx, "c1"))

	got, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, got[0].UnreadCount)

	require.NoError(t, repo.SetUnread(ctx, "c1", 0))
	got, err = repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, got[0].UnreadCount)
}

func TestMessageRepository_CreateOrIgnore(t *testing.T) {
	repo := NewMessageRepository(testDB(t))
	ctx := context.Background()

	msg := &domain.Message{
		ID:        "m1",
		ChatID:    "c1",
		SenderID:  "u1",
		Text:      "hello",
		Status:    domain.StatusSent,
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.CreateOrIgnore(ctx, msg))

	// A replayed push with different content does not clobber the row.
	replay := *msg
	replay.Text = "tampered"
	require.NoError(t, repo.CreateOrIgnore(ctx, &replay))

	got, err := repo.GetByChat(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Text)
}

func TestMessageRepository_ReplaceHistoryAndOrder(t *testing.T) {
	repo := NewMessageRepository(testDB(t))
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	history := []*domain.Message{
		{ID: "m1", ChatID: "c1", Text: "first", CreatedAt: now.Add(-2 * time.Minute)},
		{ID: "m2", ChatID: "c1", Text: "second", CreatedAt: now.Add(-time.Minute)},
		{ID: "m3", ChatID: "c1", Text: "third", CreatedAt: now},
	}
	require.NoError(t, repo.ReplaceHistory(ctx, "c1", history))

	got, err := repo.GetByChat(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Text, "chronological order")
	assert.Equal(t, "third", got[2].Text)

	// Limit keeps the newest rows.
	got, err = repo.GetByChat(ctx, "c1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Text)
	assert.Equal(t, "third", got[1].Text)

	// A re-fetched page fully replaces the cached history.
	require.NoError(t, repo.ReplaceHistory(ctx, "c1", history[2:]))
	got, err = repo.GetByChat(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestMessageRepository_Deletes(t *testing.T) {
	repo := NewMessageRepository(testDB(t))
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repo.ReplaceHistory(ctx, "c1", []*domain.Message{
		{ID: "m1", ChatID: "c1", CreatedAt: now},
		{ID: "m2", ChatID: "c1", CreatedAt: now},
	}))
	require.NoError(t, repo.ReplaceHistory(ctx, "c2", []*domain.Message{
		{ID: "m3", ChatID: "c2", CreatedAt: now},
	}))

	require.NoError(t, repo.Delete(ctx, "m1"))
	got, err := repo.GetByChat(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, repo.DeleteByChat(ctx, "c1"))
	got, err = repo.GetByChat(ctx, "c1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.GetByChat(ctx, "c2", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1, "other chats are untouched")
}

func TestModelRoundTrip(t *testing.T) {
	at := time.Now().Truncate(time.Second)
	chat := &domain.Chat{
		ID:   "c1",
		Kind: domain.ChatKindExternal,
		Participants: []domain.Participant{
			{ID: "u1", Name: "Alice", Role: "customer"},
		},
		IsGroup:       false,
		ContextType:   "order",
		ContextID:     domain.ContextID("order-42"),
		LastMessage:   "hi",
		LastMessageAt: &at,
		UnreadCount:   1,
	}

	back := ChatModelToDomain(ChatDomainToModel(chat))
	assert.Equal(t, chat.ID, back.ID)
	assert.Equal(t, chat.Kind, back.Kind)
	assert.Equal(t, chat.Participants, back.Participants)
	assert.Equal(t, chat.ContextID, back.ContextID)
	require.NotNil(t, back.LastMessageAt)
	assert.True(t, at.Equal(*back.LastMessageAt))

	msg := &domain.Message{
		ID:          "m1",
		ChatID:      "c1",
		SenderID:    "u1",
		Text:        "hello",
		Attachments: []string{"https://cdn.example.com/a.png"},
		ReadBy:      []string{"u2"},
		Status:      domain.StatusDelivered,
		CreatedAt:   at,
	}
	backMsg := MessageModelToDomain(MessageDomainToModel(msg))
	assert.Equal(t, msg.Attachments, backMsg.Attachments)
	assert.Equal(t, msg.ReadBy, backMsg.ReadBy)
	assert.Equal(t, msg.Status, backMsg.Status)
}
