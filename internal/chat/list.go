package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/api"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
)

const storeWriteTimeout = 5 * time.Second

// ListCache holds the chat list as last fetched from the API, patched
// incrementally by push events. It never holds two entries with the same
// identifier; a push for an unknown chat is reported to the caller, which
// must trigger a full refresh instead of synthesizing metadata.
type ListCache struct {
	log   zerolog.Logger
	api   API
	store ChatStore // optional

	mu     sync.RWMutex
	chats  []*domain.Chat
	index  map[string]*domain.Chat
	filter api.ChatFilter
}

func NewListCache(a API, store ChatStore, log zerolog.Logger) *ListCache {
	return &ListCache{
		log:   log,
		api:   a,
		store: store,
		index: make(map[string]*domain.Chat),
	}
}

// Refresh replaces the cached list with a REST snapshot. When the API is
// unreachable the last persisted snapshot is served instead, keeping the
// list usable in degraded mode.
func (l *ListCache) Refresh(ctx context.Context, filter api.ChatFilter) error {
	chats, err := l.api.ListChats(ctx, filter)
	if err != nil {
		if cached, cerr := l.loadCached(ctx); cerr == nil && cached != nil {
			l.log.Warn().Err(err).Msg("chat list fetch failed, serving cached snapshot")
			l.replace(cached, filter)
			return nil
		}
		return fmt.Errorf("refresh chat list: %w", err)
	}

	l.replace(chats, filter)

	if l.store != nil {
		if err := l.store.ReplaceAll(ctx, chats); err != nil {
			l.log.Warn().Err(err).Msg("failed to persist chat list snapshot")
		}
	}
	return nil
}

func (l *ListCache) loadCached(ctx context.Context) ([]*domain.Chat, error) {
	if l.store == nil {
		return nil, nil
	}
	return l.store.GetAll(ctx)
}

func (l *ListCache) replace(chats []*domain.Chat, filter api.ChatFilter) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.chats = l.chats[:0]
	l.index = make(map[string]*domain.Chat, len(chats))
	for _, chat := range chats {
		if _, dup := l.index[chat.ID]; dup {
			continue
		}
		l.chats = append(l.chats, chat)
		l.index[chat.ID] = chat
	}
	l.filter = filter
}

// Filter returns the filter used by the last refresh.
func (l *ListCache) Filter() api.ChatFilter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.filter
}

// ApplyIncoming bumps the unread counter and last-message preview for the
// message's chat. The caller routes only messages for non-active chats
// here; the Conversation owns the active chat's reset. Returns false when
// the chat is not cached, in which case a full refresh is required.
func (l *ListCache) ApplyIncoming(msg *domain.Message) bool {
	l.mu.Lock()
	chat, ok := l.index[msg.ChatID]
	if !ok {
		l.mu.Unlock()
		return false
	}
	chat.UnreadCount++
	chat.LastMessage = msg.Text
	at := msg.CreatedAt
	chat.LastMessageAt = &at
	l.mu.Unlock()

	if l.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
		defer cancel()
		if err := l.store.IncrementUnread(ctx, msg.ChatID); err != nil {
			l.log.Warn().Err(err).Str("chat", msg.ChatID).Msg("failed to persist unread bump")
		}
	}
	return true
}

// MarkRead zeroes the unread counter. Idempotent.
func (l *ListCache) MarkRead(chatID string) {
	l.mu.Lock()
	chat, ok := l.index[chatID]
	if ok {
		chat.UnreadCount = 0
	}
	l.mu.Unlock()

	if ok && l.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
		defer cancel()
		if err := l.store.SetUnread(ctx, chatID, 0); err != nil {
			l.log.Warn().Err(err).Str("chat", chatID).Msg("failed to persist unread reset")
		}
	}
}

// Unread returns the counter for a chat, 0 when unknown.
func (l *ListCache) Unread(chatID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if chat, ok := l.index[chatID]; ok {
		return chat.UnreadCount
	}
	return 0
}

func (l *ListCache) Get(chatID string) (*domain.Chat, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	chat, ok := l.index[chatID]
	return chat, ok
}

// Chats returns a snapshot of the cached list in server order.
func (l *ListCache) Chats() []*domain.Chat {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*domain.Chat, len(l.chats))
	copy(out, l.chats)
	return out
}

// Remove drops a chat from the cache (after a delete).
func (l *ListCache) Remove(chatID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.index[chatID]; !ok {
		return
	}
	delete(l.index, chatID)
	for i, chat := range l.chats {
		if chat.ID == chatID {
			l.chats = append(l.chats[:i], l.chats[i+1:]...)
			break
		}
	}
}

// MergeStaff builds the internal-tab roster: each staff member either maps
// to their existing direct chat or becomes a potential direct target.
func (l *ListCache) MergeStaff(staff []domain.Participant, viewerID string) []domain.Target {
	l.mu.RLock()
	defer l.mu.RUnlock()

	targets := make([]domain.Target, 0, len(staff))
	for _, member := range staff {
		if member.ID == viewerID {
			continue
		}
		if chat := l.directChatWith(member.ID); chat != nil {
			targets = append(targets, domain.ExistingChat{Chat: chat})
			continue
		}
		targets = append(targets, domain.PotentialDirect{
			Peer: member,
			Kind: domain.ChatKindInternal,
		})
	}
	return targets
}

func (l *ListCache) directChatWith(participantID string) *domain.Chat {
	for _, chat := range l.chats {
		if chat.IsGroup {
			continue
		}
		for _, p := range chat.Participants {
			if p.ID == participantID {
				return chat
			}
		}
	}
	return nil
}

// MergeTeams builds the teams-tab roster from active teams: each team
// either maps to its existing group chat (matched by group name) or
// becomes a potential group target.
func (l *ListCache) MergeTeams(teams []domain.Team) []domain.Target {
	l.mu.RLock()
	defer l.mu.RUnlock()

	targets := make([]domain.Target, 0, len(teams))
	for _, team := range teams {
		if !team.IsActive() {
			continue
		}
		if chat := l.groupChatNamed(team.Name); chat != nil {
			targets = append(targets, domain.ExistingChat{Chat: chat})
			continue
		}
		targets = append(targets, domain.PotentialGroup{Team: team})
	}
	return targets
}

func (l *ListCache) groupChatNamed(name string) *domain.Chat {
	for _, chat := range l.chats {
		if chat.IsGroup && chat.GroupName == name {
			return chat
		}
	}
	return nil
}
