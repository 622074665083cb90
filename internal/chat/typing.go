package chat

import (
	"sort"
	"sync"
	"time"
)

// DefaultTypingTimeout is how long after the last keystroke the stop
// signal fires, and the window within which keystrokes do not re-emit.
const DefaultTypingTimeout = 2 * time.Second

// TypingEmitter is the subset of the connection the tracker needs.
type TypingEmitter interface {
	StartTyping(chatID string)
	StopTyping(chatID string)
}

type localTyping struct {
	active bool
	timer  *time.Timer
}

// TypingTracker tracks who is typing, per chat. Local state drives
// debounced start/stop emissions from an explicit per-chat timer handle,
// cancelled and rescheduled atomically on each keystroke so no timers leak
// across chat switches. Remote state is a per-chat set of peer names with
// no timeout of its own: an entry clears on an explicit stop, on a message
// from that peer, or when the chat's scope is reset.
type TypingTracker struct {
	emit    TypingEmitter
	timeout time.Duration

	mu     sync.Mutex
	local  map[string]*localTyping
	remote map[string]map[string]struct{}

	// onChange, when set, is invoked with the chat id after any remote
	// set mutation. Used to publish typing events; never called with the
	// lock held.
	onChange func(chatID string)
}

func NewTypingTracker(emit TypingEmitter, timeout time.Duration) *TypingTracker {
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	return &TypingTracker{
		emit:    emit,
		timeout: timeout,
		local:   make(map[string]*localTyping),
		remote:  make(map[string]map[string]struct{}),
	}
}

// OnChange registers the remote-set change callback. Call before use.
func (t *TypingTracker) OnChange(fn func(chatID string)) {
	t.onChange = fn
}

// Keystroke records local typing activity. The first keystroke of a burst
// emits typing:start; further keystrokes within the window only reschedule
// the stop timer.
func (t *TypingTracker) Keystroke(chatID string) {
	t.mu.Lock()
	st := t.local[chatID]
	if st == nil {
		st = &localTyping{}
		t.local[chatID] = st
	}
	start := !st.active
	st.active = true
	if st.timer != nil {
		st.timer.Stop()
	}
	st.timer = time.AfterFunc(t.timeout, func() { t.expire(chatID) })
	t.mu.Unlock()

	if start {
		t.emit.StartTyping(chatID)
	}
}

func (t *TypingTracker) expire(chatID string) {
	t.mu.Lock()
	st := t.local[chatID]
	stop := st != nil && st.active
	if stop {
		st.active = false
		st.timer = nil
	}
	t.mu.Unlock()

	if stop {
		t.emit.StopTyping(chatID)
	}
}

// Stop ends local typing immediately, mid-debounce included. Used on send.
func (t *TypingTracker) Stop(chatID string) {
	t.mu.Lock()
	st := t.local[chatID]
	stop := st != nil && st.active
	if st != nil {
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
		st.active = false
	}
	t.mu.Unlock()

	if stop {
		t.emit.StopTyping(chatID)
	}
}

// ApplyRemote records a peer's typing state for a chat.
func (t *TypingTracker) ApplyRemote(chatID, peerName string, isTyping bool) {
	if peerName == "" {
		return
	}
	t.mu.Lock()
	set := t.remote[chatID]
	if isTyping {
		if set == nil {
			set = make(map[string]struct{})
			t.remote[chatID] = set
		}
		set[peerName] = struct{}{}
	} else if set != nil {
		delete(set, peerName)
	}
	t.mu.Unlock()

	t.changed(chatID)
}

// ClearPeer drops a peer's indicator, used when their message arrives so a
// lost stop signal cannot leave the indicator stale.
func (t *TypingTracker) ClearPeer(chatID, peerName string) {
	t.mu.Lock()
	set := t.remote[chatID]
	_, had := set[peerName]
	if had {
		delete(set, peerName)
	}
	t.mu.Unlock()

	if had {
		t.changed(chatID)
	}
}

// Peers returns the sorted display names currently typing in a chat.
func (t *TypingTracker) Peers(chatID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.remote[chatID]
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears all state for a chat on close or switch: the local timer is
// cancelled (with a stop emission if typing was active) and the remote set
// is dropped.
func (t *TypingTracker) Reset(chatID string) {
	t.mu.Lock()
	st := t.local[chatID]
	stop := st != nil && st.active
	if st != nil {
		if st.timer != nil {
			st.timer.Stop()
		}
		delete(t.local, chatID)
	}
	delete(t.remote, chatID)
	t.mu.Unlock()

	if stop {
		t.emit.StopTyping(chatID)
	}
	t.changed(chatID)
}

func (t *TypingTracker) changed(chatID string) {
	if t.onChange != nil {
		t.onChange(chatID)
	}
}
