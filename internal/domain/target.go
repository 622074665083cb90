package domain

// Target is an entry the user can select in the chat list: a real chat, or
// a placeholder for an allowed but not-yet-created conversation. Potential
// targets carry client-local identifiers only and are never joinable until
// materialized into a real chat.
type Target interface {
	TargetID() string
	isTarget()
}

// ExistingChat wraps an already-created conversation.
type ExistingChat struct {
	Chat *Chat
}

func (t ExistingChat) TargetID() string { return t.Chat.ID }
func (ExistingChat) isTarget()          {}

// PotentialDirect is a staff member the viewer has no conversation with yet.
type PotentialDirect struct {
	Peer    Participant
	Kind    ChatKind
	Context *ContextRef
}

func (t PotentialDirect) TargetID() string { return "user-" + t.Peer.ID }
func (PotentialDirect) isTarget()          {}

// PotentialGroup is a team without a backing group chat yet.
type PotentialGroup struct {
	Team Team
}

func (t PotentialGroup) TargetID() string { return "team-" + t.Team.ID }
func (PotentialGroup) isTarget()          {}
