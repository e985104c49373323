package relay

// identityRegistry maps live sessions to their game-assigned player identity.
// Identities are client-chosen and deliberately not checked for uniqueness
// within a room; duplicates are the game's problem, not the relay's.
type identityRegistry struct {
	ids map[string]int
}

func newIdentityRegistry() *identityRegistry {
	return &identityRegistry{ids: make(map[string]int)}
}

// Set records or overwrites the identity for a session. Last write wins.
func (r *identityRegistry) Set(sessionID string, playerID int) {
	r.ids[sessionID] = playerID
}

func (r *identityRegistry) Get(sessionID string) (int, bool) {
	id, ok := r.ids[sessionID]
	return id, ok
}

// Remove drops the mapping. Removing an unknown session is a no-op.
func (r *identityRegistry) Remove(sessionID string) {
	delete(r.ids, sessionID)
}
