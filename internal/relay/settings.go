package relay

// settingsSync gates mutations of a room's settings blob.
//
// The authority rule: a mutation is accepted only while the room's last
// reported player count is <= 1. A lone reporter is taken as "the host, with
// no conflicting reporter yet". This is a heuristic, not an identity claim —
// a second session reporting count 1 would also pass the gate — but the
// protocol carries no stronger authority signal, so the ambiguity stands.
//
// Rejections are silent on purpose: callers cannot distinguish "rejected"
// from "pending" and are expected to resync via a fresh join, which avoids
// feedback loops between desynchronized clients.
type settingsSync struct {
	dir *roomDirectory
}

// Apply stores the value if the mutation passes the authority gate. It
// reports whether the value was applied; notifications are the lifecycle
// manager's job.
func (s *settingsSync) Apply(code, name string, value any) bool {
	rm := s.dir.rooms[code]
	if rm == nil {
		return false
	}
	count, ok := s.dir.ReportedPlayerCount(code)
	if !ok || count > 1 {
		return false
	}
	if !validSettingName(name) {
		return false
	}
	rm.settings[name] = value
	return true
}
