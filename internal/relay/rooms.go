package relay

// defaultLobbySettings is the blob every room starts from. Its keys are also
// the complete set of valid setting names; mutations to any other name are
// rejected.
var defaultLobbySettings = map[string]any{
	"maxDistance":          5.32,
	"haunting":             false,
	"commsSabotage":        false,
	"hearImpostorsInVents": false,
	"impostorVentChat":     false,
	"deadOnly":             false,
	"walls":                false,
}

// DefaultLobbySettings returns a fresh copy of the settings a new room
// starts with.
func DefaultLobbySettings() map[string]any {
	out := make(map[string]any, len(defaultLobbySettings))
	for k, v := range defaultLobbySettings {
		out[k] = v
	}
	return out
}

func validSettingName(name string) bool {
	_, ok := defaultLobbySettings[name]
	return ok
}

type room struct {
	// members holds session IDs in join order, so membership snapshots and
	// broadcasts iterate deterministically.
	members  []string
	settings map[string]any
}

// roomDirectory owns room records. A room record exists iff at least one
// session is joined; teardown drops the settings blob and the reported
// player count with it. Reported counts live in an independent map because
// player-count reports and joins arrive on independent channels with no
// enforced order: a report may legitimately precede the room's first join.
type roomDirectory struct {
	rooms    map[string]*room
	reported map[string]int
}

func newRoomDirectory() *roomDirectory {
	return &roomDirectory{
		rooms:    make(map[string]*room),
		reported: make(map[string]int),
	}
}

// Join adds a session to a room, creating the room on first join. It returns
// the other members (snapshot taken after the add, so racing duplicate joins
// observe a consistent membership) and whether the room was created.
func (d *roomDirectory) Join(code, sessionID string) (others []string, created bool) {
	rm := d.rooms[code]
	if rm == nil {
		rm = &room{settings: DefaultLobbySettings()}
		d.rooms[code] = rm
		created = true
	}

	member := false
	for _, id := range rm.members {
		if id == sessionID {
			member = true
			break
		}
	}
	if !member {
		rm.members = append(rm.members, sessionID)
	}

	others = make([]string, 0, len(rm.members)-1)
	for _, id := range rm.members {
		if id != sessionID {
			others = append(others, id)
		}
	}
	return others, created
}

// Leave removes a session from a room. When the last member leaves, the room
// record and its reported player count are dropped entirely; the code is
// immediately reusable and starts over from defaults. Leaving an unknown
// room, or a room the session is not in, is a no-op.
func (d *roomDirectory) Leave(code, sessionID string) (destroyed bool) {
	rm := d.rooms[code]
	if rm == nil {
		return false
	}
	for i, id := range rm.members {
		if id == sessionID {
			rm.members = append(rm.members[:i], rm.members[i+1:]...)
			break
		}
	}
	if len(rm.members) > 0 {
		return false
	}
	delete(d.rooms, code)
	delete(d.reported, code)
	return true
}

// ReportPlayerCount records the room's in-game roster size as reported by a
// client. It returns false when the value is unchanged so callers can skip
// redundant downstream work.
func (d *roomDirectory) ReportPlayerCount(code string, count int) (changed bool) {
	if prev, ok := d.reported[code]; ok && prev == count {
		return false
	}
	d.reported[code] = count
	return true
}

func (d *roomDirectory) ReportedPlayerCount(code string) (int, bool) {
	count, ok := d.reported[code]
	return count, ok
}

// Settings returns the room's live settings blob, or a fresh default blob
// for a room that does not exist.
func (d *roomDirectory) Settings(code string) map[string]any {
	if rm := d.rooms[code]; rm != nil {
		return rm.settings
	}
	return DefaultLobbySettings()
}

// Members returns the room's membership in join order, or nil.
func (d *roomDirectory) Members(code string) []string {
	if rm := d.rooms[code]; rm != nil {
		return rm.members
	}
	return nil
}

func (d *roomDirectory) RoomCount() int {
	return len(d.rooms)
}
