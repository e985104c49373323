package relay

// Event names, shared by both directions of the wire protocol.
const (
	// Client -> relay.
	EventJoin             = "join"
	EventID               = "id"
	EventLobbyPlayerCount = "lobbyPlayerCount"
	EventSetLobbySetting  = "setLobbySetting"
	EventSignal           = "signal"
	EventLeave            = "leave"

	// Relay -> client. EventJoin and EventSignal are reused.
	EventSetIDs        = "setIds"
	EventLobbySettings = "lobbySettings"
	EventSetID         = "setId"
	EventLobbySetting  = "lobbySetting"
	EventDeleteID      = "deleteId"
)

// RoomCodeMenu is the reserved room code clients report while no game lobby
// is active. Player-count reports for it are ignored.
const RoomCodeMenu = "MENU"

// Message is one wire event: a name plus positional arguments, serialized as
// a single JSON text frame.
type Message struct {
	Event string `json:"event"`
	Args  []any  `json:"args"`
}

// signalBody is the object delivered to a signal's destination session.
type signalBody struct {
	Data any    `json:"data"`
	From string `json:"from"`
}

func joinMsg(sessionID string, playerID int) Message {
	return Message{Event: EventJoin, Args: []any{sessionID, playerID}}
}

func setIDsMsg(ids map[string]int) Message {
	return Message{Event: EventSetIDs, Args: []any{ids}}
}

func lobbySettingsMsg(settings map[string]any) Message {
	return Message{Event: EventLobbySettings, Args: []any{settings}}
}

func setIDMsg(sessionID string, playerID int) Message {
	return Message{Event: EventSetID, Args: []any{sessionID, playerID}}
}

// lobbySettingEchoMsg confirms an applied setting to its originator.
func lobbySettingEchoMsg(name string, value any) Message {
	return Message{Event: EventLobbySetting, Args: []any{name, value}}
}

// lobbySettingMsg announces an applied setting to the rest of the room.
func lobbySettingMsg(sessionID, name string, value any) Message {
	return Message{Event: EventLobbySetting, Args: []any{sessionID, name, value}}
}

func deleteIDMsg(sessionID string, playerID int) Message {
	return Message{Event: EventDeleteID, Args: []any{sessionID, playerID}}
}

func signalMsg(from string, data any) Message {
	return Message{Event: EventSignal, Args: []any{signalBody{Data: data, From: from}}}
}
