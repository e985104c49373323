package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// clientMessage is one inbound wire frame before its arguments are decoded.
// Arguments stay raw so each event can decode its own positional types.
type clientMessage struct {
	Event string            `json:"event"`
	Args  []json.RawMessage `json:"args"`
}

func parseClientMessage(data []byte) (clientMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var msg clientMessage
	if err := dec.Decode(&msg); err != nil {
		return clientMessage{}, err
	}
	if msg.Event == "" {
		return clientMessage{}, fmt.Errorf("message missing event")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return clientMessage{}, fmt.Errorf("unexpected trailing data")
	}
	return msg, nil
}

// decodeJoinArgs checks types only. Room codes are opaque: any string,
// including the empty string, names a room.
func decodeJoinArgs(args []json.RawMessage) (code string, playerID int, err error) {
	if len(args) != 2 {
		return "", 0, fmt.Errorf("join expects 2 arguments, got %d", len(args))
	}
	if err := json.Unmarshal(args[0], &code); err != nil {
		return "", 0, fmt.Errorf("join room code: %w", err)
	}
	if err := json.Unmarshal(args[1], &playerID); err != nil {
		return "", 0, fmt.Errorf("join player id: %w", err)
	}
	return code, playerID, nil
}

func decodeIDArgs(args []json.RawMessage) (playerID int, err error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("id expects 1 argument, got %d", len(args))
	}
	if err := json.Unmarshal(args[0], &playerID); err != nil {
		return 0, fmt.Errorf("id player id: %w", err)
	}
	return playerID, nil
}

func decodeLobbyPlayerCountArgs(args []json.RawMessage) (code string, count int, err error) {
	if len(args) != 2 {
		return "", 0, fmt.Errorf("lobbyPlayerCount expects 2 arguments, got %d", len(args))
	}
	if err := json.Unmarshal(args[0], &code); err != nil {
		return "", 0, fmt.Errorf("lobbyPlayerCount room code: %w", err)
	}
	if err := json.Unmarshal(args[1], &count); err != nil {
		return "", 0, fmt.Errorf("lobbyPlayerCount count: %w", err)
	}
	return code, count, nil
}

func decodeSetLobbySettingArgs(args []json.RawMessage) (name string, value any, err error) {
	if len(args) != 2 {
		return "", nil, fmt.Errorf("setLobbySetting expects 2 arguments, got %d", len(args))
	}
	if err := json.Unmarshal(args[0], &name); err != nil {
		return "", nil, fmt.Errorf("setLobbySetting name: %w", err)
	}
	if err := json.Unmarshal(args[1], &value); err != nil {
		return "", nil, fmt.Errorf("setLobbySetting value: %w", err)
	}
	return name, value, nil
}

// signalRequest is the single object argument of an inbound signal event.
// An empty destination or a content-free data payload is invalid; the
// decoded values surface through the relay's malformed-signal check.
type signalRequest struct {
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

func decodeSignalArgs(args []json.RawMessage) (to string, data any, err error) {
	if len(args) != 1 {
		return "", nil, fmt.Errorf("signal expects 1 argument, got %d", len(args))
	}
	dec := json.NewDecoder(bytes.NewReader(args[0]))
	dec.DisallowUnknownFields()
	var req signalRequest
	if err := dec.Decode(&req); err != nil {
		return "", nil, fmt.Errorf("signal body: %w", err)
	}
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return "", nil, fmt.Errorf("signal data: %w", err)
		}
	}
	return req.To, data, nil
}
