package signaling

import (
	"encoding/json"
	"testing"
)

func TestParseClientMessage_Join(t *testing.T) {
	msg, err := parseClientMessage([]byte(`{"event":"join","args":["ABCD",3]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Event != "join" {
		t.Fatalf("event = %q, want join", msg.Event)
	}

	code, playerID, err := decodeJoinArgs(msg.Args)
	if err != nil {
		t.Fatalf("decode join args: %v", err)
	}
	if code != "ABCD" || playerID != 3 {
		t.Fatalf("decoded (%q, %d), want (ABCD, 3)", code, playerID)
	}
}

func TestParseClientMessage_DisallowUnknownFields(t *testing.T) {
	if _, err := parseClientMessage([]byte(`{"event":"leave","args":[],"unexpected":true}`)); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseClientMessage_TrailingData(t *testing.T) {
	if _, err := parseClientMessage([]byte(`{"event":"leave","args":[]}{"event":"leave"}`)); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseClientMessage_MissingEvent(t *testing.T) {
	if _, err := parseClientMessage([]byte(`{"args":[1]}`)); err == nil {
		t.Fatal("expected error")
	}
}

func TestDecodeJoinArgs_Invalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  string
	}{
		{"too few args", `{"event":"join","args":["ABCD"]}`},
		{"code not a string", `{"event":"join","args":[7,3]}`},
		{"player id not a number", `{"event":"join","args":["ABCD","3"]}`},
		{"fractional player id", `{"event":"join","args":["ABCD",3.5]}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := parseClientMessage([]byte(tc.raw))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if _, _, err := decodeJoinArgs(msg.Args); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDecodeJoinArgs_EmptyCodeIsWellTyped(t *testing.T) {
	// Room codes are opaque strings without format validation, so the empty
	// string names a room like any other.
	msg, err := parseClientMessage([]byte(`{"event":"join","args":["",3]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	code, playerID, err := decodeJoinArgs(msg.Args)
	if err != nil {
		t.Fatalf("decode join args: %v", err)
	}
	if code != "" || playerID != 3 {
		t.Fatalf("decoded (%q, %d), want (\"\", 3)", code, playerID)
	}
}

func TestDecodeSignalArgs(t *testing.T) {
	msg, err := parseClientMessage([]byte(`{"event":"signal","args":[{"to":"abc","data":{"sdp":"v=0"}}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	to, data, err := decodeSignalArgs(msg.Args)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if to != "abc" {
		t.Fatalf("to = %q, want abc", to)
	}
	body, ok := data.(map[string]any)
	if !ok || body["sdp"] != "v=0" {
		t.Fatalf("data = %#v", data)
	}
}

func TestDecodeSignalArgs_NullAndMissingFields(t *testing.T) {
	// Null payloads and absent destinations decode to zero values; the relay
	// rejects them as malformed.
	for _, raw := range []string{
		`[{"to":"abc","data":null}]`,
		`[{"to":"abc"}]`,
		`[{"data":"x"}]`,
	} {
		var args []json.RawMessage
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		to, data, err := decodeSignalArgs(args)
		if err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if to != "" && data != nil {
			t.Fatalf("decode %s: expected a zero value, got (%q, %#v)", raw, to, data)
		}
	}
}

func TestDecodeSignalArgs_FalsyPayloadsDecode(t *testing.T) {
	// Content-free payloads decode without error here; the relay treats
	// them as malformed when the signal is applied.
	for _, tc := range []struct {
		raw  string
		want any
	}{
		{`[{"to":"abc","data":""}]`, ""},
		{`[{"to":"abc","data":0}]`, float64(0)},
		{`[{"to":"abc","data":false}]`, false},
	} {
		var args []json.RawMessage
		if err := json.Unmarshal([]byte(tc.raw), &args); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.raw, err)
		}
		to, data, err := decodeSignalArgs(args)
		if err != nil {
			t.Fatalf("decode %s: %v", tc.raw, err)
		}
		if to != "abc" || data != tc.want {
			t.Fatalf("decode %s: got (%q, %#v)", tc.raw, to, data)
		}
	}
}

func TestDecodeSignalArgs_UnknownField(t *testing.T) {
	var args []json.RawMessage
	if err := json.Unmarshal([]byte(`[{"to":"abc","data":"x","extra":1}]`), &args); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, _, err := decodeSignalArgs(args); err == nil {
		t.Fatal("expected error")
	}
}

func TestDecodeSetLobbySettingArgs(t *testing.T) {
	var args []json.RawMessage
	if err := json.Unmarshal([]byte(`["maxDistance",2.5]`), &args); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	name, value, err := decodeSetLobbySettingArgs(args)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if name != "maxDistance" || value != 2.5 {
		t.Fatalf("decoded (%q, %v)", name, value)
	}
}
