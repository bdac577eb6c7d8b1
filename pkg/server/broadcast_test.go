package server

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/studiolink/studiolink/pkg/events"
	"github.com/studiolink/studiolink/pkg/protocol"
)

func eventMessage(eventType string, eventData map[string]any, intent events.Subscription) *protocol.Message {
	d := map[string]any{
		"eventType":   eventType,
		"eventIntent": uint64(intent),
	}
	if eventData != nil {
		d["eventData"] = eventData
	}
	return protocol.NewMessage(protocol.OpEvent, d)
}

func decodeJSONFrame(t *testing.T, frame fakeFrame) map[string]any {
	t.Helper()
	var msg struct {
		Op uint8          `json:"op"`
		D  map[string]any `json:"d"`
	}
	if err := json.Unmarshal(frame.data, &msg); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if msg.Op != uint8(protocol.OpEvent) {
		t.Fatalf("op = %d, want Event", msg.Op)
	}
	return msg.D
}

func TestBroadcastEventFiltering(t *testing.T) {
	s := newTestServer(t, nil)

	subscribed, subscribedConn := attachSession(s, protocol.EncodingJSON)
	identify(t, s, subscribed, map[string]any{"eventSubscriptions": float64(events.SubscriptionInputs)})

	unsubscribed, unsubscribedConn := attachSession(s, protocol.EncodingJSON)
	identify(t, s, unsubscribed, map[string]any{"eventSubscriptions": float64(events.SubscriptionScenes)})

	_, unidentifiedConn := attachSession(s, protocol.EncodingJSON)

	s.broadcastEvent(events.SubscriptionInputs, 0,
		eventMessage("InputMuteStateChanged", map[string]any{"inputName": "mic"}, events.SubscriptionInputs))

	frames := subscribedConn.Frames()
	if len(frames) != 2 { // Identified reply + event
		t.Fatalf("subscribed session got %d frames, want 2", len(frames))
	}
	d := decodeJSONFrame(t, frames[1])
	if d["eventType"] != "InputMuteStateChanged" {
		t.Errorf("eventType = %v", d["eventType"])
	}
	eventData, _ := protocol.AsObject(d["eventData"])
	if eventData["inputName"] != "mic" {
		t.Errorf("eventData = %v", eventData)
	}

	if got := len(unsubscribedConn.Frames()); got != 1 {
		t.Errorf("unsubscribed session got %d frames, want only the Identified reply", got)
	}
	if got := len(unidentifiedConn.Frames()); got != 0 {
		t.Errorf("unidentified session got %d frames, want 0", got)
	}
}

func TestBroadcastEventRPCVersionFilter(t *testing.T) {
	s := newTestServer(t, nil)
	session, conn := attachSession(s, protocol.EncodingJSON)
	identify(t, s, session, nil)

	s.broadcastEvent(events.SubscriptionGeneral, protocol.RPCVersion+1,
		eventMessage("VendorEvent", nil, events.SubscriptionGeneral))
	if got := len(conn.Frames()); got != 1 {
		t.Errorf("got %d frames, want only the Identified reply", got)
	}

	s.broadcastEvent(events.SubscriptionGeneral, protocol.RPCVersion,
		eventMessage("VendorEvent", nil, events.SubscriptionGeneral))
	if got := len(conn.Frames()); got != 2 {
		t.Errorf("got %d frames, want the version-matched event delivered", got)
	}
}

func TestBroadcastEventEncodesOncePerEncoding(t *testing.T) {
	s := newTestServer(t, nil)

	jsonA, connA := attachSession(s, protocol.EncodingJSON)
	identify(t, s, jsonA, nil)
	jsonB, connB := attachSession(s, protocol.EncodingJSON)
	identify(t, s, jsonB, nil)
	binary, connBin := attachSession(s, protocol.EncodingBinary)
	identify(t, s, binary, nil)

	s.broadcastEvent(events.SubscriptionGeneral, 0,
		eventMessage("CustomEvent", map[string]any{"n": int64(7)}, events.SubscriptionGeneral))

	framesA, framesB := connA.Frames(), connB.Frames()
	if len(framesA) != 2 || len(framesB) != 2 {
		t.Fatalf("json sessions got %d/%d frames, want 2 each", len(framesA), len(framesB))
	}
	if !bytes.Equal(framesA[1].data, framesB[1].data) {
		t.Error("json sessions should receive identical encoded bytes")
	}

	binFrames := connBin.Frames()
	if len(binFrames) != 2 {
		t.Fatalf("binary session got %d frames, want 2", len(binFrames))
	}
	if binFrames[1].messageType != 2 { // websocket.BinaryMessage
		t.Errorf("binary frame type = %d", binFrames[1].messageType)
	}
	if binFrames[1].data[0] != byte(protocol.OpEvent) {
		t.Errorf("binary frame op byte = %d", binFrames[1].data[0])
	}

	msg, err := protocol.UnmarshalMessage(binFrames[1].data, protocol.EncodingBinary)
	if err != nil {
		t.Fatalf("decode binary event: %v", err)
	}
	if msg.Data()["eventType"] != "CustomEvent" {
		t.Errorf("binary eventType = %v", msg.Data()["eventType"])
	}
}

func TestBroadcastEventThroughEventHandler(t *testing.T) {
	s := newTestServer(t, nil)
	session, conn := attachSession(s, protocol.EncodingJSON)
	identify(t, s, session, nil)

	// Drive the typed emitter synchronously through the broadcast core.
	msg := eventMessage("InputCreated", map[string]any{
		"inputName": "desk mic",
		"inputKind": "audio_capture",
	}, events.SubscriptionInputs)
	s.broadcastEvent(events.SubscriptionInputs, 0, msg)

	frames := conn.Frames()
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	d := decodeJSONFrame(t, frames[1])
	if d["eventIntent"] != float64(events.SubscriptionInputs) {
		t.Errorf("eventIntent = %v", d["eventIntent"])
	}
}
