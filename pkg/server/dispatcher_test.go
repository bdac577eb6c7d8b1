package server

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/studiolink/studiolink/pkg/auth"
	"github.com/studiolink/studiolink/pkg/events"
	"github.com/studiolink/studiolink/pkg/protocol"
	"github.com/studiolink/studiolink/pkg/request"
)

// fakeConn records frames written to it.
type fakeConn struct {
	mu     sync.Mutex
	frames []fakeFrame
	closed bool
}

type fakeFrame struct {
	messageType int
	data        []byte
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	c.frames = append(c.frames, fakeFrame{messageType: messageType, data: buf})
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Frames() []fakeFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]fakeFrame, len(c.frames))
	copy(out, c.frames)
	return out
}

func newTestServer(t *testing.T, config *ServerConfig) *Server {
	t.Helper()
	if config == nil {
		config = DefaultServerConfig()
	}
	s, err := New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
	})
	return s
}

func attachSession(s *Server, encoding protocol.Encoding) (*Session, *fakeConn) {
	conn := &fakeConn{}
	session := newSession(conn, encoding, "127.0.0.1:52000", s.config.Session, s.logger)
	if s.config.Auth.Enabled {
		session.authRequired = true
		session.secret = s.secret
		session.challenge = auth.GenerateChallenge()
	}
	s.sessions.Add(session)
	return session, conn
}

func identify(t *testing.T, s *Server, session *Session, extra map[string]any) *protocol.Message {
	t.Helper()
	d := map[string]any{"rpcVersion": float64(protocol.RPCVersion)}
	for k, v := range extra {
		d[k] = v
	}
	ret := s.ProcessMessage(context.Background(), session, &protocol.Message{Op: protocol.OpIdentify, D: d})
	if ret.shouldClose() {
		t.Fatalf("identify closed session: %d %q", ret.CloseCode, ret.CloseReason)
	}
	if ret.Result == nil || ret.Result.Op != protocol.OpIdentified {
		t.Fatalf("identify reply = %+v, want Identified", ret.Result)
	}
	// The read loop writes replies back; mirror that here.
	if err := session.WriteMessage(ret.Result); err != nil {
		t.Fatalf("write identify reply: %v", err)
	}
	return ret.Result
}

func TestProcessMessagePayloadValidation(t *testing.T) {
	tests := []struct {
		name     string
		d        any
		wantCode protocol.CloseCode
	}{
		{"missing payload", nil, protocol.CloseMissingDataKey},
		{"payload not an object", "hello", protocol.CloseInvalidDataKeyType},
		{"payload is array", []any{1.0}, protocol.CloseInvalidDataKeyType},
	}

	s := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, _ := attachSession(s, protocol.EncodingJSON)
			ret := s.ProcessMessage(context.Background(), session, &protocol.Message{Op: protocol.OpIdentify, D: tt.d})
			if ret.CloseCode != tt.wantCode {
				t.Errorf("close code = %d, want %d", ret.CloseCode, tt.wantCode)
			}
		})
	}
}

func TestProcessMessageNotIdentified(t *testing.T) {
	s := newTestServer(t, nil)
	session, _ := attachSession(s, protocol.EncodingJSON)

	ret := s.ProcessMessage(context.Background(), session, &protocol.Message{
		Op: protocol.OpRequest,
		D:  map[string]any{"requestId": "1", "requestType": "GetVersion"},
	})
	if ret.CloseCode != protocol.CloseNotIdentified {
		t.Fatalf("close code = %d, want %d", ret.CloseCode, protocol.CloseNotIdentified)
	}
}

func TestIdentify(t *testing.T) {
	s := newTestServer(t, nil)
	session, _ := attachSession(s, protocol.EncodingJSON)

	reply := identify(t, s, session, nil)
	data := reply.Data()
	if got := data["negotiatedRpcVersion"]; got != protocol.RPCVersion {
		t.Errorf("negotiatedRpcVersion = %v, want %d", got, protocol.RPCVersion)
	}
	if !session.IsIdentified() {
		t.Error("session not marked identified")
	}
	if session.EventSubscriptions() != events.SubscriptionAll {
		t.Errorf("subscriptions = %d, want default %d", session.EventSubscriptions(), events.SubscriptionAll)
	}
	if !s.subscriptions.Active(events.SubscriptionGeneral) {
		t.Error("subscription registry did not record the session's mask")
	}
}

func TestIdentifyRpcVersionValidation(t *testing.T) {
	tests := []struct {
		name     string
		d        map[string]any
		wantCode protocol.CloseCode
	}{
		{"missing rpcVersion", map[string]any{}, protocol.CloseMissingDataKey},
		{"rpcVersion wrong type", map[string]any{"rpcVersion": "1"}, protocol.CloseInvalidDataKeyType},
		{"rpcVersion negative", map[string]any{"rpcVersion": float64(-1)}, protocol.CloseInvalidDataKeyType},
		{"rpcVersion unsupported", map[string]any{"rpcVersion": float64(99)}, protocol.CloseUnsupportedRpcVersion},
		{"rpcVersion out of range", map[string]any{"rpcVersion": float64(300)}, protocol.CloseUnsupportedRpcVersion},
	}

	s := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, _ := attachSession(s, protocol.EncodingJSON)
			ret := s.ProcessMessage(context.Background(), session, &protocol.Message{Op: protocol.OpIdentify, D: tt.d})
			if ret.CloseCode != tt.wantCode {
				t.Errorf("close code = %d, want %d", ret.CloseCode, tt.wantCode)
			}
		})
	}
}

func TestIdentifyTwice(t *testing.T) {
	s := newTestServer(t, nil)
	session, _ := attachSession(s, protocol.EncodingJSON)
	identify(t, s, session, nil)

	ret := s.ProcessMessage(context.Background(), session, &protocol.Message{
		Op: protocol.OpIdentify,
		D:  map[string]any{"rpcVersion": float64(1)},
	})
	if ret.CloseCode != protocol.CloseAlreadyIdentified {
		t.Fatalf("close code = %d, want %d", ret.CloseCode, protocol.CloseAlreadyIdentified)
	}
}

func TestIdentifyTwiceIgnored(t *testing.T) {
	s := newTestServer(t, nil)
	session, _ := attachSession(s, protocol.EncodingJSON)
	identify(t, s, session, map[string]any{"ignoreInvalidMessages": true})

	ret := s.ProcessMessage(context.Background(), session, &protocol.Message{
		Op: protocol.OpIdentify,
		D:  map[string]any{"rpcVersion": float64(1)},
	})
	if ret.shouldClose() || ret.Result != nil {
		t.Fatalf("second identify = %+v, want silent drop", ret)
	}
}

func TestIdentifyAuthentication(t *testing.T) {
	s := newTestServer(t, DefaultServerConfig().WithPassword("sesame"))

	t.Run("missing proof", func(t *testing.T) {
		session, _ := attachSession(s, protocol.EncodingJSON)
		ret := s.ProcessMessage(context.Background(), session, &protocol.Message{
			Op: protocol.OpIdentify,
			D:  map[string]any{"rpcVersion": float64(1)},
		})
		if ret.CloseCode != protocol.CloseAuthenticationFailed {
			t.Fatalf("close code = %d, want %d", ret.CloseCode, protocol.CloseAuthenticationFailed)
		}
	})

	t.Run("wrong proof", func(t *testing.T) {
		session, _ := attachSession(s, protocol.EncodingJSON)
		ret := s.ProcessMessage(context.Background(), session, &protocol.Message{
			Op: protocol.OpIdentify,
			D:  map[string]any{"rpcVersion": float64(1), "authentication": "bogus"},
		})
		if ret.CloseCode != protocol.CloseAuthenticationFailed {
			t.Fatalf("close code = %d, want %d", ret.CloseCode, protocol.CloseAuthenticationFailed)
		}
	})

	t.Run("valid proof", func(t *testing.T) {
		session, _ := attachSession(s, protocol.EncodingJSON)
		proof := auth.GenerateProof(s.secret, session.Challenge())
		identify(t, s, session, map[string]any{"authentication": proof})
	})
}

func TestReidentify(t *testing.T) {
	s := newTestServer(t, nil)
	session, _ := attachSession(s, protocol.EncodingJSON)
	identify(t, s, session, map[string]any{"eventSubscriptions": float64(events.SubscriptionGeneral)})

	if !s.subscriptions.Active(events.SubscriptionGeneral) {
		t.Fatal("General should be active after identify")
	}

	ret := s.ProcessMessage(context.Background(), session, &protocol.Message{
		Op: protocol.OpReidentify,
		D:  map[string]any{"eventSubscriptions": float64(events.SubscriptionInputs)},
	})
	if ret.shouldClose() || ret.Result == nil || ret.Result.Op != protocol.OpIdentified {
		t.Fatalf("reidentify result = %+v", ret)
	}
	if s.subscriptions.Active(events.SubscriptionGeneral) {
		t.Error("General should be released after reidentify")
	}
	if !s.subscriptions.Active(events.SubscriptionInputs) {
		t.Error("Inputs should be active after reidentify")
	}
}

func TestReidentifyPartialParameterApplication(t *testing.T) {
	s := newTestServer(t, nil)
	session, _ := attachSession(s, protocol.EncodingJSON)
	identify(t, s, session, nil)

	// ignoreInvalidMessages is applied before eventSubscriptions fails
	// validation, and stays applied.
	ret := s.ProcessMessage(context.Background(), session, &protocol.Message{
		Op: protocol.OpReidentify,
		D:  map[string]any{"ignoreInvalidMessages": true, "eventSubscriptions": "all of them"},
	})
	if ret.CloseCode != protocol.CloseInvalidDataKeyType {
		t.Fatalf("close code = %d, want %d", ret.CloseCode, protocol.CloseInvalidDataKeyType)
	}
	if !session.IgnoreInvalidMessages() {
		t.Error("ignoreInvalidMessages should stay applied")
	}
}

func TestUnknownOpCode(t *testing.T) {
	s := newTestServer(t, nil)
	session, _ := attachSession(s, protocol.EncodingJSON)
	identify(t, s, session, nil)

	ret := s.ProcessMessage(context.Background(), session, &protocol.Message{Op: protocol.OpCode(42), D: map[string]any{}})
	if ret.CloseCode != protocol.CloseUnknownOpCode {
		t.Fatalf("close code = %d, want %d", ret.CloseCode, protocol.CloseUnknownOpCode)
	}
}

func TestUnknownOpCodeIgnored(t *testing.T) {
	s := newTestServer(t, nil)
	session, _ := attachSession(s, protocol.EncodingJSON)
	identify(t, s, session, map[string]any{"ignoreInvalidMessages": true})

	ret := s.ProcessMessage(context.Background(), session, &protocol.Message{Op: protocol.OpCode(42), D: map[string]any{}})
	if ret.shouldClose() || ret.Result != nil {
		t.Fatalf("result = %+v, want silent drop", ret)
	}
}

func TestRequestMissingRequestID(t *testing.T) {
	s := newTestServer(t, nil)
	session, _ := attachSession(s, protocol.EncodingJSON)
	// The requestId check closes even when invalid messages are ignored.
	identify(t, s, session, map[string]any{"ignoreInvalidMessages": true})

	ret := s.ProcessMessage(context.Background(), session, &protocol.Message{
		Op: protocol.OpRequest,
		D:  map[string]any{"requestType": "GetVersion"},
	})
	if ret.CloseCode != protocol.CloseMissingDataKey {
		t.Fatalf("close code = %d, want %d", ret.CloseCode, protocol.CloseMissingDataKey)
	}
}

func TestRequestResponseShape(t *testing.T) {
	s := newTestServer(t, nil)
	s.Requests().Register("EchoData", func(_ context.Context, inv *request.Invocation) request.Result {
		return request.Success(inv.Data)
	})
	s.Requests().Register("AlwaysFails", func(_ context.Context, _ *request.Invocation) request.Result {
		return request.Error(protocol.RequestStatusRequestProcessingFailed, "it broke")
	})
	session, _ := attachSession(s, protocol.EncodingJSON)
	identify(t, s, session, nil)

	t.Run("success with response data", func(t *testing.T) {
		ret := s.ProcessMessage(context.Background(), session, &protocol.Message{
			Op: protocol.OpRequest,
			D: map[string]any{
				"requestId":   "r-1",
				"requestType": "EchoData",
				"requestData": map[string]any{"key": "value"},
			},
		})
		if ret.shouldClose() {
			t.Fatalf("unexpected close: %d %q", ret.CloseCode, ret.CloseReason)
		}
		if ret.Result.Op != protocol.OpRequestResponse {
			t.Fatalf("op = %d, want %d", ret.Result.Op, protocol.OpRequestResponse)
		}
		data := ret.Result.Data()
		if data["requestId"] != "r-1" || data["requestType"] != "EchoData" {
			t.Errorf("echo fields wrong: %v", data)
		}
		status, _ := protocol.AsObject(data["requestStatus"])
		if status["result"] != true || status["code"] != int(protocol.RequestStatusSuccess) {
			t.Errorf("requestStatus = %v", status)
		}
		responseData, _ := protocol.AsObject(data["responseData"])
		if responseData["key"] != "value" {
			t.Errorf("responseData = %v", responseData)
		}
	})

	t.Run("failure carries comment and omits responseData", func(t *testing.T) {
		ret := s.ProcessMessage(context.Background(), session, &protocol.Message{
			Op: protocol.OpRequest,
			D:  map[string]any{"requestId": "r-2", "requestType": "AlwaysFails"},
		})
		data := ret.Result.Data()
		if _, present := data["responseData"]; present {
			t.Error("responseData should be omitted when nil")
		}
		status, _ := protocol.AsObject(data["requestStatus"])
		if status["result"] != false || status["comment"] != "it broke" {
			t.Errorf("requestStatus = %v", status)
		}
	})
}

func TestRequestResponseSurvivesJSONRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)
	session, _ := attachSession(s, protocol.EncodingJSON)
	identify(t, s, session, nil)

	ret := s.ProcessMessage(context.Background(), session, &protocol.Message{
		Op: protocol.OpRequest,
		D:  map[string]any{"requestId": "v", "requestType": "GetVersion"},
	})
	raw, err := protocol.MarshalMessage(ret.Result, protocol.EncodingJSON)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Op uint8          `json:"op"`
		D  map[string]any `json:"d"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Op != uint8(protocol.OpRequestResponse) {
		t.Errorf("op = %d", decoded.Op)
	}
	responseData, _ := protocol.AsObject(decoded.D["responseData"])
	if responseData["studiolinkVersion"] == nil {
		t.Errorf("responseData = %v", responseData)
	}
}
