package server

import (
	"context"
	"math"
	"time"

	"github.com/studiolink/studiolink/pkg/auth"
	"github.com/studiolink/studiolink/pkg/events"
	"github.com/studiolink/studiolink/pkg/protocol"
	"github.com/studiolink/studiolink/pkg/request"
)

// ProcessResult is the outcome of dispatching one incoming message. At most
// one of CloseCode and Result is meaningful: a non-zero CloseCode closes the
// session, otherwise Result (if non-nil) is sent back to the client.
type ProcessResult struct {
	CloseCode   protocol.CloseCode
	CloseReason string
	Result      *protocol.Message
}

func (r ProcessResult) shouldClose() bool {
	return r.CloseCode != protocol.CloseDontClose
}

func closeResult(code protocol.CloseCode, reason string) ProcessResult {
	return ProcessResult{CloseCode: code, CloseReason: reason}
}

// ProcessMessage dispatches one decoded client message and returns what to
// do with the session.
func (s *Server) ProcessMessage(ctx context.Context, session *Session, msg *protocol.Message) ProcessResult {
	data, err := payloadObject(msg.D)
	if err != nil {
		return *err
	}

	if !session.IsIdentified() && msg.Op != protocol.OpIdentify {
		return closeResult(protocol.CloseNotIdentified, "You attempted to send a non-Identify message while not identified.")
	}

	switch msg.Op {
	case protocol.OpIdentify:
		return s.handleIdentify(session, data)
	case protocol.OpReidentify:
		return s.handleReidentify(session, data)
	case protocol.OpRequest:
		return s.handleRequest(ctx, session, data)
	case protocol.OpRequestBatch:
		return s.handleRequestBatch(ctx, session, data)
	default:
		if session.IgnoreInvalidMessages() {
			return ProcessResult{}
		}
		return closeResult(protocol.CloseUnknownOpCode, "The opcode you sent is not recognized.")
	}
}

func payloadObject(d any) (map[string]any, *ProcessResult) {
	if d == nil {
		ret := closeResult(protocol.CloseMissingDataKey, "Your payload is missing data (`d`).")
		return nil, &ret
	}
	data, ok := d.(map[string]any)
	if !ok {
		ret := closeResult(protocol.CloseInvalidDataKeyType, "Your payload's data (`d`) is not an object.")
		return nil, &ret
	}
	return data, nil
}

func (s *Server) handleIdentify(session *Session, data map[string]any) ProcessResult {
	session.opMu.Lock()
	defer session.opMu.Unlock()

	if session.IsIdentified() {
		if session.IgnoreInvalidMessages() {
			return ProcessResult{}
		}
		return closeResult(protocol.CloseAlreadyIdentified, "You are already identified. Use the Reidentify message to update your session parameters.")
	}

	if session.AuthRequired() {
		raw, present := data["authentication"]
		if !present {
			return closeResult(protocol.CloseAuthenticationFailed, "Your payload's data is missing an `authentication` string, however authentication is required.")
		}
		proof, ok := protocol.AsString(raw)
		if !ok || !auth.CheckAuthenticationString(session.secret, session.challenge, proof) {
			s.notifyAuthenticationFailed(session)
			return closeResult(protocol.CloseAuthenticationFailed, "Your `authentication` string was not valid.")
		}
	}

	raw, present := data["rpcVersion"]
	if !present {
		return closeResult(protocol.CloseMissingDataKey, "Your payload's data is missing an `rpcVersion`.")
	}
	version, ok := protocol.AsUint(raw)
	if !ok {
		return closeResult(protocol.CloseInvalidDataKeyType, "Your `rpcVersion` is not an unsigned number.")
	}
	if version > math.MaxUint8 || !protocol.IsSupportedRpcVersion(uint8(version)) {
		return closeResult(protocol.CloseUnsupportedRpcVersion, "Your requested RPC version is not supported by this server.")
	}
	session.setRPCVersion(uint8(version))

	if perr := s.setSessionParameters(session, data); perr != nil {
		return closeResult(perr.Code, perr.Reason)
	}

	s.subscriptions.Subscribe(session.EventSubscriptions())
	session.setIdentified(true)
	s.notifyIdentified(session)

	return ProcessResult{Result: protocol.NewMessage(protocol.OpIdentified, map[string]any{
		"negotiatedRpcVersion": session.RPCVersion(),
	})}
}

func (s *Server) handleReidentify(session *Session, data map[string]any) ProcessResult {
	session.opMu.Lock()
	defer session.opMu.Unlock()

	s.subscriptions.Unsubscribe(session.EventSubscriptions())

	if perr := s.setSessionParameters(session, data); perr != nil {
		return closeResult(perr.Code, perr.Reason)
	}

	s.subscriptions.Subscribe(session.EventSubscriptions())

	return ProcessResult{Result: protocol.NewMessage(protocol.OpIdentified, map[string]any{
		"negotiatedRpcVersion": session.RPCVersion(),
	})}
}

// setSessionParameters applies the optional Identify/Reidentify parameters
// in order. Parameters before a failing one stay applied.
func (s *Server) setSessionParameters(session *Session, data map[string]any) *protocol.Error {
	if raw, present := data["ignoreInvalidMessages"]; present {
		ignore, ok := protocol.AsBool(raw)
		if !ok {
			return protocol.NewError(protocol.CloseInvalidDataKeyType, "Your `ignoreInvalidMessages` is not a boolean.")
		}
		session.setIgnoreInvalidMessages(ignore)
	}

	if raw, present := data["eventSubscriptions"]; present {
		mask, ok := protocol.AsUint(raw)
		if !ok {
			return protocol.NewError(protocol.CloseInvalidDataKeyType, "Your `eventSubscriptions` is not an unsigned number.")
		}
		session.setEventSubscriptions(events.Subscription(mask))
	} else if !session.IsIdentified() {
		session.setEventSubscriptions(s.config.DefaultSubscriptions)
	}

	return nil
}

func (s *Server) handleRequest(ctx context.Context, session *Session, data map[string]any) ProcessResult {
	payload, perr := protocol.ParseRequest(data)
	if perr != nil {
		return closeResult(perr.Code, perr.Reason)
	}

	start := time.Now()
	handler := request.NewHandler(session, s.requests, s.logger)
	result := handler.ProcessRequest(ctx, request.Request{Type: payload.Type, Data: payload.Data})
	s.metrics.requestDuration.Observe(time.Since(start).Seconds())
	s.metrics.requestsTotal.WithLabelValues(payload.Type).Inc()

	return ProcessResult{Result: protocol.NewMessage(protocol.OpRequestResponse, requestResponseData(payload.Type, payload.ID, true, result))}
}

func (s *Server) handleRequestBatch(ctx context.Context, session *Session, data map[string]any) ProcessResult {
	// The requestId presence check always closes; the remaining batch
	// validation is subject to ignoreInvalidMessages.
	if _, present := data["requestId"]; !present {
		return closeResult(protocol.CloseMissingDataKey, "Your payload data is missing a `requestId`.")
	}

	payload, perr := protocol.ParseRequestBatch(data, s.parallelAllowed())
	if perr != nil {
		if session.IgnoreInvalidMessages() {
			return ProcessResult{}
		}
		return closeResult(perr.Code, perr.Reason)
	}

	s.metrics.batchesTotal.WithLabelValues(payload.ExecutionType.String()).Inc()
	results := s.processRequestBatch(ctx, session, payload.ExecutionType, payload.Requests, payload.Variables)

	return ProcessResult{Result: protocol.NewMessage(protocol.OpRequestBatchResponse, map[string]any{
		"requestId": payload.ID,
		"results":   results,
	})}
}

// requestResponseData builds the shared response payload for single requests
// and batch entries. requestId is omitted only for batch entries that did
// not carry one.
func requestResponseData(requestType string, requestID any, hasID bool, result request.Result) map[string]any {
	status := map[string]any{
		"result": result.StatusCode.IsSuccess(),
		"code":   int(result.StatusCode),
	}
	if result.Comment != "" {
		status["comment"] = result.Comment
	}
	data := map[string]any{
		"requestType":   requestType,
		"requestStatus": status,
	}
	if hasID {
		data["requestId"] = requestID
	}
	if result.ResponseData != nil {
		data["responseData"] = result.ResponseData
	}
	return data
}
