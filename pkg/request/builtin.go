package request

import (
	"context"
	"runtime"
	"time"

	"github.com/studiolink/studiolink/pkg/events"
	"github.com/studiolink/studiolink/pkg/protocol"
)

// Limits for the Sleep request.
const (
	maxSleepMillis = 50_000
	maxSleepFrames = 10_000
)

// RegisterBuiltins installs the general-purpose request catalogue.
// Host-specific catalogues (scenes, inputs, outputs) register on top
// of these through the same registry.
func RegisterBuiltins(reg *Registry, host Host) {
	reg.Register("GetVersion", func(ctx context.Context, inv *Invocation) Result {
		return Success(map[string]any{
			"studiolinkVersion":  host.Version(),
			"rpcVersion":         protocol.RPCVersion,
			"availableRequests":  reg.Types(),
			"supportedEncodings": []any{protocol.SubprotocolJSON, protocol.SubprotocolBinary},
			"platform":           runtime.GOOS,
		})
	})

	reg.Register("GetStats", func(ctx context.Context, inv *Invocation) Result {
		incoming, outgoing := host.MessageStats()
		return Success(map[string]any{
			"activeSessions":                   host.SessionCount(),
			"webSocketSessionIncomingMessages": incoming,
			"webSocketSessionOutgoingMessages": outgoing,
		})
	})

	reg.Register("BroadcastCustomEvent", func(ctx context.Context, inv *Invocation) Result {
		raw, ok := inv.Data["eventData"]
		if !ok {
			return Error(protocol.RequestStatusMissingRequestField, "Your request data is missing an `eventData`.")
		}
		eventData, ok := protocol.AsObject(raw)
		if !ok {
			return Error(protocol.RequestStatusInvalidRequestField, "Your `eventData` is not an object.")
		}

		host.BroadcastEvent(events.SubscriptionGeneral, "CustomEvent", map[string]any{
			"eventData": eventData,
		}, 0)
		return Success(nil)
	})

	reg.Register("CallVendorRequest", func(ctx context.Context, inv *Invocation) Result {
		vendorName, ok := protocol.AsString(inv.Data["vendorName"])
		if !ok || vendorName == "" {
			return Error(protocol.RequestStatusMissingRequestField, "Your request data is missing a `vendorName`.")
		}
		requestType, ok := protocol.AsString(inv.Data["requestType"])
		if !ok || requestType == "" {
			return Error(protocol.RequestStatusMissingRequestField, "Your request data is missing a `requestType`.")
		}

		// No vendor integrations ship with the engine; the echo shape
		// keeps the wire contract stable for hosts that add them.
		return Success(map[string]any{
			"vendorName":   vendorName,
			"requestType":  requestType,
			"responseData": map[string]any{},
		})
	})

	reg.Register("Sleep", sleepRequest)
}

// sleepRequest pauses a serial batch between steps. It is meaningless
// outside a batch, and the unit it accepts depends on the batch's
// execution policy: milliseconds in SERIAL_REALTIME, frames in
// SERIAL_FRAME.
func sleepRequest(ctx context.Context, inv *Invocation) Result {
	switch inv.BatchMode {
	case protocol.ExecutionSerialRealtime:
		millis, ok := protocol.AsUint(inv.Data["sleepMillis"])
		if !ok {
			return Error(protocol.RequestStatusMissingRequestField, "Your request data is missing a valid `sleepMillis`.")
		}
		if millis > maxSleepMillis {
			return Error(protocol.RequestStatusInvalidRequestField, "Your `sleepMillis` is above the maximum of %d.", maxSleepMillis)
		}
		select {
		case <-time.After(time.Duration(millis) * time.Millisecond):
		case <-ctx.Done():
		}
		return Success(nil)

	case protocol.ExecutionSerialFrame:
		frames, ok := protocol.AsUint(inv.Data["sleepFrames"])
		if !ok {
			return Error(protocol.RequestStatusMissingRequestField, "Your request data is missing a valid `sleepFrames`.")
		}
		if frames > maxSleepFrames {
			return Error(protocol.RequestStatusInvalidRequestField, "Your `sleepFrames` is above the maximum of %d.", maxSleepFrames)
		}
		scheduler := inv.Scheduler
		if scheduler == nil {
			scheduler = ImmediateScheduler{}
		}
		for i := uint64(0); i < frames; i++ {
			waited := make(chan struct{})
			scheduler.OnNextFrame(func() { close(waited) })
			select {
			case <-waited:
			case <-ctx.Done():
				return Success(nil)
			}
		}
		return Success(nil)

	default:
		return Error(protocol.RequestStatusUnsupportedRequestBatchExecutionType,
			"`Sleep` is only valid within SERIAL_REALTIME or SERIAL_FRAME batches.")
	}
}
