package request

import (
	"context"
	"log/slog"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/studiolink/studiolink/pkg/protocol"
)

// tracerName identifies request spans in trace backends.
const tracerName = "studiolink/request"

// Handler executes requests on behalf of one session. A fresh handler
// is created per inbound Request message (and one per batch), mirroring
// the session-scoped permission context requests run under.
type Handler struct {
	session   Session
	registry  *Registry
	mode      protocol.BatchExecutionType
	scheduler FrameScheduler
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewHandler creates a handler for a single request outside any batch.
func NewHandler(session Session, registry *Registry, logger *slog.Logger) *Handler {
	return newHandler(session, registry, protocol.ExecutionNone, nil, logger)
}

// NewBatchHandler creates a handler for requests running inside a
// batch under the given execution policy.
func NewBatchHandler(session Session, registry *Registry, mode protocol.BatchExecutionType, scheduler FrameScheduler, logger *slog.Logger) *Handler {
	return newHandler(session, registry, mode, scheduler, logger)
}

func newHandler(session Session, registry *Registry, mode protocol.BatchExecutionType, scheduler FrameScheduler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		session:   session,
		registry:  registry,
		mode:      mode,
		scheduler: scheduler,
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
	}
}

// ProcessRequest validates and executes one request, returning its
// in-band result. A panicking implementation is reported as a failed
// request, never as a dropped connection.
func (h *Handler) ProcessRequest(ctx context.Context, req Request) (result Result) {
	if req.Type == "" {
		return Error(protocol.RequestStatusMissingRequestType, "Your request is missing a `requestType`.")
	}

	fn, ok := h.registry.Lookup(req.Type)
	if !ok {
		return Error(protocol.RequestStatusUnknownRequestType, "The request type `%s` does not exist.", req.Type)
	}

	ctx, span := h.tracer.Start(ctx, "ProcessRequest",
		trace.WithAttributes(
			attribute.String("request.type", req.Type),
			attribute.String("request.batch_mode", h.mode.String()),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("request handler panic",
				"request_type", req.Type,
				"panic", r,
				"stack", string(debug.Stack()))
			span.SetStatus(codes.Error, "panic")
			result = Error(protocol.RequestStatusRequestProcessingFailed, "The request handler failed.")
		}
	}()

	result = fn(ctx, &Invocation{
		Session:   h.session,
		Data:      req.Data,
		BatchMode: h.mode,
		Scheduler: h.scheduler,
	})

	if !result.StatusCode.IsSuccess() {
		span.SetStatus(codes.Error, result.Comment)
		span.SetAttributes(attribute.Int("request.status_code", int(result.StatusCode)))
	}
	return result
}
