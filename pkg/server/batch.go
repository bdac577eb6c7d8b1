package server

import (
	"context"
	"sync"

	"github.com/studiolink/studiolink/pkg/protocol"
	"github.com/studiolink/studiolink/pkg/request"
)

// parallelAllowed reports whether PARALLEL batches are accepted. A pool with
// a single worker would serialize them anyway, so they are refused outright.
func (s *Server) parallelAllowed() bool {
	return s.pool != nil && s.pool.Cap() >= 2
}

// processRequestBatch executes the batch entries under the given execution
// policy and returns one result per entry, in entry order.
func (s *Server) processRequestBatch(ctx context.Context, session *Session, executionType protocol.BatchExecutionType, requests []any, variables map[string]any) []any {
	results := make([]any, len(requests))

	if executionType == protocol.ExecutionParallel {
		handler := request.NewBatchHandler(session, s.requests, executionType, nil, s.logger)
		var wg sync.WaitGroup
		for i, raw := range requests {
			i, raw := i, raw
			wg.Add(1)
			task := func() {
				defer wg.Done()
				results[i] = s.executeBatchRequest(ctx, handler, raw, nil)
			}
			if err := s.pool.Submit(task); err != nil {
				task()
			}
		}
		wg.Wait()
		return results
	}

	if variables == nil {
		variables = make(map[string]any)
	}
	handler := request.NewBatchHandler(session, s.requests, executionType, s.frames, s.logger)
	for i, raw := range requests {
		if executionType == protocol.ExecutionSerialFrame {
			// Align each step to a frame boundary, then run it on this
			// goroutine. Running inside the frame callback would
			// deadlock a Sleep waiting for the following frame.
			waitForFrame(s.frames)
		}
		results[i] = s.executeBatchRequest(ctx, handler, raw, variables)
	}
	return results
}

func waitForFrame(scheduler request.FrameScheduler) {
	done := make(chan struct{})
	scheduler.OnNextFrame(func() { close(done) })
	<-done
}

// executeBatchRequest runs one batch entry. variables is nil for PARALLEL
// batches, where variable plumbing is unsupported.
func (s *Server) executeBatchRequest(ctx context.Context, handler *request.Handler, raw any, variables map[string]any) map[string]any {
	var req request.Request
	var requestID any
	hasID := false

	entry, _ := protocol.AsObject(raw)
	if entry != nil {
		if t, ok := protocol.AsString(entry["requestType"]); ok {
			req.Type = t
		}
		if d, ok := protocol.AsObject(entry["requestData"]); ok {
			req.Data = d
		}
		requestID, hasID = entry["requestId"]
		if variables != nil {
			if inputs, ok := protocol.AsObject(entry["inputVariables"]); ok {
				req.Data = applyInputVariables(req.Data, inputs, variables)
			}
		}
	}

	result := handler.ProcessRequest(ctx, req)
	s.metrics.requestsTotal.WithLabelValues(req.Type).Inc()

	if variables != nil && entry != nil {
		if outputs, ok := protocol.AsObject(entry["outputVariables"]); ok {
			harvestOutputVariables(variables, outputs, result.ResponseData)
		}
	}

	return requestResponseData(req.Type, requestID, hasID, result)
}

// applyInputVariables copies current variable values into the request data
// fields named by the inputVariables map. Unknown variables and non-string
// bindings are skipped.
func applyInputVariables(data map[string]any, inputs map[string]any, variables map[string]any) map[string]any {
	if data == nil {
		data = make(map[string]any, len(inputs))
	}
	for field, raw := range inputs {
		name, ok := protocol.AsString(raw)
		if !ok {
			continue
		}
		value, ok := variables[name]
		if !ok {
			continue
		}
		data[field] = value
	}
	return data
}

// harvestOutputVariables copies response data fields named by the
// outputVariables map into the batch variables for later entries.
func harvestOutputVariables(variables map[string]any, outputs map[string]any, responseData map[string]any) {
	if responseData == nil {
		return
	}
	for name, raw := range outputs {
		field, ok := protocol.AsString(raw)
		if !ok {
			continue
		}
		if value, present := responseData[field]; present {
			variables[name] = value
		}
	}
}
