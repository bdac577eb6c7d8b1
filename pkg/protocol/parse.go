package protocol

// Typed payload parsing. The transport hands the dispatcher a raw
// payload object; these helpers validate it field by field into a
// typed value, reporting the first violation as an *Error carrying the
// close code the connection must be terminated with. Missing-key checks
// always precede wrong-type checks for the same field.

// RequestPayload is a validated single-request payload.
type RequestPayload struct {
	// ID is echoed verbatim into the response. Its presence is
	// validated here because only the dispatcher can close the
	// connection; its type is not constrained by the protocol.
	ID any

	// Type is the requestType, or empty when absent or not a string.
	// The request handler reports that as a status code, not a close.
	Type string

	// Data is the requestData object, or nil when absent.
	Data map[string]any
}

// ParseRequest validates a Request payload.
func ParseRequest(d map[string]any) (*RequestPayload, *Error) {
	id, ok := d["requestId"]
	if !ok {
		return nil, NewError(CloseMissingDataKey, "Your payload data is missing a `requestId`.")
	}

	p := &RequestPayload{ID: id}
	if t, ok := AsString(d["requestType"]); ok {
		p.Type = t
	}
	if data, ok := AsObject(d["requestData"]); ok {
		p.Data = data
	}
	return p, nil
}

// RequestBatchPayload is a validated batch-request payload.
type RequestBatchPayload struct {
	ID            any
	Requests      []any
	ExecutionType BatchExecutionType
	Variables     map[string]any
}

// ParseRequestBatch validates a RequestBatch payload. parallelAllowed
// reports whether the execution pool can actually serve a PARALLEL
// batch; the check lives here so the UnsupportedFeature close fires at
// the same validation step the wire contract promises.
func ParseRequestBatch(d map[string]any, parallelAllowed bool) (*RequestBatchPayload, *Error) {
	id, ok := d["requestId"]
	if !ok {
		return nil, NewError(CloseMissingDataKey, "Your payload data is missing a `requestId`.")
	}

	rawRequests, ok := d["requests"]
	if !ok {
		return nil, NewError(CloseMissingDataKey, "Your payload data is missing a `requests`.")
	}
	requests, ok := AsArray(rawRequests)
	if !ok {
		return nil, NewError(CloseInvalidDataKeyType, "Your `requests` is not an array.")
	}

	p := &RequestBatchPayload{
		ID:            id,
		Requests:      requests,
		ExecutionType: ExecutionSerialRealtime,
	}

	if raw, ok := d["executionType"]; ok && raw != nil {
		s, ok := AsString(raw)
		if !ok {
			return nil, NewError(CloseInvalidDataKeyType, "Your `executionType` is not a string.")
		}
		execType, ok := ParseBatchExecutionType(s)
		if !ok {
			return nil, NewError(CloseInvalidDataKeyValue, "Your `executionType`'s value is not recognized.")
		}
		if execType == ExecutionParallel && !parallelAllowed {
			return nil, NewError(CloseUnsupportedFeature,
				"Parallel request batch processing is not available on this system due to limited core count.")
		}
		p.ExecutionType = execType
	}

	if raw, ok := d["variables"]; ok && raw != nil {
		variables, ok := AsObject(raw)
		if !ok {
			return nil, NewError(CloseInvalidDataKeyType, "Your `variables` is not an object.")
		}
		if p.ExecutionType == ExecutionParallel {
			return nil, NewError(CloseUnsupportedFeature, "Variables are not supported in PARALLEL mode.")
		}
		p.Variables = variables
	}

	return p, nil
}
