package protocol

// BatchExecutionType is the policy governing ordering and concurrency
// of the sub-requests in a RequestBatch.
type BatchExecutionType int8

const (
	// ExecutionNone marks an absent executionType field.
	ExecutionNone BatchExecutionType = -1

	// ExecutionSerialRealtime runs requests one at a time, in order,
	// each executing immediately when reached.
	ExecutionSerialRealtime BatchExecutionType = 0

	// ExecutionSerialFrame runs requests one at a time, in order, each
	// deferred to the host application's next production-frame boundary.
	ExecutionSerialFrame BatchExecutionType = 1

	// ExecutionParallel dispatches every request concurrently onto the
	// worker pool. Result order still matches input order.
	ExecutionParallel BatchExecutionType = 2
)

// Wire values accepted for the optional executionType field.
const (
	executionSerialRealtimeString = "SERIAL_REALTIME"
	executionSerialFrameString    = "SERIAL_FRAME"
	executionParallelString       = "PARALLEL"
)

// ParseBatchExecutionType maps a wire string to its execution type.
// The second return value is false for unrecognized strings.
func ParseBatchExecutionType(s string) (BatchExecutionType, bool) {
	switch s {
	case executionSerialRealtimeString:
		return ExecutionSerialRealtime, true
	case executionSerialFrameString:
		return ExecutionSerialFrame, true
	case executionParallelString:
		return ExecutionParallel, true
	default:
		return ExecutionNone, false
	}
}

// String returns the wire representation of the execution type.
func (t BatchExecutionType) String() string {
	switch t {
	case ExecutionSerialRealtime:
		return executionSerialRealtimeString
	case ExecutionSerialFrame:
		return executionSerialFrameString
	case ExecutionParallel:
		return executionParallelString
	default:
		return "NONE"
	}
}
