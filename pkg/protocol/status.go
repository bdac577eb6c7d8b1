package protocol

// RequestStatus is the application-level status code carried inside a
// RequestResponse. Unlike close codes, a non-success status never
// terminates the connection.
type RequestStatus int

const (
	// RequestStatusUnknown is the zero value and never sent on purpose.
	RequestStatusUnknown RequestStatus = 0

	// RequestStatusNoError means the handler ran but has no meaningful
	// status (used internally before a handler assigns one).
	RequestStatusNoError RequestStatus = 10

	// RequestStatusSuccess means the request succeeded.
	RequestStatusSuccess RequestStatus = 100

	// RequestStatusMissingRequestType means requestType was absent.
	RequestStatusMissingRequestType RequestStatus = 203

	// RequestStatusUnknownRequestType means no handler is registered
	// for the requestType.
	RequestStatusUnknownRequestType RequestStatus = 204

	// RequestStatusGenericError means the handler failed for a reason
	// with no dedicated code.
	RequestStatusGenericError RequestStatus = 205

	// RequestStatusUnsupportedRequestBatchExecutionType means the
	// request is not valid under the batch's execution policy.
	RequestStatusUnsupportedRequestBatchExecutionType RequestStatus = 206

	// RequestStatusMissingRequestField means a required requestData
	// field was absent.
	RequestStatusMissingRequestField RequestStatus = 300

	// RequestStatusMissingRequestData means requestData itself was
	// required but absent.
	RequestStatusMissingRequestData RequestStatus = 301

	// RequestStatusInvalidRequestField means a requestData field failed
	// validation.
	RequestStatusInvalidRequestField RequestStatus = 402

	// RequestStatusRequestProcessingFailed means the host application
	// rejected the operation at execution time.
	RequestStatusRequestProcessingFailed RequestStatus = 702
)

// IsSuccess reports whether the status represents success.
func (s RequestStatus) IsSuccess() bool {
	return s == RequestStatusSuccess
}
