package rpckit

// Standard JSON-RPC 2.0 codes and the transport codes shared by all domains.
const (
	CodeParseError          = -32700
	CodeInvalidRequest      = -32600
	CodeMethodNotFound      = -32601
	CodeInvalidParams       = -32602
	CodeServiceError        = -32000
	CodeServiceUnavailable  = -32099
	CodeRateLimited         = -32029
	CodeIdempotencyConflict = -32409
)

// Error is a transport-level RPC error that can be mapped by the caller
// to a concrete wire format (e.g. JSON-RPC error object).
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func InvalidParams() *Error {
	return &Error{Code: CodeInvalidParams, Message: "invalid params"}
}

func MethodNotFound() *Error {
	return &Error{Code: CodeMethodNotFound, Message: "method not found"}
}

func ServiceError(code int, err error) *Error {
	return &Error{Code: code, Message: err.Error()}
}
