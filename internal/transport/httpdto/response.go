package httpdto

// Response is the envelope every REST endpoint returns. Code carries the
// machine-readable error class (NOT_FOUND, POLL_CLOSED, INVALID_OPTION, ...)
// so poll clients can branch without parsing the human-readable Error text.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: data}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{Success: false, Error: err, Code: code}
}
