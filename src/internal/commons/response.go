package commons

// Response is the JSON envelope transferctl prints for every command.
type Response[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// Code is the backend error code when the backend rejected the request,
	// otherwise one of the client-side codes below.
	Code string `json:"code,omitempty"`
	// IdempotencyKey is set when an interrupted transfer can be resumed.
	IdempotencyKey string   `json:"idempotencyKey,omitempty"`
	Data           *T       `json:"data,omitempty"`
	Errors         []string `json:"errors,omitempty"`
}

func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{
		Success: true,
		Message: message,
		Data:    &data,
	}
}

func ErrorResponse[T any](message, code string, errors ...string) Response[T] {
	return Response[T]{
		Success: false,
		Message: message,
		Code:    code,
		Errors:  errors,
	}
}

func (r Response[T]) WithIdempotencyKey(key string) Response[T] {
	r.IdempotencyKey = key
	return r
}
