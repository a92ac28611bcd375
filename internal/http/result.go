package httpapi

// Result response envelope shared by every endpoint
// - code: ResultSuccess on success, ResultError otherwise
// - type: 'success' | 'error'
// - result: payload, or error details (allowed transitions, conflicts)
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

// FailWith error envelope carrying structured details
func FailWith(message string, details any) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: details}
}
