// response.go
// -----------
// Response is the outcome type callers receive on a Request's completion
// slot. Success is defined as Error == nil, never by inspecting Data.
package linkbridge

// Response is §3's outcome value object.
type Response struct {
	Headers map[string][]string
	Data    map[string]any
	Model   any
	Error   *Error
}

// Success reports whether the response completed without an Error.
func (r Response) Success() bool { return r.Error == nil }
