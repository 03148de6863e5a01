// interceptor.go
// --------------
// Interceptor is a business-supplied capability bundle hooking every point
// of the request lifecycle §6 names. Async hooks return an error so a
// failure can be logged without silently swallowing it; sync hooks return
// immediately.
//
// Grounded on interfaces.go's ProviderAdapter, split into three narrower
// contracts (Interceptor, Parser, Transport) because §6 defines three
// distinct collaborators where the teacher's ProviderAdapter bundled one.
package linkbridge

import "context"

// Interceptor is the per-business capability bundle §6 specifies.
type Interceptor interface {
	// InitialData runs once during business registration, before the
	// transport is constructed.
	InitialData(ctx context.Context) error

	// SetupTransport is the synchronous post-construction hook; isMock
	// reports whether transport is the business's mock transport.
	SetupTransport(transport Transport, isMock bool)

	AllowRequestPassWhenSuspend(req *Request) bool

	OnRequest(req *Request)
	OnAddToPromise(req *Request)
	OnLoadCache(req *Request, data map[string]any)
	OnResponse(req *Request, resp *Response)
	OnSaveCache(req *Request, data map[string]any)
	OnRemoveFromPromise(req *Request)

	NeedRetry(req *Request, resp *Response) bool

	// InterceptComplete returns true to take ownership of the completion
	// slot; the Manager will not write to it itself in that case.
	InterceptComplete(req *Request, resp *Response) bool

	OnCleanData(ctx context.Context) error
}

// NoopInterceptor implements Interceptor with the pass-through defaults
// most businesses need: never suspend-bypass, never ask for a retry,
// never take over completion.
type NoopInterceptor struct{}

func (NoopInterceptor) InitialData(context.Context) error         { return nil }
func (NoopInterceptor) SetupTransport(Transport, bool)            {}
func (NoopInterceptor) AllowRequestPassWhenSuspend(*Request) bool { return false }
func (NoopInterceptor) OnRequest(*Request)                        {}
func (NoopInterceptor) OnAddToPromise(*Request)                   {}
func (NoopInterceptor) OnLoadCache(*Request, map[string]any)      {}
func (NoopInterceptor) OnResponse(*Request, *Response)            {}
func (NoopInterceptor) OnSaveCache(*Request, map[string]any)      {}
func (NoopInterceptor) OnRemoveFromPromise(*Request)              {}
func (NoopInterceptor) NeedRetry(*Request, *Response) bool        { return false }
func (NoopInterceptor) InterceptComplete(*Request, *Response) bool { return false }
func (NoopInterceptor) OnCleanData(context.Context) error         { return nil }
