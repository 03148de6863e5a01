// Package linkbridgetest provides in-memory fakes of the Transport and
// Interceptor contracts for tests, in the same "scripted
// response queue" shape mock/mock_adapter.go's MockAdapter answers
// ExecuteRequest calls with, generalized here to a per-call response queue
// instead of a rate-limit counter.
package linkbridgetest

import (
	"context"
	"sync"

	"github.com/linkbridge/linkbridge"
)

// ScriptedResponse is one queued answer a FakeTransport returns.
type ScriptedResponse struct {
	Raw *linkbridge.RawResponse
	Err error
}

// FakeTransport answers each call with the next ScriptedResponse queued via
// Push, repeating the last one once the queue is drained. It records every
// call it received so tests can assert on retry counts and paths.
type FakeTransport struct {
	mu       sync.Mutex
	queue    []ScriptedResponse
	Requests []FakeTransportCall
}

// FakeTransportCall records one Transport.Request invocation.
type FakeTransportCall struct {
	Path  string
	Query map[string]any
	Body  linkbridge.Body
}

// Push enqueues resp to be returned by the next call.
func (f *FakeTransport) Push(resp ScriptedResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, resp)
}

func (f *FakeTransport) Request(ctx context.Context, path string, body linkbridge.Body, query map[string]any, opts linkbridge.TransportOptions, onSend, onRecv linkbridge.ProgressFunc) (*linkbridge.RawResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Requests = append(f.Requests, FakeTransportCall{Path: path, Query: query, Body: body})

	if len(f.queue) == 0 {
		return &linkbridge.RawResponse{StatusCode: 200, Data: []byte(`{}`)}, nil
	}
	next := f.queue[0]
	if len(f.queue) > 1 {
		f.queue = f.queue[1:]
	}
	return next.Raw, next.Err
}

// CallCount reports how many times Request has been invoked.
func (f *FakeTransport) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

// FakeInterceptor is a linkbridge.NoopInterceptor with a scriptable
// NeedRetry hook and call counters for the lifecycle hooks tests assert on.
type FakeInterceptor struct {
	linkbridge.NoopInterceptor

	mu               sync.Mutex
	NeedRetryFunc    func(req *linkbridge.Request, resp *linkbridge.Response) bool
	AllowSuspendFunc func(req *linkbridge.Request) bool

	OnRequestCalls  int
	OnResponseCalls int
	CacheSaves      int
	CacheLoads      int
	PromiseAdds     int
	PromiseRemoves  int
}

func (f *FakeInterceptor) OnRequest(req *linkbridge.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OnRequestCalls++
}

func (f *FakeInterceptor) OnResponse(req *linkbridge.Request, resp *linkbridge.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OnResponseCalls++
}

func (f *FakeInterceptor) OnSaveCache(req *linkbridge.Request, data map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CacheSaves++
}

func (f *FakeInterceptor) OnLoadCache(req *linkbridge.Request, data map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CacheLoads++
}

func (f *FakeInterceptor) OnAddToPromise(req *linkbridge.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PromiseAdds++
}

func (f *FakeInterceptor) OnRemoveFromPromise(req *linkbridge.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PromiseRemoves++
}

func (f *FakeInterceptor) NeedRetry(req *linkbridge.Request, resp *linkbridge.Response) bool {
	if f.NeedRetryFunc != nil {
		return f.NeedRetryFunc(req, resp)
	}
	return false
}

func (f *FakeInterceptor) AllowRequestPassWhenSuspend(req *linkbridge.Request) bool {
	if f.AllowSuspendFunc != nil {
		return f.AllowSuspendFunc(req)
	}
	return false
}
