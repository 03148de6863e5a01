package linkbridge

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/linkbridge/linkbridge/internal/sqlstore"
)

// fakeTransport is a minimal scripted Transport, mirroring
// linkbridgetest.FakeTransport but kept package-internal so these tests can
// exercise unexported Manager plumbing directly.
type fakeTransport struct {
	responses []*RawResponse
	errs      []error
	calls     int
}

func (f *fakeTransport) Request(ctx context.Context, path string, body Body, query map[string]any, opts TransportOptions, onSend, onRecv ProgressFunc) (*RawResponse, error) {
	i := f.calls
	f.calls++

	var raw *RawResponse
	if i < len(f.responses) {
		raw = f.responses[i]
	} else if len(f.responses) > 0 {
		raw = f.responses[len(f.responses)-1]
	}

	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return raw, err
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(
		WithCacheDB(":memory:"),
		WithPromiseDB(":memory:"),
		WithLogger(logrus.NewEntry(logrus.New())),
		WithDebug(true),
	)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.WaitReady(ctx))
	t.Cleanup(func() { _ = m.Release() })
	return m
}

func registerFakeBusiness(t *testing.T, m *Manager, id string, transport Transport, interceptor Interceptor) *business {
	t.Helper()
	if interceptor == nil {
		interceptor = NoopInterceptor{}
	}
	cfg := BusinessConfig{
		Identifier:  id,
		BaseURL:     "http://example.invalid",
		Interceptor: interceptor,
		Parser:      JSONParser{},
	}
	require.NoError(t, m.RegisterBusiness(context.Background(), cfg))
	b, ok := m.registry.lookup(id)
	require.True(t, ok)
	b.transport = transport
	return b
}

func TestManager_S1_CacheHitStashDoesNotSkipTransport(t *testing.T) {
	m := newTestManager(t)
	transport := &fakeTransport{responses: []*RawResponse{{StatusCode: 200, Data: []byte(`{"id":2}`)}}}
	registerFakeBusiness(t, m, "biz", transport, nil)

	req := Get("biz", "/users")
	req.Cache.Enable = true
	req.Cache.UseLRU = true
	key, err := computeMD5Key(req)
	require.NoError(t, err)
	require.NoError(t, m.cache.Save(key, map[string]any{"id": 1.0}, nil, true))

	m.Send(req)
	resp, err := req.Wait(context.Background())
	require.NoError(t, err)

	require.NotNil(t, req.Cache.LastResponse)
	require.Equal(t, 1.0, req.Cache.LastResponse.Data["id"])
	require.Equal(t, 1, transport.calls, "the transport must still be invoked even on a cache hit")
	require.True(t, resp.Success())
}

func TestManager_S2_RetryThenSucceed(t *testing.T) {
	m := newTestManager(t)
	timeoutErr := &TransportError{Kind: KindTimeout, Message: "timed out"}
	transport := &fakeTransport{
		responses: []*RawResponse{nil, nil, {StatusCode: 200, Data: []byte(`{"ok":true}`)}},
		errs:      []error{timeoutErr, timeoutErr, nil},
	}
	interceptor := &alwaysRetryInterceptor{}
	registerFakeBusiness(t, m, "biz", transport, interceptor)

	req := Get("biz", "/jobs")
	interval := int64(5)
	req.Retry = RetryConfig{Type: RetryLimit, Max: 3, IntervalMs: &interval}

	m.Send(req)
	resp, err := req.Wait(context.Background())
	require.NoError(t, err)

	require.Equal(t, 3, transport.calls)
	require.Equal(t, 2, req.Retry.Count())
	require.True(t, resp.Success())
	require.Equal(t, true, resp.Data["ok"])
}

func TestManager_S3_RetryBudgetExhausted(t *testing.T) {
	m := newTestManager(t)
	failure := &TransportError{Kind: KindTransportFailure, Message: "boom"}
	transport := &fakeTransport{errs: []error{failure, failure, failure}}
	interceptor := &alwaysRetryInterceptor{}
	registerFakeBusiness(t, m, "biz", transport, interceptor)

	req := Get("biz", "/jobs")
	zeroInterval := int64(0)
	req.Retry = RetryConfig{Type: RetryLimit, Max: 2, IntervalMs: &zeroInterval}

	m.Send(req)
	resp, err := req.Wait(context.Background())
	require.NoError(t, err)

	require.Equal(t, 3, transport.calls, "max=2 retries means 3 total invocations")
	require.False(t, resp.Success())
	require.Equal(t, KindTransportFailure, resp.Error.Kind)
}

func TestManager_S4_PromiseDurabilityAcrossRestart(t *testing.T) {
	cacheDB, err := sqlstore.Open(":memory:")
	require.NoError(t, err)
	defer cacheDB.Close()
	promiseDB, err := sqlstore.Open(":memory:")
	require.NoError(t, err)
	defer promiseDB.Close()

	log := logrus.NewEntry(logrus.New())
	promiseStore := NewPromiseStore(promiseDB, log)
	require.NoError(t, promiseStore.Init(context.Background()))

	req := NewRequest("biz", "POST", "/orders")
	req.Data = Body{Kind: BodyJSON, JSON: map[string]any{"x": 1.0}}
	req.Promise = PromiseConfig{Enable: true, key: newPromiseKey(req)}
	require.NoError(t, promiseStore.Save(req))

	// "Restart the process": a fresh Manager assembled by hand (rather than
	// via NewManager's async Init) over the same durable promise DB, so its
	// stores are already initialized before any request touches them.
	restartedCache, err := sqlstore.Open(":memory:")
	require.NoError(t, err)
	defer restartedCache.Close()
	cacheStore2 := NewCacheStore(restartedCache, 10, log)
	require.NoError(t, cacheStore2.Init(context.Background()))
	promiseStore2 := NewPromiseStore(promiseDB, log)
	require.NoError(t, promiseStore2.Init(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m2 := &Manager{
		log:       log,
		registry:  newBusinessRegistry(log, true),
		cache:     cacheStore2,
		promise:   promiseStore2,
		cacheDB:   restartedCache,
		promiseDB: promiseDB,
		ready:     newGate(),
	}
	m2.ready.fire()

	persisted := m2.GetPromiseRequests("biz")
	require.Len(t, persisted, 1)
	require.Equal(t, req.Promise.key, persisted[0].Promise.key)
	require.Equal(t, 1.0, persisted[0].Data.JSON["x"])

	transport := &fakeTransport{responses: []*RawResponse{{StatusCode: 200, Data: []byte(`{"ok":true}`)}}}
	registerFakeBusiness(t, m2, "biz", transport, nil)

	replayed, err := m2.ReplayPromises(ctx, "biz")
	require.NoError(t, err)
	require.Len(t, replayed, 1)

	resp, err := replayed[0].Wait(ctx)
	require.NoError(t, err)
	require.True(t, resp.Success())

	require.Empty(t, m2.GetPromiseRequests("biz"))
}

func TestManager_S5_SuspendWithPassThrough(t *testing.T) {
	m := newTestManager(t)
	transport := &fakeTransport{responses: []*RawResponse{{StatusCode: 200, Data: []byte(`{}`)}}}
	interceptor := &FakeInterceptorAllow{allow: map[string]bool{"A": true, "B": false}}
	registerFakeBusiness(t, m, "biz", transport, interceptor)

	m.Suspend("biz")

	reqA := Get("biz", "/a")
	reqA.ExtraTag = "A"
	reqB := Get("biz", "/b")
	reqB.ExtraTag = "B"

	m.Send(reqA)
	m.Send(reqB)

	ctxA, cancelA := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancelA()
	respA, err := reqA.Wait(ctxA)
	require.NoError(t, err)
	require.True(t, respA.Success(), "A's AllowRequestPassWhenSuspend=true must bypass suspension")

	select {
	case <-reqB.Completion():
		t.Fatal("B must not complete while suspended")
	case <-time.After(100 * time.Millisecond):
	}

	m.Resume("biz")
	ctxB, cancelB := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancelB()
	respB, err := reqB.Wait(ctxB)
	require.NoError(t, err)
	require.True(t, respB.Success())
}

func TestManager_S6_LRUEvictionAndDBCoherence(t *testing.T) {
	m, err := NewManager(WithCacheDB(":memory:"), WithPromiseDB(":memory:"), WithCacheCapacity(2))
	require.NoError(t, err)
	defer m.Release()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.WaitReady(ctx))

	require.NoError(t, m.cache.Save("k1", map[string]any{}, nil, true))
	require.NoError(t, m.cache.Save("k2", map[string]any{}, nil, true))
	require.NoError(t, m.cache.Save("k3", map[string]any{}, nil, true))

	_, ok := m.cache.Load("k1", true)
	require.False(t, ok)
	_, ok = m.cache.Load("k2", true)
	require.True(t, ok)
	_, ok = m.cache.Load("k3", true)
	require.True(t, ok)

	rows, err := m.cacheDB.ScanCache(true)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

// --- shared fakes for this file ---

type alwaysRetryInterceptor struct {
	NoopInterceptor
}

func (alwaysRetryInterceptor) NeedRetry(req *Request, resp *Response) bool { return resp.Error != nil }

type FakeInterceptorAllow struct {
	NoopInterceptor
	allow map[string]bool
}

func (f *FakeInterceptorAllow) AllowRequestPassWhenSuspend(req *Request) bool {
	return f.allow[req.ExtraTag]
}

func TestCompletion_WritesOnlyOnce(t *testing.T) {
	c := newCompletion()
	c.complete(Response{Error: &Error{Kind: KindTimeout}})
	c.complete(Response{}) // discarded

	resp := <-c.ch()
	require.NotNil(t, resp.Error)
	require.Equal(t, KindTimeout, resp.Error.Kind)

	select {
	case <-c.ch():
		t.Fatal("completion slot must only ever deliver one value")
	default:
	}
}
