// manager.go
// ----------
// Manager is the process-wide orchestrator: it owns the business registry,
// the cache store, the promise store, and drives every Request through the
// lifecycle state machine §4.5 describes (steps A-G).
//
// Grounded on sdk.go's SDK.Request method, which resolved a provider,
// applied its rate limiter, and executed with retry synchronously; here
// generalized into an asynchronous state machine that a goroutine per
// Request drives to completion, since §4.5 explicitly separates "resolve
// business" / "wait gates" / "pre-request" / "transport" / "parse" /
// "retry decision" / "finalize" into named steps a caller never blocks on
// (Send returns the Request immediately; callers await Completion()).
package linkbridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/linkbridge/linkbridge/internal/sqlstore"
	"github.com/linkbridge/linkbridge/metrics"
)

// Manager is the single entry point applications construct. It is safe for
// concurrent use by many goroutines.
type Manager struct {
	log      *logrus.Entry
	metrics  *metrics.Metrics
	registry *businessRegistry

	cache   *CacheStore
	promise *PromiseStore

	cacheDB   *sqlstore.DB
	promiseDB *sqlstore.DB

	ready *gate

	worker *backgroundWorker
}

// NewManager opens the durable stores, starts their asynchronous
// initialization, and returns immediately; the Manager's global init gate
// fires once both stores have finished loading (§4.4's "global init"). Any
// business registered before then simply waits on that gate itself.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	cacheDB, err := sqlstore.Open(cfg.cacheDBPath)
	if err != nil {
		return nil, fmt.Errorf("linkbridge: open cache db: %w", err)
	}
	promiseDB, err := sqlstore.Open(cfg.promiseDBPath)
	if err != nil {
		return nil, fmt.Errorf("linkbridge: open promise db: %w", err)
	}

	log := cfg.logger.WithField("component", "manager")
	m := &Manager{
		log:       log,
		metrics:   cfg.metrics,
		registry:  newBusinessRegistry(log, cfg.debug),
		cache:     NewCacheStore(cacheDB, cfg.cacheCapacity, log),
		promise:   NewPromiseStore(promiseDB, log),
		cacheDB:   cacheDB,
		promiseDB: promiseDB,
		ready:     newGate(),
	}
	if cfg.backgroundWorker {
		m.worker = newBackgroundWorker()
		m.worker.start()
	}

	go func() {
		ctx := context.Background()
		if err := m.cache.Init(ctx); err != nil {
			m.log.WithError(err).Error("cache store init failed")
		}
		if err := m.promise.Init(ctx); err != nil {
			m.log.WithError(err).Error("promise store init failed")
		}
		m.ready.fire()
		m.log.Info("manager ready")
	}()

	return m, nil
}

// WaitReady blocks until both durable stores have finished loading, or ctx
// is done first.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready.channel():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release closes both durable stores and stops the background worker, if
// one was started. Callers shut a Manager down with this once no more
// Requests will be sent.
func (m *Manager) Release() error {
	if m.worker != nil {
		m.worker.stop()
	}
	if err := m.cacheDB.Close(); err != nil {
		return fmt.Errorf("linkbridge: close cache db: %w", err)
	}
	if err := m.promiseDB.Close(); err != nil {
		return fmt.Errorf("linkbridge: close promise db: %w", err)
	}
	return nil
}

// RegisterBusiness runs §4.4's registration sequence for cfg, blocking
// until it completes (or ctx is done). It is idempotent per identifier.
func (m *Manager) RegisterBusiness(ctx context.Context, cfg BusinessConfig) error {
	return m.registry.Register(ctx, cfg, m.ready.channel())
}

// Suspend suspends the named businesses, or every registered business if
// ids is empty. Suspending an already-suspended business is a no-op.
func (m *Manager) Suspend(ids ...string) {
	if len(ids) == 0 {
		ids = m.registry.identifiers()
	}
	for _, id := range ids {
		m.registry.suspend(id)
	}
}

// Resume resumes the named businesses, or every registered business if ids
// is empty. Resuming a business that isn't suspended is a no-op.
func (m *Manager) Resume(ids ...string) {
	if len(ids) == 0 {
		ids = m.registry.identifiers()
	}
	for _, id := range ids {
		m.registry.resume(id)
	}
}

// CleanData clears both durable stores and notifies every registered
// business's interceptor via OnCleanData (§4.4).
func (m *Manager) CleanData(ctx context.Context) error {
	if err := m.cache.Clear(); err != nil {
		return err
	}
	if err := m.promise.Clear(); err != nil {
		return err
	}
	for _, cfg := range m.registry.configs() {
		if err := cfg.Interceptor.OnCleanData(ctx); err != nil {
			m.log.WithError(err).WithField("business", cfg.Identifier).Warn("OnCleanData failed")
		}
	}
	return nil
}

// GetPromiseRequests returns businessID's persisted, not-yet-completed
// Requests, optionally filtered to apiPaths. Available once the global init
// gate has fired.
func (m *Manager) GetPromiseRequests(businessID string, apiPaths ...string) []*Request {
	return m.promise.LoadBusinessRequests(businessID, apiPaths)
}

// Send hands req to the Manager and returns it immediately; the caller
// awaits the outcome on req.Completion() or req.Wait(ctx). A Request whose
// promise is enabled on a non-serializable body is rejected at submission,
// per §4.6/§4.3, without ever spawning the lifecycle goroutine. A Request
// naming an unregistered business is completed synchronously with the
// fixed ConfigurationError of §4.5 step A, same reason.
func (m *Manager) Send(req *Request) *Request {
	if req.Promise.Enable && !req.Data.Serializable() {
		req.completion.complete(Response{Error: &Error{
			Kind:          KindConfigurationError,
			Code:          ConfigurationErrorCode,
			OriginMessage: ErrNotSerializable.Error(),
			Message:       "promise-enabled requests must carry a serializable body",
		}})
		return req
	}

	b, ok := m.registry.lookup(req.BusinessIdentifier)
	if !ok {
		req.completion.complete(Response{Error: NewConfigurationError(req.BusinessIdentifier)})
		return req
	}

	go m.run(req, b)
	return req
}

// run drives req through the lifecycle state machine, looping back to step
// C on each retry, until step G writes (or an interceptor claims) the
// completion slot.
func (m *Manager) run(req *Request, b *business) {
	req.requestStartTime = time.Now()
	done := req.CancelToken.Done()

	b.initGate.wait(done)
	if req.CancelToken.Cancelled() && !b.initGate.fired() {
		m.finalize(b, req, Response{Error: &Error{Kind: KindCancelled, Message: "cancelled while waiting for business init"}})
		return
	}

	if b.isSuspended() && !b.cfg.Interceptor.AllowRequestPassWhenSuspend(req) {
		b.awaitSuspendClear(done)
		if req.CancelToken.Cancelled() && b.isSuspended() {
			m.finalize(b, req, Response{Error: &Error{Kind: KindCancelled, Message: "cancelled while suspended"}})
			return
		}
	}

	for {
		m.preRequest(b, req)

		raw, transportErr := m.callTransport(req.CancelToken.Context(), b, req)

		var resp Response
		if transportErr == nil {
			resp, _ = b.cfg.Parser.HandleResponse(req, raw)
		} else {
			resp, _ = b.cfg.Parser.HandleError(req, raw, transportErr)
		}

		b.cfg.Interceptor.OnResponse(req, &resp)

		if m.shouldRetry(b, req, &resp) {
			req.Retry.count++
			m.metrics.RetryAttempt(req.BusinessIdentifier)

			delayMs := b.cfg.RetryIntervalMs
			if req.Retry.IntervalMs != nil {
				delayMs = *req.Retry.IntervalMs
			}
			timer := time.NewTimer(time.Duration(delayMs) * time.Millisecond)
			select {
			case <-timer.C:
				continue
			case <-done:
				timer.Stop()
				// Cancelled mid-delay: fall through to finalize with the
				// response already in hand rather than orphan the request.
			}
		}

		m.finalize(b, req, resp)
		return
	}
}

// preRequest is §4.5 step C: fire OnRequest, enlist into the promise store
// if requested, then attempt a cache read if requested.
func (m *Manager) preRequest(b *business, req *Request) {
	b.cfg.Interceptor.OnRequest(req)

	if req.Promise.Enable && req.Promise.key == "" {
		req.Promise.key = newPromiseKey(req)
		if err := m.promise.Save(req); err != nil {
			m.log.WithError(err).WithField("business", req.BusinessIdentifier).Warn("promise enlistment failed")
		}
		b.cfg.Interceptor.OnAddToPromise(req)
		m.metrics.PromiseEnlisted(req.BusinessIdentifier)
	}

	if !req.Cache.Enable || req.Cache.IgnoreOnce {
		return
	}
	if req.Cache.md5Key == "" {
		key, err := computeMD5Key(req)
		if err != nil {
			m.log.WithError(err).WithField("business", req.BusinessIdentifier).Warn("cache key derivation failed")
			return
		}
		req.Cache.md5Key = key
	}

	data, ok := m.cache.Load(req.Cache.md5Key, req.Cache.UseLRU)
	if !ok {
		m.metrics.CacheMiss(req.BusinessIdentifier)
		return
	}
	m.metrics.CacheHit(req.BusinessIdentifier)
	b.cfg.Interceptor.OnLoadCache(req, data)
	cached := &Response{Data: data}
	if req.Converter != nil {
		if model, err := req.Converter(data); err == nil {
			cached.Model = model
		}
	}
	req.Cache.LastResponse = cached
}

// callTransport is §4.5 step D: pick the mock or real transport, resolve
// per-call timeouts against the business defaults, and execute the call,
// optionally through that business's circuit breaker (SPEC_FULL.md §11.1).
func (m *Manager) callTransport(ctx context.Context, b *business, req *Request) (*RawResponse, error) {
	transport := b.transport
	path := req.EffectivePath()
	if m.registry.isDebug && req.Mock.Enable && b.mockTransport != nil {
		transport = b.mockTransport
		path = req.Mock.EffectivePath()
	}

	opts := TransportOptions{
		Method:       req.Method,
		ContentType:  req.ContentType,
		ResponseType: req.ResponseType,
		Headers:      req.Headers,
		SendTimeout:  resolveDuration(req.SendTimeout, b.cfg.SendTimeout),
		RecvTimeout:  resolveDuration(req.RecvTimeout, b.cfg.RecvTimeout),
	}

	call := func() (*RawResponse, error) {
		return transport.Request(ctx, path, req.Data, req.QueryParams, opts, nil, nil)
	}

	var raw *RawResponse
	var err error
	if b.breaker == nil {
		raw, err = call()
	} else {
		raw, err = b.breaker.Execute(call)
		if err != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)) {
			return nil, &TransportError{Kind: KindTransportFailure, Message: "circuit open", Cause: err}
		}
	}
	if err == nil && b.cfg.UseBackgroundParser && m.worker != nil && raw != nil && len(raw.Data) > 0 {
		if decoded, decodeErr := m.worker.decode(raw.Data); decodeErr == nil {
			req.preDecoded = decoded
		}
	}
	return raw, err
}

func resolveDuration(override *time.Duration, fallback time.Duration) time.Duration {
	if override != nil {
		return *override
	}
	return fallback
}

// shouldRetry is §4.5 step F's decision: RetryNever never retries,
// RetryLimit defers to the interceptor until Max is reached, RetryForever
// always defers to the interceptor.
func (m *Manager) shouldRetry(b *business, req *Request, resp *Response) bool {
	switch req.Retry.Type {
	case RetryNever:
		return false
	case RetryLimit:
		if req.Retry.count >= req.Retry.Max {
			return false
		}
		return b.cfg.Interceptor.NeedRetry(req, resp)
	case RetryForever:
		return b.cfg.Interceptor.NeedRetry(req, resp)
	default:
		return false
	}
}

// finalize is §4.5 step G: write-through the cache on a successful
// response, clear the promise record on success, record metrics, then
// write the completion slot unless the interceptor claims it.
func (m *Manager) finalize(b *business, req *Request, resp Response) {
	if req.Cache.Enable && req.Cache.md5Key != "" && resp.Error == nil && resp.Data != nil {
		b.cfg.Interceptor.OnSaveCache(req, resp.Data)
		if err := m.cache.Save(req.Cache.md5Key, resp.Data, req.Cache.Duration, req.Cache.UseLRU); err != nil {
			m.log.WithError(err).WithField("business", req.BusinessIdentifier).Warn("cache write failed")
		}
	}

	if req.Promise.Enable && req.Promise.key != "" && resp.Error == nil {
		if err := m.promise.Delete(req.BusinessIdentifier, req.Promise.key); err != nil {
			m.log.WithError(err).WithField("business", req.BusinessIdentifier).Warn("promise delete failed")
		}
		b.cfg.Interceptor.OnRemoveFromPromise(req)
		m.metrics.PromiseCompleted(req.BusinessIdentifier)
	}

	outcome := "success"
	if resp.Error != nil {
		outcome = resp.Error.Kind.String()
	}
	m.metrics.RequestCompleted(req.BusinessIdentifier, outcome, time.Since(req.requestStartTime).Seconds())

	if b.cfg.Interceptor.InterceptComplete(req, &resp) {
		return
	}
	req.completion.complete(resp)
}
