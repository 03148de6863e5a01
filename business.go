// business.go
// -----------
// The business registry holds each business line's static configuration
// and its sibling runtime record (§4.4): transport handle(s), init gate,
// suspend gate.
//
// Grounded directly on sdk.go's providers map[string]ProviderAdapter +
// configs map[string]*ProviderConfig pair, generalized into one record per
// business holding both, since §4.4 explicitly pairs "static config" with
// "runtime info" for each business line.
package linkbridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig configures the optional per-business circuit
// breaker enrichment (SPEC_FULL.md §11.1). A nil *CircuitBreakerConfig on
// BusinessConfig disables it.
type CircuitBreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64 // trips when TotalFailures/Requests >= this, given >= MaxRequests observed
}

// BusinessConfig is a business line's static configuration (§4.4).
type BusinessConfig struct {
	Identifier      string
	BaseURL         string
	MockBaseURL     string
	Interceptor     Interceptor
	Parser          Parser
	ConnectTimeout  time.Duration
	SendTimeout     time.Duration
	RecvTimeout     time.Duration
	RetryIntervalMs int64
	CircuitBreaker  *CircuitBreakerConfig

	// UseBackgroundParser opts this business into the background JSON
	// worker (worker.go) when the Manager was built WithBackgroundWorker;
	// non-core, defaults off.
	UseBackgroundParser bool
}

// business pairs a BusinessConfig with its runtime record.
type business struct {
	cfg BusinessConfig

	initGate *gate

	suspendMu   sync.Mutex
	suspended   bool
	suspendGate *gate

	transport     Transport
	mockTransport Transport
	breaker       *gobreaker.CircuitBreaker[*RawResponse]
}

func newBusiness(cfg BusinessConfig) *business {
	return &business{
		cfg:         cfg,
		initGate:    newGate(),
		suspendGate: newGate(),
	}
}

// businessRegistry is the process-wide singleton §4.4 describes, owned
// exclusively by the Manager.
type businessRegistry struct {
	mu         sync.Mutex
	businesses map[string]*business
	log        *logrus.Entry
	isDebug    bool
}

func newBusinessRegistry(log *logrus.Entry, isDebug bool) *businessRegistry {
	return &businessRegistry{
		businesses: make(map[string]*business),
		log:        log.WithField("component", "business_registry"),
		isDebug:    isDebug,
	}
}

func (r *businessRegistry) lookup(id string) (*business, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.businesses[id]
	return b, ok
}

// identifiers returns every currently registered business identifier.
func (r *businessRegistry) identifiers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.businesses))
	for id := range r.businesses {
		ids = append(ids, id)
	}
	return ids
}

// configs returns a snapshot of every registered business's static config.
func (r *businessRegistry) configs() []BusinessConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]BusinessConfig, 0, len(r.businesses))
	for _, b := range r.businesses {
		out = append(out, b.cfg)
	}
	return out
}

// Register performs §4.4's steps in order: create the runtime record and
// register it (idempotent per identifier), wait for the Manager's global
// init gate, run the interceptor's InitialData, construct the transport(s),
// hand them to SetupTransport, then fire this business's init gate.
func (r *businessRegistry) Register(ctx context.Context, cfg BusinessConfig, managerReady <-chan struct{}) error {
	if cfg.Identifier == "" {
		return fmt.Errorf("business: identifier must not be empty")
	}
	if cfg.Interceptor == nil {
		cfg.Interceptor = NoopInterceptor{}
	}
	if cfg.Parser == nil {
		cfg.Parser = JSONParser{}
	}

	r.mu.Lock()
	if _, exists := r.businesses[cfg.Identifier]; exists {
		r.mu.Unlock()
		return nil // registration is idempotent per identifier
	}
	b := newBusiness(cfg)
	r.businesses[cfg.Identifier] = b
	r.mu.Unlock()

	select {
	case <-managerReady:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := cfg.Interceptor.InitialData(ctx); err != nil {
		return fmt.Errorf("business %s: initial data: %w", cfg.Identifier, err)
	}

	b.transport = NewDefaultTransport(cfg.BaseURL, cfg.ConnectTimeout)
	cfg.Interceptor.SetupTransport(b.transport, false)

	if cfg.MockBaseURL != "" && r.isDebug {
		b.mockTransport = NewDefaultTransport(cfg.MockBaseURL, cfg.ConnectTimeout)
		cfg.Interceptor.SetupTransport(b.mockTransport, true)
	}

	if cfg.CircuitBreaker != nil {
		b.breaker = newCircuitBreaker(cfg.Identifier, cfg.CircuitBreaker, r.log)
	}

	b.initGate.fire()
	r.log.WithField("business", cfg.Identifier).Info("business registered")
	return nil
}

// suspend sets business id's suspend gate. Double-suspend is a no-op.
func (r *businessRegistry) suspend(id string) {
	b, ok := r.lookup(id)
	if !ok {
		return
	}
	b.suspendMu.Lock()
	defer b.suspendMu.Unlock()
	if b.suspended {
		return
	}
	b.suspended = true
	b.suspendGate.reset()
}

// resume clears business id's suspend gate. Double-resume is a no-op.
func (r *businessRegistry) resume(id string) {
	b, ok := r.lookup(id)
	if !ok {
		return
	}
	b.suspendMu.Lock()
	defer b.suspendMu.Unlock()
	if !b.suspended {
		return
	}
	b.suspended = false
	b.suspendGate.fire()
}

// isSuspended reports business id's current suspend state.
func (b *business) isSuspended() bool {
	b.suspendMu.Lock()
	defer b.suspendMu.Unlock()
	return b.suspended
}

// awaitSuspendClear blocks the calling request in step B of §4.5 until this
// business is resumed, or done fires first. A request that arrives while
// the business is not suspended returns immediately without touching the
// gate at all, so it can never observe a suspend cycle that starts after it.
func (b *business) awaitSuspendClear(done <-chan struct{}) {
	b.suspendMu.Lock()
	suspended := b.suspended
	sg := b.suspendGate
	b.suspendMu.Unlock()
	if !suspended {
		return
	}
	sg.wait(done)
}

func newCircuitBreaker(name string, cfg *CircuitBreakerConfig, log *logrus.Entry) *gobreaker.CircuitBreaker[*RawResponse] {
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = 0.6
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MaxRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"business": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
		},
	}
	return gobreaker.NewCircuitBreaker[*RawResponse](settings)
}
