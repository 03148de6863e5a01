// options.go
// ----------
// Functional options for NewManager, in the same WithX(...) style
// JohnPlummer-jp-go-resilience's resilience.Option builds its client
// configuration (retry policy, breaker settings, logger) up from.
package linkbridge

import (
	"github.com/sirupsen/logrus"

	"github.com/linkbridge/linkbridge/metrics"
)

type managerConfig struct {
	logger           *logrus.Entry
	metrics          *metrics.Metrics
	cacheDBPath      string
	promiseDBPath    string
	cacheCapacity    int
	debug            bool
	backgroundWorker bool
}

func defaultManagerConfig() *managerConfig {
	return &managerConfig{
		logger:        defaultLogger(),
		cacheDBPath:   "linkbridge_cache.db",
		promiseDBPath: "linkbridge_promise.db",
		cacheCapacity: 100,
	}
}

// ManagerOption configures a Manager at construction time.
type ManagerOption func(*managerConfig)

// WithLogger overrides the Manager's structured logger.
func WithLogger(log *logrus.Entry) ManagerOption {
	return func(c *managerConfig) { c.logger = log }
}

// WithMetrics wires a *metrics.Metrics into every lifecycle observation
// point (SPEC_FULL.md §11.2). Omit this option to run without metrics.
func WithMetrics(m *metrics.Metrics) ManagerOption {
	return func(c *managerConfig) { c.metrics = m }
}

// WithCacheDB sets the SQLite file backing the cache store. Use ":memory:"
// for an ephemeral store, e.g. in tests.
func WithCacheDB(path string) ManagerOption {
	return func(c *managerConfig) { c.cacheDBPath = path }
}

// WithPromiseDB sets the SQLite file backing the promise store.
func WithPromiseDB(path string) ManagerOption {
	return func(c *managerConfig) { c.promiseDBPath = path }
}

// WithCacheCapacity sets the LRU tier's bounded capacity (§4.2 defaults
// this to 100 when unset).
func WithCacheCapacity(n int) ManagerOption {
	return func(c *managerConfig) { c.cacheCapacity = n }
}

// WithDebug enables debug-only behavior: a business's mock transport is
// only constructed, and only ever selected for a mock-enabled Request, when
// the Manager is running in debug mode (§3's mock sub-object semantics).
func WithDebug(debug bool) ManagerOption {
	return func(c *managerConfig) { c.debug = debug }
}

// WithBackgroundWorker starts the background JSON-parsing worker
// (worker.go) that businesses opt into individually via
// BusinessConfig.UseBackgroundParser.
func WithBackgroundWorker() ManagerOption {
	return func(c *managerConfig) { c.backgroundWorker = true }
}
