// logging.go
// ----------
// Structured logging setup (SPEC_FULL.md §10.1). The Manager, its stores,
// and its business registry each hold a *logrus.Entry pre-populated with a
// "component" field
// rather than calling the package-level logrus functions directly, so
// multiple Managers in the same process (as tests construct) don't share
// mutable global state.
package linkbridge

import "github.com/sirupsen/logrus"

// defaultLogger returns a *logrus.Entry safe to embed in a Manager when the
// caller does not supply one via WithLogger.
func defaultLogger() *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log.WithField("component", "linkbridge")
}
