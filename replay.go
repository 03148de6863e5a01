// replay.go
// ---------
// ReplayPromises is the supplemental promise-sweep feature SPEC_FULL.md
// §11.3 adds: on process restart, a business's persisted-but-unfinished
// requests are resubmitted so they can complete (or retry to completion)
// against the now-live business, exercising scenario S4 of spec.md §8.
//
// Additive: it calls Manager.Send on freshly reconstructed Requests rather
// than adding a new lifecycle step, so §4.5 is untouched.
package linkbridge

import "context"

// ReplayPromises resubmits every persisted, not-yet-completed Request for
// businessID. Each replayed Request keeps its original promise key (so its
// eventual completion still clears the same durable row) but gets a fresh
// completion slot and cancel token, as if newly created. It returns the
// replayed Requests so a caller can await them individually.
func (m *Manager) ReplayPromises(ctx context.Context, businessID string) ([]*Request, error) {
	if err := m.WaitReady(ctx); err != nil {
		return nil, err
	}

	persisted := m.promise.LoadBusinessRequests(businessID, nil)
	replayed := make([]*Request, 0, len(persisted))
	for _, original := range persisted {
		req := NewRequest(original.BusinessIdentifier, original.Method, original.APIPath)
		req.PathParam = original.PathParam
		req.QueryParams = original.QueryParams
		req.Data = original.Data
		req.Headers = original.Headers
		req.ContentType = original.ContentType
		req.ResponseType = original.ResponseType
		req.Converter = original.Converter
		req.SendTimeout = original.SendTimeout
		req.RecvTimeout = original.RecvTimeout
		req.ExtraTag = original.ExtraTag
		req.Retry = RetryConfig{Type: original.Retry.Type, Max: original.Retry.Max, IntervalMs: original.Retry.IntervalMs}
		req.Cache = CacheConfig{Enable: original.Cache.Enable, UseLRU: original.Cache.UseLRU, IgnoreOnce: original.Cache.IgnoreOnce, Duration: original.Cache.Duration}
		req.Mock = original.Mock
		req.Promise = PromiseConfig{Enable: true, key: original.Promise.key}

		replayed = append(replayed, m.Send(req))
	}

	m.log.WithField("business", businessID).WithField("count", len(replayed)).Info("replayed persisted promises")
	return replayed, nil
}
