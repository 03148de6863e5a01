// worker.go
// ---------
// backgroundWorker is the opt-in background JSON-decode path
// (non-core): a single goroutine draining a channel of decode jobs, so a
// business with UseBackgroundParser set can offload json.Unmarshal of
// large response bodies off the goroutine that just received them over
// the wire. A Manager starts one only when built WithBackgroundWorker, and
// only businesses with UseBackgroundParser set send it work.
//
// Grounded on the single-goroutine, buffered-channel worker shape
// adapters/*_adapter.go's rate limiters use for their token-refill loop,
// generalized here to a decode-job queue instead of a ticker.
package linkbridge

import "encoding/json"

type decodeJob struct {
	data   []byte
	result chan<- decodeResult
}

type decodeResult struct {
	data map[string]any
	err  error
}

type backgroundWorker struct {
	jobs chan decodeJob
	done chan struct{}
}

func newBackgroundWorker() *backgroundWorker {
	return &backgroundWorker{
		jobs: make(chan decodeJob, 64),
		done: make(chan struct{}),
	}
}

func (w *backgroundWorker) start() {
	go func() {
		for {
			select {
			case job := <-w.jobs:
				var data map[string]any
				err := json.Unmarshal(job.data, &data)
				job.result <- decodeResult{data: data, err: err}
			case <-w.done:
				return
			}
		}
	}()
}

func (w *backgroundWorker) stop() {
	close(w.done)
}

// decode submits data for background decoding and blocks until the result
// is ready. Callers use this instead of decodeJSONObject directly when
// their business opted into UseBackgroundParser.
func (w *backgroundWorker) decode(data []byte) (map[string]any, error) {
	result := make(chan decodeResult, 1)
	w.jobs <- decodeJob{data: data, result: result}
	r := <-result
	return r.data, r.err
}
