package timing

import (
	"math"
	"sync"
	"time"

	"github.com/nao1215/pageaudit/internal/model"
)

// RequestTracker turns request start and finish events into resource samples.
// Browser event callbacks may fire on other goroutines, so it is safe for
// concurrent use.
type RequestTracker struct {
	mu      sync.Mutex
	pending map[string][]pendingRequest
	samples []model.ResourceSample
}

type pendingRequest struct {
	initiator string
	start     time.Time
}

// NewRequestTracker returns an empty tracker.
func NewRequestTracker() *RequestTracker {
	return &RequestTracker{pending: make(map[string][]pendingRequest)}
}

// Start records that a request for url began at t.
func (r *RequestTracker) Start(url, initiator string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[url] = append(r.pending[url], pendingRequest{initiator: initiator, start: t})
}

// Finish records that the oldest in-flight request for url completed at t.
// Finishing a url that was never started is ignored.
func (r *RequestTracker) Finish(url string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.pop(url)
	if !ok {
		return
	}
	ms := float64(t.Sub(req.start)) / float64(time.Millisecond)
	r.samples = append(r.samples, model.NewResourceSample(url, roundTenth(ms), req.initiator))
}

// Fail drops the oldest in-flight request for url without a sample, so a
// later request for the same url is timed from its own start.
func (r *RequestTracker) Fail(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pop(url)
}

// pop removes the oldest in-flight request for url. r.mu must be held.
func (r *RequestTracker) pop(url string) (pendingRequest, bool) {
	queue := r.pending[url]
	if len(queue) == 0 {
		return pendingRequest{}, false
	}
	req := queue[0]
	if len(queue) == 1 {
		delete(r.pending, url)
	} else {
		r.pending[url] = queue[1:]
	}
	return req, true
}

// Samples returns completed samples in completion order.
func (r *RequestTracker) Samples() []model.ResourceSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ResourceSample, len(r.samples))
	copy(out, r.samples)
	return out
}

// Reset forgets all pending and completed requests.
func (r *RequestTracker) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = make(map[string][]pendingRequest)
	r.samples = nil
}

// roundTenth rounds ms to one decimal place, as browsers report it.
func roundTenth(ms float64) float64 {
	return math.Round(ms*10) / 10
}
