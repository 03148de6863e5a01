// request.go
// ----------
// Request is the value object a caller builds and hands to the Manager. It
// describes one HTTP call plus the retry/cache/promise/mock configuration
// that governs how the Manager drives it through the request lifecycle.
//
// Everything on Request is immutable after Send except retry.count,
// cache.md5Key, and promise.key, all written by the Manager (see
// manager.go): retry.count is incremented once per retry, while md5Key and
// promise.key are each written at most once.
package linkbridge

import (
	"context"
	"strconv"
	"time"
)

// BodyKind tags which shape a Request's body takes. Only Json and Text are
// serializable, and therefore eligible for promise persistence and cache-key
// hashing; Stream carries an opaque payload (e.g. multipart) that the
// Manager passes straight through to the Transport.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyJSON
	BodyText
	BodyStream
)

// Body is the tagged variant described in the design notes: a Request's
// payload is exactly one of a JSON mapping, a raw string, or an opaque
// stream reader.
type Body struct {
	Kind   BodyKind
	JSON   map[string]any
	Text   string
	Stream any
}

// Serializable reports whether the body can be hashed for a cache key and
// persisted as a promise record.
func (b Body) Serializable() bool {
	return b.Kind == BodyNone || b.Kind == BodyJSON || b.Kind == BodyText
}

// RetryType selects the retry policy that governs a Request.
type RetryType int

const (
	RetryNever RetryType = iota
	RetryLimit
	RetryForever
)

// RetryConfig is §3's retry sub-object. Count only ever increases and, under
// RetryLimit, never exceeds Max.
type RetryConfig struct {
	Type       RetryType
	Max        int
	IntervalMs *int64
	count      int
}

// Count returns the number of retries already attempted.
func (r *RetryConfig) Count() int { return r.count }

// CacheConfig is §3's cache sub-object.
type CacheConfig struct {
	Enable       bool
	UseLRU       bool
	IgnoreOnce   bool
	Duration     *time.Duration
	md5Key       string
	LastResponse *Response
}

// MD5Key returns the cache key computed for this request, or "" if it has
// not been computed yet (computed once, immediately before the first send).
func (c *CacheConfig) MD5Key() string { return c.md5Key }

// PromiseConfig is §3's promise sub-object. Key is unset until enlistment.
type PromiseConfig struct {
	Enable bool
	key    string
}

// Key returns the promise key assigned at enlistment, or "" before that.
func (p *PromiseConfig) Key() string { return p.key }

// MockConfig is §3's mock sub-object.
type MockConfig struct {
	Enable     bool
	ProjectID  int
	OriginPath string
}

// EffectivePath returns "/mock/{projectId}{originPath}" per §3.
func (m MockConfig) EffectivePath() string {
	if !m.Enable {
		return ""
	}
	return "/mock/" + strconv.Itoa(m.ProjectID) + m.OriginPath
}

// Converter maps a decoded JSON payload into a caller-defined model type.
// Its absence means the Response carries only Data, never Model.
type Converter func(data map[string]any) (any, error)

// Request describes one HTTP call plus its retry/cache/promise/mock
// configuration and a single-fire completion slot.
type Request struct {
	BusinessIdentifier string
	Method             string
	APIPath            string
	PathParam          string
	QueryParams        map[string]any
	Data               Body
	Headers            map[string]string
	ContentType        string
	ResponseType       string
	ConnectTimeout     *time.Duration
	SendTimeout        *time.Duration
	RecvTimeout        *time.Duration

	CancelToken *CancelToken
	Converter   Converter

	Retry   RetryConfig
	Cache   CacheConfig
	Promise PromiseConfig
	Mock    MockConfig

	// ExtraTag is opaque caller data carried through promise persistence
	// untouched (§4.3).
	ExtraTag string

	completion       *completion
	requestStartTime time.Time
	preDecoded       map[string]any
}

// EffectivePath is apiPath + pathParam per §3.
func (r *Request) EffectivePath() string {
	return r.APIPath + r.PathParam
}

// NewRequest builds a Request with the defaults §3 specifies: JSON content
// and response types, a fresh cancel token, and RetryNever.
func NewRequest(businessIdentifier, method, apiPath string) *Request {
	return &Request{
		BusinessIdentifier: businessIdentifier,
		Method:             method,
		APIPath:            apiPath,
		ContentType:        "application/json",
		ResponseType:       "application/json",
		CancelToken:        NewCancelToken(),
		Retry:              RetryConfig{Type: RetryNever},
		completion:         newCompletion(),
	}
}

// Completion returns the request's one-shot result future. Callers awaiting
// the outcome of Send read from here.
func (r *Request) Completion() <-chan Response {
	return r.completion.ch()
}

// Wait blocks until the Manager (or an interceptor) resolves the completion
// slot, or ctx is done first.
func (r *Request) Wait(ctx context.Context) (Response, error) {
	select {
	case resp := <-r.completion.ch():
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

