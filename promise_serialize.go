// promise_serialize.go
// --------------------
// Serializes a Request to the JSON format §4.3 pins down for promise
// persistence, and reconstructs one "as if freshly created" on load.
// Grounded on dugiahuy-pave-bill/billing/middleware/idempotency's
// JSON-marshal-the-payload pattern, generalized to cover a whole Request.
package linkbridge

import (
	"encoding/json"
	"fmt"
	"time"
)

type promiseBody struct {
	Kind BodyKind `json:"kind"`
	JSON map[string]any `json:"json,omitempty"`
	Text string `json:"text,omitempty"`
}

type promiseRetry struct {
	Type       RetryType `json:"type"`
	Max        int       `json:"max"`
	IntervalMs *int64    `json:"intervalMs,omitempty"`
}

type promiseCache struct {
	Enable     bool  `json:"enable"`
	UseLRU     bool  `json:"useLRU"`
	IgnoreOnce bool  `json:"ignoreOnce"`
	DurationS  *int64 `json:"durationSeconds,omitempty"`
}

type promisePromise struct {
	Enable bool   `json:"enable"`
	Key    string `json:"key"`
}

type promiseMock struct {
	Enable     bool   `json:"enable"`
	ProjectID  int    `json:"projectId"`
	OriginPath string `json:"originPath"`
}

// promiseRecord is the exact field set §4.3 specifies for persistence.
type promiseRecord struct {
	BusinessIdentifier string            `json:"businessIdentifier"`
	Method             string            `json:"method"`
	APIPath            string            `json:"apiPath"`
	PathParam          string            `json:"pathParam"`
	QueryParams        map[string]any    `json:"queryParams"`
	ContentType        string            `json:"contentType"`
	ResponseType       string            `json:"responseType"`
	Headers            map[string]string `json:"headers"`
	SendTimeoutMs       *int64           `json:"sendTimeoutMs,omitempty"`
	ReceiveTimeoutMs    *int64           `json:"receiveTimeoutMs,omitempty"`
	Body               promiseBody       `json:"body"`
	Retry              promiseRetry      `json:"retry"`
	Cache              promiseCache      `json:"cache"`
	Promise            promisePromise    `json:"promise"`
	Mock               promiseMock       `json:"mock"`
	ExtraTag           string            `json:"extraTag"`
}

// serializeRequest encodes req per §4.3. A Stream body cannot be
// serialized; enabling promise on one is rejected at submission (the
// Manager checks this before calling here), so reaching this function with
// a Stream body is a programmer error.
func serializeRequest(req *Request) ([]byte, error) {
	if !req.Data.Serializable() {
		return nil, ErrNotSerializable
	}

	rec := promiseRecord{
		BusinessIdentifier: req.BusinessIdentifier,
		Method:             req.Method,
		APIPath:            req.APIPath,
		PathParam:          req.PathParam,
		QueryParams:        req.QueryParams,
		ContentType:        req.ContentType,
		ResponseType:       req.ResponseType,
		Headers:            req.Headers,
		Body:               promiseBody{Kind: req.Data.Kind, JSON: req.Data.JSON, Text: req.Data.Text},
		Retry: promiseRetry{
			Type:       req.Retry.Type,
			Max:        req.Retry.Max,
			IntervalMs: req.Retry.IntervalMs,
		},
		Cache: promiseCache{
			Enable:     req.Cache.Enable,
			UseLRU:     req.Cache.UseLRU,
			IgnoreOnce: req.Cache.IgnoreOnce,
		},
		Promise: promisePromise{Enable: req.Promise.Enable, Key: req.Promise.key},
		Mock: promiseMock{
			Enable:     req.Mock.Enable,
			ProjectID:  req.Mock.ProjectID,
			OriginPath: req.Mock.OriginPath,
		},
		ExtraTag: req.ExtraTag,
	}
	if req.Cache.Duration != nil {
		secs := int64(req.Cache.Duration.Seconds())
		rec.Cache.DurationS = &secs
	}
	if req.SendTimeout != nil {
		ms := req.SendTimeout.Milliseconds()
		rec.SendTimeoutMs = &ms
	}
	if req.RecvTimeout != nil {
		ms := req.RecvTimeout.Milliseconds()
		rec.ReceiveTimeoutMs = &ms
	}

	return json.Marshal(rec)
}

// deserializeRequest reconstructs a Request "as if freshly created": a
// fresh completion slot, cancel token, and retry.count=0, while preserving
// promise.key and extraTag per §4.3.
func deserializeRequest(data []byte) (*Request, error) {
	var rec promiseRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("promise: decode record: %w", err)
	}

	req := NewRequest(rec.BusinessIdentifier, rec.Method, rec.APIPath)
	req.PathParam = rec.PathParam
	req.QueryParams = rec.QueryParams
	req.ContentType = rec.ContentType
	req.ResponseType = rec.ResponseType
	req.Headers = rec.Headers
	req.ExtraTag = rec.ExtraTag

	req.Data = Body{Kind: rec.Body.Kind, JSON: rec.Body.JSON, Text: rec.Body.Text}

	req.Retry = RetryConfig{Type: rec.Retry.Type, Max: rec.Retry.Max, IntervalMs: rec.Retry.IntervalMs}

	req.Cache = CacheConfig{Enable: rec.Cache.Enable, UseLRU: rec.Cache.UseLRU, IgnoreOnce: rec.Cache.IgnoreOnce}
	if rec.Cache.DurationS != nil {
		d := time.Duration(*rec.Cache.DurationS) * time.Second
		req.Cache.Duration = &d
	}

	req.Promise = PromiseConfig{Enable: rec.Promise.Enable, key: rec.Promise.Key}
	req.Mock = MockConfig{Enable: rec.Mock.Enable, ProjectID: rec.Mock.ProjectID, OriginPath: rec.Mock.OriginPath}

	if rec.SendTimeoutMs != nil {
		d := time.Duration(*rec.SendTimeoutMs) * time.Millisecond
		req.SendTimeout = &d
	}
	if rec.ReceiveTimeoutMs != nil {
		d := time.Duration(*rec.ReceiveTimeoutMs) * time.Millisecond
		req.RecvTimeout = &d
	}

	return req, nil
}
