// transport.go
// ------------
// Transport is the external collaborator §6 delegates the actual HTTP call
// to. The core never speaks TLS/HTTP2/connection pooling itself — that is
// entirely this contract's business, per §1's non-goals.
//
// DefaultTransport is a concrete, net/http-based implementation grounded on
// the teacher's adapters/doppler_adapter.go, generalized to carry the
// timeout/cancellation/progress-callback surface the contract specifies.
package linkbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ProgressFunc reports byte counts as a request body is sent or a response
// body is received.
type ProgressFunc func(sent, total int64)

// TransportOptions carries the per-call knobs the Manager resolves from a
// Request and its business defaults before invoking a Transport.
type TransportOptions struct {
	Method      string
	ContentType string
	ResponseType string
	Headers     map[string]string
	SendTimeout time.Duration
	RecvTimeout time.Duration
}

// RawResponse is what a Transport call returns on the wire, before the
// business's Parser turns it into a Response.
type RawResponse struct {
	StatusCode int
	Headers    map[string][]string
	Data       []byte
	Raw        any
}

// TransportError is a typed failure distinguishable from a generic error,
// so the Manager can suppress stack traces for expected transport failures
// per §6.
type TransportError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("linkbridge: transport %s: %s", e.Kind, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Transport is the contract §6 defines: build and execute one HTTP call.
type Transport interface {
	Request(ctx context.Context, path string, body Body, query map[string]any, opts TransportOptions, onSend, onRecv ProgressFunc) (*RawResponse, error)
}

// DefaultTransport is a net/http-backed Transport for a single business's
// base URL, in the same style adapters/doppler_adapter.go builds one
// *http.Request per call.
type DefaultTransport struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewDefaultTransport builds a DefaultTransport with the given base URL.
// connectTimeout, when positive, becomes the underlying http.Client's
// Timeout, which bounds the whole exchange rather than only the connect.
func NewDefaultTransport(baseURL string, connectTimeout time.Duration) *DefaultTransport {
	client := &http.Client{}
	if connectTimeout > 0 {
		client.Timeout = connectTimeout
	}
	return &DefaultTransport{BaseURL: baseURL, HTTPClient: client}
}

func (t *DefaultTransport) Request(ctx context.Context, path string, body Body, query map[string]any, opts TransportOptions, onSend, onRecv ProgressFunc) (*RawResponse, error) {
	fullURL := t.BaseURL + path
	if q := encodeQuery(query); q != "" {
		if strings.Contains(fullURL, "?") {
			fullURL += "&" + q
		} else {
			fullURL += "?" + q
		}
	}

	var reader io.Reader
	switch body.Kind {
	case BodyJSON:
		encoded, err := json.Marshal(body.JSON)
		if err != nil {
			return nil, &TransportError{Kind: KindParseError, Message: "encode json body", Cause: err}
		}
		reader = bytes.NewReader(encoded)
	case BodyText:
		reader = strings.NewReader(body.Text)
	case BodyStream:
		if r, ok := body.Stream.(io.Reader); ok {
			reader = r
		}
	}

	if opts.SendTimeout > 0 || opts.RecvTimeout > 0 {
		var cancel context.CancelFunc
		timeout := opts.SendTimeout + opts.RecvTimeout
		if opts.SendTimeout == 0 {
			timeout = opts.RecvTimeout
		} else if opts.RecvTimeout == 0 {
			timeout = opts.SendTimeout
		}
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, opts.Method, fullURL, reader)
	if err != nil {
		return nil, &TransportError{Kind: KindTransportFailure, Message: "build request", Cause: err}
	}
	for k, v := range opts.Headers {
		httpReq.Header.Set(k, v)
	}
	if httpReq.Header.Get("Content-Type") == "" && opts.ContentType != "" {
		httpReq.Header.Set("Content-Type", opts.ContentType)
	}

	resp, err := t.HTTPClient.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &TransportError{Kind: KindTimeout, Message: "deadline exceeded", Cause: err}
		}
		if ctx.Err() == context.Canceled {
			return nil, &TransportError{Kind: KindCancelled, Message: "cancelled", Cause: err}
		}
		return nil, &TransportError{Kind: KindTransportFailure, Message: "do request", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Kind: KindTransportFailure, Message: "read body", Cause: err}
	}
	if onRecv != nil {
		onRecv(int64(len(data)), int64(len(data)))
	}

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Data:       data,
		Raw:        resp,
	}, nil
}

func encodeQuery(query map[string]any) string {
	if len(query) == 0 {
		return ""
	}
	values := url.Values{}
	for k, v := range query {
		values.Set(k, fmt.Sprintf("%v", v))
	}
	return values.Encode()
}
