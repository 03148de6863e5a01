// parser.go
// ---------
// Parser is the sole authority mapping raw HTTP responses (or transport
// errors) into the framework's Response/Error model (§6). Each business
// supplies its own, since the core is schema-agnostic (§1).
package linkbridge

import "errors"

// Parser is the per-business response/error mapper §6 specifies.
type Parser interface {
	HandleResponse(req *Request, raw *RawResponse) (Response, error)
	HandleError(req *Request, raw *RawResponse, cause error) (Response, error)
}

// JSONParser is a default Parser for JSON APIs: 2xx decodes the body as a
// JSON object and reports success; anything else, or a transport error,
// becomes a Response carrying an Error. Businesses with bespoke envelope
// conventions supply their own Parser instead.
type JSONParser struct{}

func (JSONParser) HandleResponse(req *Request, raw *RawResponse) (Response, error) {
	resp := Response{Headers: raw.Headers}

	data, decodeErr := decodeResponseBody(req, raw.Data)
	if raw.StatusCode >= 200 && raw.StatusCode < 300 {
		if decodeErr != nil {
			resp.Error = &Error{
				Kind:          KindParseError,
				Code:          raw.StatusCode,
				OriginMessage: decodeErr.Error(),
				Message:       "could not decode response body",
			}
			return resp, nil
		}
		resp.Data = data
		if req.Converter != nil {
			model, err := req.Converter(data)
			if err != nil {
				resp.Error = &Error{
					Kind:          KindParseError,
					Code:          raw.StatusCode,
					OriginMessage: err.Error(),
					Message:       "could not convert response to model",
				}
				return resp, nil
			}
			resp.Model = model
		}
		return resp, nil
	}

	resp.Data = data
	resp.Error = &Error{
		Kind:          KindServerBusinessError,
		Code:          raw.StatusCode,
		OriginMessage: string(raw.Data),
		Message:       "server responded with a non-2xx status",
		Data:          data,
	}
	return resp, nil
}

func (JSONParser) HandleError(req *Request, raw *RawResponse, cause error) (Response, error) {
	kind := KindTransportFailure
	var terr *TransportError
	if errors.As(cause, &terr) {
		kind = terr.Kind
	}
	resp := Response{
		Error: &Error{
			Kind:          kind,
			Code:          -1,
			OriginMessage: cause.Error(),
			Message:       "request failed",
			OriginError:   cause,
		},
	}
	if raw != nil {
		resp.Headers = raw.Headers
		resp.Error.Code = raw.StatusCode
	}
	return resp, nil
}

