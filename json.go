// json.go
// -------
// Small JSON helpers shared by the default Parser and the cache store's
// row decoding. The JSON codec itself is an external
// collaborator per §1; this file only adapts encoding/json's output into
// the shapes the rest of the package needs.
package linkbridge

import "encoding/json"

func decodeJSONObject(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// decodeResponseBody prefers req.preDecoded, which the Manager populates
// via the background worker (worker.go) for businesses that opted into
// UseBackgroundParser, falling back to an inline decode otherwise.
func decodeResponseBody(req *Request, data []byte) (map[string]any, error) {
	if req.preDecoded != nil {
		return req.preDecoded, nil
	}
	return decodeJSONObject(data)
}
