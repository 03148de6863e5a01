// convenience.go
// --------------
// Thin constructors over NewRequest for the common verbs, so callers don't
// hand-build a Request and set Method/APIPath themselves for the ordinary
// case. Non-core: everything here is expressible with NewRequest directly.
package linkbridge

// Get builds a GET Request against businessIdentifier/apiPath.
func Get(businessIdentifier, apiPath string) *Request {
	return NewRequest(businessIdentifier, "GET", apiPath)
}

// Post builds a POST Request carrying a JSON body.
func Post(businessIdentifier, apiPath string, body map[string]any) *Request {
	req := NewRequest(businessIdentifier, "POST", apiPath)
	req.Data = Body{Kind: BodyJSON, JSON: body}
	return req
}

// Put builds a PUT Request carrying a JSON body.
func Put(businessIdentifier, apiPath string, body map[string]any) *Request {
	req := NewRequest(businessIdentifier, "PUT", apiPath)
	req.Data = Body{Kind: BodyJSON, JSON: body}
	return req
}

// Delete builds a DELETE Request against businessIdentifier/apiPath.
func Delete(businessIdentifier, apiPath string) *Request {
	return NewRequest(businessIdentifier, "DELETE", apiPath)
}
