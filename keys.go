// keys.go
// -------
// Deterministic key derivation for the two identifiers the spec pins down
// precisely: the MD5 cache key (§3) and the UUIDv5 promise key (§3, §11 of
// SPEC_FULL.md). Both hash/UUID libraries are named external collaborators
// per §1; crypto/md5 is stdlib (grounded on
// dugiahuy-pave-bill/billing/middleware/idempotency/idempotency.go, which
// hashes a JSON body the same way) and google/uuid is a real dependency
// already present in this pack.
package linkbridge

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// promiseNamespace scopes every promise key this package mints, per §3's
// "UUIDv5 (namespace-scoped)" invariant.
var promiseNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("linkbridge.promise"))

// computeMD5Key implements §3's cache-key invariant exactly:
// MD5(businessIdentifier || method || apiPath || pathParam || jsonEncode(queryParams) || jsonEncode(data) if JSON).
// The result is lowercase hex, matching §6's storage convention; lookups
// are case-insensitive on input because callers always derive the key
// through this function rather than typing it by hand.
func computeMD5Key(req *Request) (string, error) {
	h := md5.New()
	h.Write([]byte(req.BusinessIdentifier))
	h.Write([]byte(req.Method))
	h.Write([]byte(req.APIPath))
	h.Write([]byte(req.PathParam))

	qp, err := json.Marshal(req.QueryParams)
	if err != nil {
		return "", err
	}
	h.Write(qp)

	if req.Data.Kind == BodyJSON {
		body, err := json.Marshal(req.Data.JSON)
		if err != nil {
			return "", err
		}
		h.Write(body)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// newPromiseKey mints the UUIDv5 promise key §3 specifies. Promise
// enlistment (§4.5 step C) happens before the cache key is computed, so this
// hashes the same request identity computeMD5Key does independently rather
// than reusing req.Cache.md5Key, which may still be unset.
func newPromiseKey(req *Request) string {
	h := md5.New()
	h.Write([]byte(req.BusinessIdentifier))
	h.Write([]byte(req.Method))
	h.Write([]byte(req.EffectivePath()))
	if qp, err := json.Marshal(req.QueryParams); err == nil {
		h.Write(qp)
	}
	if req.Data.Kind == BodyJSON {
		if body, err := json.Marshal(req.Data.JSON); err == nil {
			h.Write(body)
		}
	}
	return uuid.NewSHA1(promiseNamespace, h.Sum(nil)).String()
}
