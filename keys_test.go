package linkbridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeMD5Key_DeterministicAndSensitiveToInputs(t *testing.T) {
	base := func() *Request {
		req := NewRequest("biz", "GET", "/widgets")
		req.PathParam = "/1"
		req.QueryParams = map[string]any{"color": "red"}
		return req
	}

	key1, err := computeMD5Key(base())
	require.NoError(t, err)
	key2, err := computeMD5Key(base())
	require.NoError(t, err)
	require.Equal(t, key1, key2, "identical requests must hash identically")
	require.Len(t, key1, 32, "MD5 hex digest is 32 characters")

	changed := base()
	changed.QueryParams["color"] = "blue"
	key3, err := computeMD5Key(changed)
	require.NoError(t, err)
	require.NotEqual(t, key1, key3)

	withBody := base()
	withBody.Data = Body{Kind: BodyJSON, JSON: map[string]any{"note": "hi"}}
	key4, err := computeMD5Key(withBody)
	require.NoError(t, err)
	require.NotEqual(t, key1, key4, "a JSON body must factor into the hash")
}

func TestNewPromiseKey_IsAValidUUIDAndStableForIdenticalRequests(t *testing.T) {
	req1 := NewRequest("biz", "POST", "/orders")
	req1.Data = Body{Kind: BodyJSON, JSON: map[string]any{"qty": 2.0}}
	req2 := NewRequest("biz", "POST", "/orders")
	req2.Data = Body{Kind: BodyJSON, JSON: map[string]any{"qty": 2.0}}

	key1 := newPromiseKey(req1)
	key2 := newPromiseKey(req2)
	require.Equal(t, key1, key2)
	require.Len(t, key1, 36, "UUID string form is 36 characters including hyphens")

	req3 := NewRequest("biz", "POST", "/orders")
	req3.Data = Body{Kind: BodyJSON, JSON: map[string]any{"qty": 3.0}}
	require.NotEqual(t, key1, newPromiseKey(req3))
}
