package linkbridge

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/linkbridge/linkbridge/internal/sqlstore"
)

func newTestPromiseStore(t *testing.T) *PromiseStore {
	t.Helper()
	db, err := sqlstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewPromiseStore(db, logrus.NewEntry(logrus.New()))
	require.NoError(t, store.Init(context.Background()))
	return store
}

func TestPromiseStore_SaveLoadDelete(t *testing.T) {
	store := newTestPromiseStore(t)

	req := NewRequest("biz", "GET", "/widgets")
	req.Promise = PromiseConfig{Enable: true, key: newPromiseKey(req)}
	req.ExtraTag = "batch-42"

	require.NoError(t, store.Save(req))

	loaded := store.LoadBusinessRequests("biz", nil)
	require.Len(t, loaded, 1)
	require.Equal(t, req.Promise.key, loaded[0].Promise.key)
	require.Equal(t, "batch-42", loaded[0].ExtraTag)
	require.Equal(t, "/widgets", loaded[0].APIPath)

	require.NoError(t, store.Delete("biz", req.Promise.key))
	require.Empty(t, store.LoadBusinessRequests("biz", nil))
}

func TestPromiseStore_LoadFiltersByPath(t *testing.T) {
	store := newTestPromiseStore(t)

	first := NewRequest("biz", "GET", "/a")
	first.Promise = PromiseConfig{Enable: true, key: newPromiseKey(first)}
	second := NewRequest("biz", "GET", "/b")
	second.Promise = PromiseConfig{Enable: true, key: newPromiseKey(second)}

	require.NoError(t, store.Save(first))
	require.NoError(t, store.Save(second))

	filtered := store.LoadBusinessRequests("biz", []string{"/a"})
	require.Len(t, filtered, 1)
	require.Equal(t, "/a", filtered[0].APIPath)
}

func TestPromiseStore_InitRehydratesAcrossRestart(t *testing.T) {
	db, err := sqlstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewPromiseStore(db, logrus.NewEntry(logrus.New()))
	require.NoError(t, store.Init(context.Background()))

	req := NewRequest("biz", "POST", "/orders")
	req.Data = Body{Kind: BodyJSON, JSON: map[string]any{"qty": 3.0}}
	req.Promise = PromiseConfig{Enable: true, key: newPromiseKey(req)}
	require.NoError(t, store.Save(req))

	// Simulate a process restart: a fresh store over the same *sqlstore.DB.
	restarted := NewPromiseStore(db, logrus.NewEntry(logrus.New()))
	require.NoError(t, restarted.Init(context.Background()))

	loaded := restarted.LoadBusinessRequests("biz", nil)
	require.Len(t, loaded, 1)
	require.Equal(t, req.Promise.key, loaded[0].Promise.key)
	require.Equal(t, 3.0, loaded[0].Data.JSON["qty"])
}

func TestPromiseStore_ClearTruncatesEverything(t *testing.T) {
	store := newTestPromiseStore(t)
	req := NewRequest("biz", "GET", "/x")
	req.Promise = PromiseConfig{Enable: true, key: newPromiseKey(req)}
	require.NoError(t, store.Save(req))

	require.NoError(t, store.Clear())
	require.Empty(t, store.LoadBusinessRequests("biz", nil))
}
