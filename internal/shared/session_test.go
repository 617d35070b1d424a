package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "kl_session", "secret", time.Hour, false), mr
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	sm, mr := newTestManager(t)

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())
	sess.SetUser("7")
	sess.Set("k", "v")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, nil, sess))
	assert.True(t, mr.Exists("kitchenledger:session:"+sess.ID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.True(t, loaded.Authenticated())
	assert.Equal(t, "v", loaded.Get("k"))
}

func TestSessionUnknownCookieGetsFreshID(t *testing.T) {
	sm, _ := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "kl_session", Value: "forged"})

	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "forged", sess.ID)
}

func TestSessionRenewDropsOldID(t *testing.T) {
	ctx := context.Background()
	sm, mr := newTestManager(t)

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), nil, sess))
	oldID := sess.ID

	sess.isNew = false
	sm.Renew(sess)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), nil, sess))
	assert.NotEqual(t, oldID, sess.ID)
	assert.False(t, mr.Exists("kitchenledger:session:"+oldID))
	assert.True(t, mr.Exists("kitchenledger:session:"+sess.ID))
}

func TestSessionDestroy(t *testing.T) {
	ctx := context.Background()
	sm, mr := newTestManager(t)

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), nil, sess))

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, nil, sess))
	assert.False(t, mr.Exists("kitchenledger:session:"+sess.ID))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
