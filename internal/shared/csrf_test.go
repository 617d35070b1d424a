package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFVerifyRequest(t *testing.T) {
	m := NewCSRFManager("csrf-secret")
	sess := &Session{ID: "abc"}

	token, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	again, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	get := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
	assert.NoError(t, m.VerifyRequest(get, sess))

	post := httptest.NewRequest(http.MethodPost, "/api/expenses", nil)
	assert.ErrorIs(t, m.VerifyRequest(post, sess), ErrCSRFTokenMissing)

	post.Header.Set(CSRFHeader, "wrong")
	assert.ErrorIs(t, m.VerifyRequest(post, sess), ErrCSRFTokenMismatch)

	post.Header.Set(CSRFHeader, token)
	assert.NoError(t, m.VerifyRequest(post, sess))
}
