package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckLighterToken(t *testing.T) {
	g := New(zap.NewNop())
	ctx := context.Background()

	t.Run("rejects empty token", func(t *testing.T) {
		err := g.CheckLighterToken(ctx, "http://unused", "", 42)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not set")
	})

	t.Run("rejects token without ro prefix", func(t *testing.T) {
		err := g.CheckLighterToken(ctx, "http://unused", "full-access-token", 42)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not read-only")
	})

	t.Run("accepts token the account endpoint authenticates", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/account", r.URL.Path)
			assert.Equal(t, "ro:abc", r.URL.Query().Get("auth"))
			assert.Equal(t, "index", r.URL.Query().Get("by"))
			assert.Equal(t, "42", r.URL.Query().Get("value"))
			w.Write([]byte(`{"accounts":[]}`))
		}))
		defer srv.Close()

		require.NoError(t, g.CheckLighterToken(ctx, srv.URL, "ro:abc", 42))
	})

	t.Run("rejects token the account endpoint denies", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad token", http.StatusUnauthorized)
		}))
		defer srv.Close()

		err := g.CheckLighterToken(ctx, srv.URL, "ro:abc", 42)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 401")
	})
}
