package appstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nfrund/profilesync/internal/config"
	"github.com/nfrund/profilesync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(&config.Config{AppStoreURL: srv.URL, AppStoreTimeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func TestClient_PatchUser(t *testing.T) {
	var got domain.UserRecord
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/users/user_123", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	rec := domain.UserRecord{Username: "alice", Bio: "hi", Posts: []string{"p1"}}
	require.NoError(t, c.PatchUser(context.Background(), "user_123", "tok", rec))
	assert.Equal(t, rec, got)
}

func TestClient_GetUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = io.WriteString(w, `{"id":"user_123","username":"alice","bio":"hi"}`)
	})

	rec, err := c.GetUser(context.Background(), "user_123", "tok")
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.Username)
	assert.Equal(t, "user_123", rec.ID)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"structured", http.StatusForbidden, `{"code":"forbidden","message":"Not allowed to access this user"}`, "Not allowed to access this user"},
		{"plain", http.StatusInternalServerError, `oops`, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			err := c.PatchUser(context.Background(), "user_123", "tok", domain.UserRecord{Username: "alice"})

			var netErr *domain.NetworkError
			require.ErrorAs(t, err, &netErr)
			assert.Equal(t, tt.status, netErr.Status)
			assert.Equal(t, tt.wantMsg, netErr.Message)
			assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c, err := NewClient(&config.Config{AppStoreURL: srv.URL, AppStoreTimeout: 50 * time.Millisecond})
	require.NoError(t, err)

	err = c.PatchUser(context.Background(), "user_123", "tok", domain.UserRecord{Username: "alice"})
	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Zero(t, netErr.Status)
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(&config.Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
