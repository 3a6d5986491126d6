package lms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/quiz-pipeline/config"
	apperrors "github.com/target/quiz-pipeline/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{
		Config: config.LMSConfig{BaseURL: server.URL},
	})
	require.NoError(t, err)
	return client, server
}

func TestClient_FetchDocument(t *testing.T) {
	t.Run("returns subject content", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/subjects/42", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data": {"content": "Lesson material about channels."}}`))
		})

		doc, err := client.FetchDocument(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, "Lesson material about channels.", doc)
	})

	t.Run("missing subject maps to not found", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := client.FetchDocument(context.Background(), 404)
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("server error is not a not-found", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.FetchDocument(context.Background(), 1)
		require.Error(t, err)
		assert.False(t, apperrors.IsNotFound(err))
	})

	t.Run("empty content is an error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data": {"content": ""}}`))
		})

		_, err := client.FetchDocument(context.Background(), 1)
		require.Error(t, err)
	})

	t.Run("malformed body is an error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		})

		_, err := client.FetchDocument(context.Background(), 1)
		require.Error(t, err)
	})

	t.Run("base URL is required", func(t *testing.T) {
		_, err := NewClient(ClientOptions{})
		require.Error(t, err)
	})
}
