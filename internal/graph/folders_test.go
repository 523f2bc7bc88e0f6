package graph

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureFolderPathCreatesMissingSegments(t *testing.T) {
	var createBody map[string]any
	var createParentPath string

	mux := http.NewServeMux()

	mux.HandleFunc("/v1.0/me/drive/root:/Backups", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "backups-id", "name": "Backups", "folder": map[string]any{}})
	})

	mux.HandleFunc("/v1.0/me/drive/root:/Backups/host1", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusNotFound)
	})

	mux.HandleFunc("/v1.0/me/drive/items/backups-id/children", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		createParentPath = r.URL.Path

		require.NoError(t, json.NewDecoder(r.Body).Decode(&createBody))

		_ = json.NewEncoder(w).Encode(map[string]any{"id": "host1-id", "name": "host1", "folder": map[string]any{}})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newClientWithBaseURL(srv.URL, srv.Client(), StaticTokenSource("t"), slog.Default(), "test/1.0", DefaultTimeouts())

	id, err := client.ensureFolderPath(context.Background(), &Resolved{APIVersion: "/v1.0", DrivePath: "/me/drive", RootPath: "/Backups/host1"})
	require.NoError(t, err)
	assert.Equal(t, "host1-id", id)

	assert.Equal(t, "/v1.0/me/drive/items/backups-id/children", createParentPath)
	assert.Equal(t, "host1", createBody["name"])
	assert.Contains(t, createBody, "folder")
}

func TestEnsureFolderPathAllSegmentsExist(t *testing.T) {
	var createCalled bool

	mux := http.NewServeMux()

	mux.HandleFunc("/v1.0/me/drive/root:/Backups", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "backups-id", "name": "Backups", "folder": map[string]any{}})
	})

	mux.HandleFunc("/v1.0/me/drive/root:/Backups/host1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "host1-id", "name": "host1", "folder": map[string]any{}})
	})

	mux.HandleFunc("/v1.0/me/drive/items/backups-id/children", func(w http.ResponseWriter, r *http.Request) {
		createCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newClientWithBaseURL(srv.URL, srv.Client(), StaticTokenSource("t"), slog.Default(), "test/1.0", DefaultTimeouts())

	id, err := client.ensureFolderPath(context.Background(), &Resolved{APIVersion: "/v1.0", DrivePath: "/me/drive", RootPath: "/Backups/host1"})
	require.NoError(t, err)
	assert.Equal(t, "host1-id", id)
	assert.False(t, createCalled)
}
