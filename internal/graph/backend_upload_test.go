package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBackendAt builds a Backend whose Client dispatches against srv
// instead of the production Graph host, using package-internal
// constructors only available to tests in this package.
func newTestBackendAt(srv *httptest.Server, fragmentSize int64) *Backend {
	logger := slog.Default()
	timeouts := Timeouts{Short: 5 * time.Second, List: 5 * time.Second, ReadWrite: 5 * time.Second}

	client := newClientWithBaseURL(srv.URL, srv.Client(), StaticTokenSource("test-token"), logger, "test-agent/1.0", timeouts)
	resolver := newDriveResolver("onedrive:///Backups/host1", MeDriveResolver{}, logger)

	return &Backend{
		client:   client,
		resolver: resolver,
		logger:   logger,
		cfg: BackendConfig{
			FragmentSize:       fragmentSize,
			FragmentRetryCount: 3,
			FragmentRetryDelay: 5 * time.Millisecond,
			Timeouts:           timeouts,
		},
	}
}

func TestSimpleUploadScenario(t *testing.T) {
	requests := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/v1.0/me/drive/root:/Backups/host1/a.bin:/content", func(w http.ResponseWriter, r *http.Request) {
		requests++

		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.Len(t, body, 256)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "X", "name": "a.bin", "size": 256, "file": map[string]any{}})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := newTestBackendAt(srv, 10*1024*1024)

	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}

	item, err := b.Put(context.Background(), "a.bin", bytes.NewReader(data), 256)
	require.NoError(t, err)
	assert.Equal(t, "X", item.ID)
	assert.Equal(t, 1, requests)
}

func TestChunkedUploadScenario(t *testing.T) {
	const total = 12 * 1024 * 1024
	const fragmentSize = 5 * 1024 * 1024

	var mu sync.Mutex
	var ranges []string
	var authHeaders []string

	var srv *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/v1.0/me/drive/root:/Backups/host1/big.bin:/createUploadSession", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Empty(t, body)

		_ = json.NewEncoder(w).Encode(map[string]any{"uploadUrl": srv.URL + "/upload-1"})
	})

	fragmentCount := 0

	mux.HandleFunc("/upload-1", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ranges = append(ranges, r.Header.Get("Content-Range"))
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		fragmentCount++
		n := fragmentCount
		mu.Unlock()

		io.Copy(io.Discard, r.Body)

		if n == 3 {
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "big", "name": "big.bin"})

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"nextExpectedRanges": []string{}})
	})

	srv = httptest.NewServer(mux)
	defer srv.Close()

	b := newTestBackendAt(srv, fragmentSize)

	data := bytes.Repeat([]byte("A"), total)

	item, err := b.Put(context.Background(), "big.bin", bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, "big", item.ID)

	require.Len(t, ranges, 3)
	assert.Equal(t, fmt.Sprintf("bytes 0-%d/%d", fragmentSize-1, total), ranges[0])
	assert.Equal(t, fmt.Sprintf("bytes %d-%d/%d", fragmentSize, 2*fragmentSize-1, total), ranges[1])
	assert.Equal(t, fmt.Sprintf("bytes %d-%d/%d", 2*fragmentSize, total-1, total), ranges[2])

	for _, auth := range authHeaders {
		assert.Empty(t, auth, "fragment PUTs must be unsigned")
	}
}

func TestChunkedUploadRetriesOn503ThenSucceeds(t *testing.T) {
	const total = 12 * 1024 * 1024
	const fragmentSize = 5 * 1024 * 1024

	var mu sync.Mutex
	attempts := map[string]int{}

	var srv *httptest.Server

	secondFragmentRange := fmt.Sprintf("bytes %d-%d/%d", fragmentSize, 2*fragmentSize-1, total)
	thirdFragmentRange := fmt.Sprintf("bytes %d-%d/%d", 2*fragmentSize, total-1, total)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1.0/me/drive/root:/Backups/host1/retry.bin:/createUploadSession", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"uploadUrl": srv.URL + "/upload-retry"})
	})

	mux.HandleFunc("/upload-retry", func(w http.ResponseWriter, r *http.Request) {
		cr := r.Header.Get("Content-Range")

		mu.Lock()
		attempts[cr]++
		n := attempts[cr]
		mu.Unlock()

		io.Copy(io.Discard, r.Body)

		if cr == secondFragmentRange && n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		if cr == thirdFragmentRange {
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "retry", "name": "retry.bin"})

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"nextExpectedRanges": []string{}})
	})

	srv = httptest.NewServer(mux)
	defer srv.Close()

	b := newTestBackendAt(srv, fragmentSize)

	data := bytes.Repeat([]byte("B"), total)

	start := time.Now()
	item, err := b.Put(context.Background(), "retry.bin", bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, "retry", item.ID)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestChunkedUploadAbortsOn404(t *testing.T) {
	const total = 12 * 1024 * 1024
	const fragmentSize = 5 * 1024 * 1024

	var deleted bool
	var deleteAuth string

	var srv *httptest.Server

	secondFragmentRange := fmt.Sprintf("bytes %d-%d/%d", fragmentSize, 2*fragmentSize-1, total)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1.0/me/drive/root:/Backups/host1/lost.bin:/createUploadSession", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"uploadUrl": srv.URL + "/upload-lost"})
	})

	mux.HandleFunc("/upload-lost", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deleted = true
			deleteAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusNoContent)

			return
		}

		io.Copy(io.Discard, r.Body)

		if r.Header.Get("Content-Range") == secondFragmentRange {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"nextExpectedRanges": []string{}})
	})

	srv = httptest.NewServer(mux)
	defer srv.Close()

	b := newTestBackendAt(srv, fragmentSize)

	data := bytes.Repeat([]byte("C"), total)

	_, err := b.Put(context.Background(), "lost.bin", bytes.NewReader(data), int64(len(data)))
	require.Error(t, err)

	var sessErr *UploadSessionError
	require.True(t, errors.As(err, &sessErr))
	assert.Equal(t, 1, sessErr.FragmentIndex)
	assert.Equal(t, 3, sessErr.FragmentCount)

	assert.True(t, deleted)
	assert.Empty(t, deleteAuth)
}
