package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"time"
)

// SimpleUploadMaxSize is the largest size (inclusive) for which put uses a
// single PUT of the whole body, per §4.7/§4.8 and Microsoft's documented 4 MB (decimal)
// simple-upload limit.
const SimpleUploadMaxSize = 4_000_000

// BackendConfig carries the construction-time configuration from §3.
type BackendConfig struct {
	FragmentSize       int64
	FragmentRetryCount int
	FragmentRetryDelay time.Duration
	Timeouts           Timeouts
}

// Backend is the uniform storage adapter described in §1: list, put, get,
// rename, delete, create-folder, quota, test, built on top of the
// resolver, the request pipeline, and the chunked upload engine.
type Backend struct {
	client   *Client
	resolver *driveResolver
	logger   *slog.Logger
	cfg      BackendConfig
}

// NewBackend constructs a Backend. rootURL is the user-supplied URL
// encoding the backup root folder path (§3); drivePathResolver supplies
// the protocol-specific apiVersion/drivePath computation (§1, §4.4).
func NewBackend(rootURL string, drivePathResolver DrivePathResolver, token TokenSource, httpClient *http.Client, logger *slog.Logger, userAgent string, cfg BackendConfig) *Backend {
	if logger == nil {
		logger = slog.Default()
	}

	client := NewClient(httpClient, token, logger, userAgent, cfg.Timeouts)

	return &Backend{
		client:   client,
		resolver: newDriveResolver(rootURL, drivePathResolver, logger),
		logger:   logger,
		cfg:      cfg,
	}
}

// urlBuilder resolves the drive path (once, memoized) and returns a
// ready-to-use urlBuilder scoped to the configured root path.
func (b *Backend) urlBuilder(ctx context.Context) (urlBuilder, error) {
	resolved, err := b.resolver.resolve(ctx)
	if err != nil {
		return urlBuilder{}, err
	}

	return newURLBuilder(resolved.APIVersion, resolved.DrivePath, resolved.RootPath), nil
}

// EnsureRoot creates every missing segment of the configured root path, per
// §4.6. Callers invoke this once before the first put against a fresh
// backup root.
func (b *Backend) EnsureRoot(ctx context.Context) error {
	resolved, err := b.resolver.resolve(ctx)
	if err != nil {
		return err
	}

	_, err = b.client.ensureFolderPath(ctx, resolved)

	return err
}

// List enumerates the children of the configured root, per §4.5.
func (b *Backend) List(ctx context.Context) (iter.Seq2[Item, error], error) {
	ub, err := b.urlBuilder(ctx)
	if err != nil {
		return nil, err
	}

	return b.client.Paginate(ctx, ub.childrenURL()), nil
}

// Put uploads name, dispatching to the simple or chunked path by size, per
// §4.7/§4.8. r must support io.ReaderAt for the chunked path to construct
// bounded per-fragment views; size must be the exact length of the stream.
func (b *Backend) Put(ctx context.Context, name string, r io.ReaderAt, size int64) (Item, error) {
	ub, err := b.urlBuilder(ctx)
	if err != nil {
		return Item{}, err
	}

	if size <= SimpleUploadMaxSize {
		return b.putSimple(ctx, ub, name, io.NewSectionReader(r, 0, size), size)
	}

	return b.client.uploadChunked(ctx, ub, name, r, size, b.cfg)
}

func (b *Backend) putSimple(ctx context.Context, ub urlBuilder, name string, body io.Reader, size int64) (Item, error) {
	idle, ctx := newIdleTimeoutReader(ctx, body, b.client.timeouts.ReadWrite)
	defer idle.Close()

	resp, err := b.client.doUpload(ctx, ub.itemVerbURL(name, "content"), idle, uploadOptions{sign: true, contentLength: size})
	if err != nil {
		return Item{}, err
	}
	defer resp.Body.Close()

	var created driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return Item{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	b.logger.Info("uploaded file", slog.String("name", name), slog.Int64("size", size))

	return created.toItem(), nil
}

// Get streams the named item's content to w, per §4.7. 404 is translated to
// ErrFileMissing. The request is dispatched under a context the idle-read
// timer can cancel directly, so a stall on the body read (which is tied to
// that same request context, not to the timer's own child context) actually
// unblocks — see §5/§9's idle-read-timeout requirement.
func (b *Backend) Get(ctx context.Context, name string, w io.Writer) error {
	ub, err := b.urlBuilder(ctx)
	if err != nil {
		return err
	}

	idleCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resp, err := b.client.doStream(idleCtx, http.MethodGet, ub.itemVerbURL(name, "content"), nil, true)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return ErrFileMissing
		}

		return err
	}
	defer resp.Body.Close()

	idle := bindIdleTimeoutReader(idleCtx, cancel, resp.Body, b.client.timeouts.ReadWrite)
	defer idle.Close()

	if _, err := io.Copy(w, idle); err != nil {
		return fmt.Errorf("graph: streaming download of %q: %w", name, err)
	}

	return nil
}

// Delete removes the named item, per §4.7. 404 is translated to
// ErrFileMissing.
func (b *Backend) Delete(ctx context.Context, name string) error {
	ub, err := b.urlBuilder(ctx)
	if err != nil {
		return err
	}

	err = b.client.doJSON(ctx, http.MethodDelete, ub.itemURL(name), nil, requestOptions{sign: true, timeout: b.client.timeouts.Short}, nil)
	if errors.Is(err, ErrItemNotFound) {
		return ErrFileMissing
	}

	return err
}

// renameRequest is the PATCH body for renaming an item, per §6.
type renameRequest struct {
	Name string `json:"name"`
}

// Rename changes the named item's name, per §4.7. 404 is translated to
// ErrFileMissing.
func (b *Backend) Rename(ctx context.Context, name, newName string) error {
	ub, err := b.urlBuilder(ctx)
	if err != nil {
		return err
	}

	err = b.client.doJSON(ctx, http.MethodPatch, ub.itemURL(name), renameRequest{Name: newName}, requestOptions{sign: true, timeout: b.client.timeouts.Short}, nil)
	if errors.Is(err, ErrItemNotFound) {
		return ErrFileMissing
	}

	return err
}

// Quota reports the drive's storage usage, per §4.7.
func (b *Backend) Quota(ctx context.Context) (Quota, error) {
	ub, err := b.urlBuilder(ctx)
	if err != nil {
		return Quota{}, err
	}

	var dr driveResponse
	if err := b.client.doJSON(ctx, http.MethodGet, ub.driveURL(), nil, requestOptions{sign: true, timeout: b.client.timeouts.Short}, &dr); err != nil {
		return Quota{}, err
	}

	return dr.toQuota(), nil
}

// testProbeName is the fixed name of the small object Test round-trips
// through put and get to verify both read and write credentials.
const testProbeName = ".msgraph-backend-test-probe"

// Test verifies the configured root exists, then performs a small
// read/write round-trip, per §4.7. 404 on the root is translated to
// ErrFolderMissing.
func (b *Backend) Test(ctx context.Context) error {
	ub, err := b.urlBuilder(ctx)
	if err != nil {
		return err
	}

	err = b.client.doJSON(ctx, http.MethodGet, ub.rootItemURL(), nil, requestOptions{sign: true, timeout: b.client.timeouts.Short}, nil)
	if errors.Is(err, ErrItemNotFound) {
		return ErrFolderMissing
	}

	if err != nil {
		return err
	}

	probe := []byte("probe")

	if _, err := b.putSimple(ctx, ub, testProbeName, bytes.NewReader(probe), int64(len(probe))); err != nil {
		return fmt.Errorf("graph: test write failed: %w", err)
	}

	var buf bytes.Buffer
	if err := b.Get(ctx, testProbeName, &buf); err != nil {
		return fmt.Errorf("graph: test read failed: %w", err)
	}

	if err := b.Delete(ctx, testProbeName); err != nil {
		b.logger.Warn("failed to clean up test probe", slog.String("error", err.Error()))
	}

	return nil
}
