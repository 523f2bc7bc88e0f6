// Package backend exposes the uniform remote-storage interface (list, put,
// get, rename, delete, create-folder, quota, test) that a higher-level
// backup engine consumes, backed by a Microsoft Graph drive.
package backend

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/cirrusbackup/msgraph-backend/internal/config"
	"github.com/cirrusbackup/msgraph-backend/internal/graph"
)

// Error sentinels re-exported from the taxonomy in §7, for callers outside
// this module who can only see the public backend package.
var (
	ErrFileMissing   = graph.ErrFileMissing
	ErrFolderMissing = graph.ErrFolderMissing
	ErrItemNotFound  = graph.ErrItemNotFound
	ErrParse         = graph.ErrParse
	ErrCancelled     = graph.ErrCancelled
)

// UploadSessionError is re-exported so callers can errors.As into it to
// read FragmentIndex/FragmentCount/Cause, per §7.
type UploadSessionError = graph.UploadSessionError

// Entry is a public, boundary-only view of a remote drive item — the
// fields named in §3's DriveItem data model.
type Entry struct {
	ID           string
	Name         string
	Size         int64
	IsFile       bool
	IsDeleted    bool
	IsFolder     bool
	LastModified time.Time
	LastAccessed time.Time
}

func fromItem(item graph.Item) Entry {
	return Entry{
		ID:           item.ID,
		Name:         item.Name,
		Size:         item.Size,
		IsFile:       item.IsFile,
		IsDeleted:    item.IsDeleted,
		IsFolder:     item.IsFolder,
		LastModified: item.LastModified,
		LastAccessed: item.LastAccessed,
	}
}

// Quota reports a drive's storage usage, per §4.7.
type Quota struct {
	Total     int64
	Remaining int64
	Unknown   bool
}

// Backend is the adapter instance constructed for one drive + backup root.
type Backend struct {
	inner *graph.Backend
}

// New constructs a Backend from a validated Config, a token collaborator,
// and a drive-path resolver selecting which protocol subclass applies
// (personal /me/drive, a specific /drives/{id}, or a SharePoint document
// library) — the part of drive-path resolution that §1 calls out as
// protocol-specific and out of the core's scope.
func New(cfg *config.Config, resolver graph.DrivePathResolver, token graph.TokenSource, httpClient *http.Client, logger *slog.Logger) *Backend {
	if resolver == nil {
		resolver = graph.MeDriveResolver{}
	}

	return &Backend{
		inner: graph.NewBackend(cfg.RootURL, resolver, token, httpClient, logger, userAgent, cfg.BackendConfig()),
	}
}

const userAgent = "msgraph-backend/1.0"

// EnsureRoot creates every missing segment of the configured backup root.
func (b *Backend) EnsureRoot(ctx context.Context) error {
	return b.inner.EnsureRoot(ctx)
}

// List enumerates the children of the backup root.
func (b *Backend) List(ctx context.Context) iter.Seq2[Entry, error] {
	items, err := b.inner.List(ctx)
	if err != nil {
		return func(yield func(Entry, error) bool) { yield(Entry{}, err) }
	}

	return func(yield func(Entry, error) bool) {
		for item, itemErr := range items {
			if !yield(fromItem(item), itemErr) {
				return
			}

			if itemErr != nil {
				return
			}
		}
	}
}

// Put uploads name from r (size bytes long), dispatching to the simple or
// chunked path internally.
func (b *Backend) Put(ctx context.Context, name string, r io.ReaderAt, size int64) (Entry, error) {
	item, err := b.inner.Put(ctx, name, r, size)

	return fromItem(item), err
}

// Get streams name's content to w.
func (b *Backend) Get(ctx context.Context, name string, w io.Writer) error {
	return b.inner.Get(ctx, name, w)
}

// Delete removes name.
func (b *Backend) Delete(ctx context.Context, name string) error {
	return b.inner.Delete(ctx, name)
}

// Rename changes name to newName.
func (b *Backend) Rename(ctx context.Context, name, newName string) error {
	return b.inner.Rename(ctx, name, newName)
}

// Quota reports the drive's storage usage.
func (b *Backend) Quota(ctx context.Context) (Quota, error) {
	q, err := b.inner.Quota(ctx)

	return Quota{Total: q.Total, Remaining: q.Remaining, Unknown: q.Unknown}, err
}

// Test verifies the backup root exists and that both read and write
// credentials work.
func (b *Backend) Test(ctx context.Context) error {
	return b.inner.Test(ctx)
}
