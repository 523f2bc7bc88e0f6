package graph

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Resolved is the output of drive-path resolution: §4.4's
// {apiVersion, drivePath, rootPath}.
type Resolved struct {
	APIVersion string
	DrivePath  string
	RootPath   string
}

// DrivePathResolver computes apiVersion and drivePath (and, for protocols
// that need it, makes a network call to turn e.g. a site into a drive id).
// It does not see the configured rootUrl; the root path is derived from
// that URL separately by driveResolver. It is supplied by the protocol-specific subclass mentioned in
// §1 as out of scope here; the core only needs the interface.
type DrivePathResolver interface {
	ResolveDrivePath(ctx context.Context) (apiVersion, drivePath string, err error)
}

// MeDriveResolver resolves to the signed-in user's own drive, the default
// and simplest case ("/me/drive").
type MeDriveResolver struct{}

func (MeDriveResolver) ResolveDrivePath(_ context.Context) (string, string, error) {
	return DefaultAPIVersion, "/me/drive", nil
}

// DriveIDResolver resolves to a specific drive by id ("/drives/{id}"),
// covering the business/shared-drive case.
type DriveIDResolver struct {
	DriveID string
}

func (r DriveIDResolver) ResolveDrivePath(_ context.Context) (string, string, error) {
	return DefaultAPIVersion, "/drives/" + url.PathEscape(r.DriveID), nil
}

// driveResolver performs the one-shot memoized resolution described in
// §4.4 and §9: concurrent first callers share exactly one resolution
// attempt via singleflight, and the result is cached for the backend's
// lifetime once it succeeds. A failed attempt is not cached, so a
// subsequent call may retry.
type driveResolver struct {
	rootURL  string
	delegate DrivePathResolver
	logger   *slog.Logger

	group singleflight.Group

	mu       sync.RWMutex
	resolved *Resolved
}

func newDriveResolver(rootURL string, delegate DrivePathResolver, logger *slog.Logger) *driveResolver {
	return &driveResolver{rootURL: rootURL, delegate: delegate, logger: logger}
}

// resolve returns the cached Resolved value, computing it on first call.
func (r *driveResolver) resolve(ctx context.Context) (*Resolved, error) {
	r.mu.RLock()
	cached := r.resolved
	r.mu.RUnlock()

	if cached != nil {
		return cached, nil
	}

	v, err, _ := r.group.Do("resolve", func() (any, error) {
		// Re-check under the singleflight call in case a concurrent
		// caller just finished populating the cache.
		r.mu.RLock()
		cached := r.resolved
		r.mu.RUnlock()

		if cached != nil {
			return cached, nil
		}

		apiVersion, drivePath, err := r.delegate.ResolveDrivePath(ctx)
		if err != nil {
			return nil, fmt.Errorf("graph: resolving drive path: %w", err)
		}

		rootPath, err := rootPathFromURL(r.rootURL)
		if err != nil {
			return nil, err
		}

		resolved := &Resolved{APIVersion: apiVersion, DrivePath: drivePath, RootPath: rootPath}

		r.mu.Lock()
		r.resolved = resolved
		r.mu.Unlock()

		r.logger.Info("resolved drive path",
			slog.String("api_version", apiVersion),
			slog.String("drive_path", drivePath),
			slog.String("root_path", rootPath),
		)

		return resolved, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Resolved), nil
}

// rootPathFromURL extracts the logical root path from the user-supplied
// rootUrl's host+path component after URL-decoding, then normalizes it,
// per §4.4.
func rootPathFromURL(rootURL string) (string, error) {
	u, err := url.Parse(rootURL)
	if err != nil {
		return "", fmt.Errorf("graph: invalid root URL %q: %w", rootURL, err)
	}

	raw := u.Host + u.Path
	if u.Host == "" {
		raw = u.Path
	}

	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("graph: decoding root URL path: %w", err)
	}

	return normalizePath(strings.TrimSuffix(decoded, "/")), nil
}
