package graph

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultAPIVersion is the Graph API version segment used unless a
// drivePath resolver overrides it (e.g. for beta-only endpoints).
const DefaultAPIVersion = "/v1.0"

// normalizePath applies the slash-normalization rule from §4.1: backslashes
// become forward slashes, a non-empty result gets a leading slash, and any
// trailing slash is stripped. The empty string stays empty.
func normalizePath(p string) string {
	if p == "" {
		return ""
	}

	p = strings.ReplaceAll(p, `\`, "/")

	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	p = strings.TrimSuffix(p, "/")

	return p
}

// normalizeName applies Unicode NFC normalization before a name is
// percent-encoded into a root:{path} URL segment, so that filenames arriving
// in NFD form (common on macOS) don't silently create duplicate drive items
// under a different normalization than an existing remote file.
func normalizeName(name string) string {
	return norm.NFC.String(name)
}

// encodeRootPath percent-encodes each segment of a normalized path
// individually, preserving the path separators that the root: syntax
// expects literally.
func encodeRootPath(p string) string {
	if p == "" {
		return ""
	}

	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(normalizeName(seg))
	}

	return "/" + strings.Join(segments, "/")
}

// urlBuilder produces Graph request URLs from a resolved drive prefix and
// root path, per §4.1.
type urlBuilder struct {
	apiVersion string
	drivePath  string
	rootPath   string // already normalized, not yet percent-encoded
}

func newURLBuilder(apiVersion, drivePath, rootPath string) urlBuilder {
	return urlBuilder{
		apiVersion: apiVersion,
		drivePath:  drivePath,
		rootPath:   normalizePath(rootPath),
	}
}

// prefix returns {apiVersion}{drivePath}.
func (b urlBuilder) prefix() string {
	return b.apiVersion + b.drivePath
}

// pathItemURL returns the metadata URL for an arbitrary full path relative
// to the drive root (no :/verb suffix). An empty path addresses the drive
// root itself, which Graph exposes at .../root rather than .../root:.
func (b urlBuilder) pathItemURL(fullPath string) string {
	if fullPath == "" {
		return b.prefix() + "/root"
	}

	return b.prefix() + "/root:" + encodeRootPath(fullPath)
}

// rootItemURL returns the metadata URL for the configured root folder
// itself.
func (b urlBuilder) rootItemURL() string {
	return b.pathItemURL(b.rootPath)
}

// itemURL returns the metadata URL for a named item under the root,
// dropping the :/verb suffix per §4.1.
func (b urlBuilder) itemURL(name string) string {
	return b.pathItemURL(b.rootPath + normalizePath("/"+name))
}

// itemVerbURL returns a remote-file URL with a trailing :/{verb} segment,
// e.g. "content", "children", "createUploadSession".
func (b urlBuilder) itemVerbURL(name, verb string) string {
	return b.itemURL(name) + ":/" + verb
}

// childrenURL returns the paginated-children URL for the root itself.
func (b urlBuilder) childrenURL() string {
	return b.rootItemURL() + ":/children"
}

// folderChildrenURL returns the URL used to create a child under a known
// parent item id, per §4.1's "known parent id" form.
func (b urlBuilder) folderChildrenURL(parentID string) string {
	return b.prefix() + "/items/" + url.PathEscape(parentID) + "/children"
}

// driveURL returns the drive resource URL (used for quota).
func (b urlBuilder) driveURL() string {
	return b.prefix()
}
