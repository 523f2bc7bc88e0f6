package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"a/b":           "/a/b",
		`a\b`:           "/a/b",
		"/a/b/":         "/a/b",
		"/already/fine": "/already/fine",
	}

	for in, want := range cases {
		assert.Equal(t, want, normalizePath(in), "input %q", in)
	}
}

func TestURLBuilderItemURLs(t *testing.T) {
	ub := newURLBuilder(DefaultAPIVersion, "/me/drive", "/Backups/host1")

	assert.Equal(t, "/v1.0/me/drive/root:/Backups/host1", ub.rootItemURL())
	assert.Equal(t, "/v1.0/me/drive/root:/Backups/host1:/children", ub.childrenURL())
	assert.Equal(t, "/v1.0/me/drive/root:/Backups/host1/a.bin", ub.itemURL("a.bin"))
	assert.Equal(t, "/v1.0/me/drive/root:/Backups/host1/a.bin:/content", ub.itemVerbURL("a.bin", "content"))
	assert.Equal(t, "/v1.0/me/drive/root:/Backups/host1/a.bin:/createUploadSession", ub.itemVerbURL("a.bin", "createUploadSession"))
	assert.Equal(t, "/v1.0/me/drive/items/parent-id/children", ub.folderChildrenURL("parent-id"))
}

func TestURLBuilderEmptyRoot(t *testing.T) {
	ub := newURLBuilder(DefaultAPIVersion, "/me/drive", "")

	assert.Equal(t, "/v1.0/me/drive/root", ub.rootItemURL())
	assert.Equal(t, "/v1.0/me/drive/root:/a.bin", ub.itemURL("a.bin"))
}

func TestEncodeRootPathEscapesSegments(t *testing.T) {
	assert.Equal(t, "/a%20b/c", encodeRootPath("/a b/c"))
}
