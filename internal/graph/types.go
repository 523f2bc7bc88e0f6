package graph

import "time"

// Item is the boundary DriveItem type: only the fields the core consumes,
// per §3. Unknown JSON fields on the wire are simply ignored by the decoder.
type Item struct {
	ID               string
	Name             string
	Size             int64
	IsFile           bool
	IsDeleted        bool
	IsFolder         bool
	LastModified     time.Time
	LastAccessed     time.Time
}

// driveItemResponse mirrors the Graph API driveItem JSON shape. Unexported —
// callers use Item via toItem() normalization.
type driveItemResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Size      int64           `json:"size"`
	Deleted   *struct{}       `json:"deleted,omitempty"`
	File      *struct{}       `json:"file,omitempty"`
	Folder    *struct{}       `json:"folder,omitempty"`
	FSInfo    *fileSystemInfo `json:"fileSystemInfo,omitempty"`
	Modified  string          `json:"lastModifiedDateTime"`
}

type fileSystemInfo struct {
	LastModifiedDateTime string `json:"lastModifiedDateTime"`
	LastAccessedDateTime string `json:"lastAccessedDateTime"`
}

func (r *driveItemResponse) toItem() Item {
	item := Item{
		ID:        r.ID,
		Name:      r.Name,
		Size:      r.Size,
		IsFile:    r.File != nil,
		IsFolder:  r.Folder != nil,
		IsDeleted: r.Deleted != nil,
	}

	if t, err := time.Parse(time.RFC3339, r.Modified); err == nil {
		item.LastModified = t
	}

	if r.FSInfo != nil {
		if t, err := time.Parse(time.RFC3339, r.FSInfo.LastModifiedDateTime); err == nil {
			item.LastModified = t
		}

		if t, err := time.Parse(time.RFC3339, r.FSInfo.LastAccessedDateTime); err == nil {
			item.LastAccessed = t
		}
	}

	return item
}

// collection mirrors the GraphCollection<T> wire shape from §3: a page of
// values plus an optional continuation link.
type collection struct {
	Value    []driveItemResponse `json:"value"`
	NextLink string              `json:"@odata.nextLink"`
}

// Quota is the drive's reported storage usage, per §4.7. Unknown reports a
// misbehaving drive that returned all-zero fields.
type Quota struct {
	Total     int64
	Remaining int64
	Unknown   bool
}

type driveResponse struct {
	Quota *quotaFacet `json:"quota"`
}

type quotaFacet struct {
	Total     int64 `json:"total"`
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
}

func (d *driveResponse) toQuota() Quota {
	if d.Quota == nil {
		return Quota{Unknown: true}
	}

	if d.Quota.Total == 0 && d.Quota.Used == 0 && d.Quota.Remaining == 0 {
		return Quota{Unknown: true}
	}

	return Quota{Total: d.Quota.Total, Remaining: d.Quota.Remaining}
}

// uploadSessionResponse mirrors both the createUploadSession response and
// the per-fragment response shape (which, on the final fragment, is instead
// a completed driveItem — we only read the fields that matter to us, so
// decoding either shape into this struct leaves the irrelevant ones zero).
type uploadSessionResponse struct {
	UploadURL          string   `json:"uploadUrl"`
	ExpirationDateTime string   `json:"expirationDateTime"`
	NextExpectedRanges []string `json:"nextExpectedRanges"`

	// Present only when the server returns the completed item instead of a
	// session (the final fragment's response).
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (r *uploadSessionResponse) isFinal() bool {
	return r.UploadURL == "" && r.ID != ""
}
